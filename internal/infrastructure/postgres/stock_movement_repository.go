package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, stock_record_id, tenant_id, product_id, warehouse_id, kind, quantity_delta,
	quantity_before, quantity_after, reserved_before, reserved_after, in_transit_before, in_transit_after,
	reference, unit_cost, actor_id, occurred_at`

// StockMovementRepo kardex de solo inserción. La tabla tiene un trigger que rechaza UPDATE y DELETE.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Append inserta el movimiento y asigna el ID secuencial.
func (r *StockMovementRepo) Append(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (stock_record_id, tenant_id, product_id, warehouse_id, kind, quantity_delta,
			quantity_before, quantity_after, reserved_before, reserved_after, in_transit_before, in_transit_after,
			reference, unit_cost, actor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		m.StockRecordID, m.TenantID, m.ProductID, m.WarehouseID, string(m.Kind), m.QuantityDelta,
		m.QuantityBefore, m.QuantityAfter, m.ReservedBefore, m.ReservedAfter, m.InTransitBefore, m.InTransitAfter,
		m.Reference, m.UnitCost, m.ActorID, m.OccurredAt,
	).Scan(&m.ID)
	if err != nil {
		return translate(err, "append movement")
	}
	return nil
}

// ListByRecord movimientos de un registro en orden de inserción, con rango de fechas opcional.
func (r *StockMovementRepo) ListByRecord(ctx context.Context, recordID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE stock_record_id = $1`
	args := []any{recordID}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND occurred_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND occurred_at <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)
	return r.list(ctx, query, args...)
}

// ListByReference movimientos de un pedido o traslado.
func (r *StockMovementRepo) ListByReference(ctx context.Context, tenantID, reference string) ([]*entity.StockMovement, error) {
	return r.list(ctx, `SELECT `+movementColumns+` FROM stock_movements
		WHERE tenant_id = $1 AND reference = $2 ORDER BY id`, tenantID, reference)
}

// SumDeltas Σ quantity_delta del registro.
func (r *StockMovementRepo) SumDeltas(ctx context.Context, recordID string) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(quantity_delta), 0)::bigint FROM stock_movements WHERE stock_record_id = $1`,
		recordID).Scan(&sum)
	if err != nil {
		return 0, translate(err, "sum movements")
	}
	return sum, nil
}

func (r *StockMovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list movements")
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var kind string
	err := row.Scan(&m.ID, &m.StockRecordID, &m.TenantID, &m.ProductID, &m.WarehouseID, &kind, &m.QuantityDelta,
		&m.QuantityBefore, &m.QuantityAfter, &m.ReservedBefore, &m.ReservedAfter, &m.InTransitBefore, &m.InTransitAfter,
		&m.Reference, &m.UnitCost, &m.ActorID, &m.OccurredAt)
	if err != nil {
		return nil, err
	}
	m.Kind = entity.MovementKind(kind)
	return &m, nil
}
