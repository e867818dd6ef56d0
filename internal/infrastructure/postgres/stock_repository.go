package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

const stockColumns = `id, tenant_id, product_id, warehouse_id, quantity_physical, quantity_reserved,
	quantity_in_transit, average_unit_cost, quarantined, quarantine_reason, created_at, updated_at`

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

func scanStock(row pgx.Row) (*entity.StockRecord, error) {
	var s entity.StockRecord
	err := row.Scan(&s.ID, &s.TenantID, &s.ProductID, &s.WarehouseID, &s.QuantityPhysical, &s.QuantityReserved,
		&s.QuantityInTransit, &s.AverageUnitCost, &s.Quarantined, &s.QuarantineReason, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StockRepo) get(ctx context.Context, key entity.StockKey, suffix string) (*entity.StockRecord, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_records
		WHERE tenant_id = $1 AND product_id = $2 AND warehouse_id = $3` + suffix
	s, err := scanStock(r.q.QueryRow(ctx, query, key.TenantID, key.ProductID, key.WarehouseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(err, "stock "+key.String())
	}
	return s, nil
}

// Get lectura sin bloqueo.
func (r *StockRepo) Get(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	return r.get(ctx, key, "")
}

// GetForUpdate obtiene el registro y bloquea la fila (SELECT FOR UPDATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	return r.get(ctx, key, " FOR UPDATE")
}

// EnsureForUpdate inserta el registro en cero si no existe y lo bloquea.
func (r *StockRepo) EnsureForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_records (id, tenant_id, product_id, warehouse_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (tenant_id, product_id, warehouse_id) DO NOTHING`,
		uuid.New().String(), key.TenantID, key.ProductID, key.WarehouseID)
	if err != nil {
		return nil, translate(err, "stock "+key.String())
	}
	rec, err := r.GetForUpdate(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("stock %s no creado: %w", key, domain.ErrConcurrentModification)
	}
	return rec, nil
}

// Save persiste cantidades, costo y cuarentena del registro ya bloqueado.
func (r *StockRepo) Save(ctx context.Context, rec *entity.StockRecord) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE stock_records SET quantity_physical = $2, quantity_reserved = $3, quantity_in_transit = $4,
			average_unit_cost = $5, quarantined = $6, quarantine_reason = $7, updated_at = $8
		WHERE id = $1`,
		rec.ID, rec.QuantityPhysical, rec.QuantityReserved, rec.QuantityInTransit,
		rec.AverageUnitCost, rec.Quarantined, rec.QuarantineReason, rec.UpdatedAt)
	if err != nil {
		return translate(err, "stock "+rec.Key().String())
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("stock %s: %w", rec.Key(), domain.ErrNotFound)
	}
	return nil
}

// ListByProduct registros del producto en todas las bodegas del tenant.
func (r *StockRepo) ListByProduct(ctx context.Context, tenantID, productID string) ([]*entity.StockRecord, error) {
	rows, err := r.q.Query(ctx, `SELECT `+stockColumns+` FROM stock_records
		WHERE tenant_id = $1 AND product_id = $2 ORDER BY warehouse_id`, tenantID, productID)
	if err != nil {
		return nil, translate(err, "list stock")
	}
	defer rows.Close()
	var list []*entity.StockRecord
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
