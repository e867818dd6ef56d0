package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo reservas de stock por pedido.
type ReservationRepo struct {
	q Querier
}

func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

func (r *ReservationRepo) Create(ctx context.Context, res *entity.Reservation) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO reservations (id, tenant_id, order_id, product_id, warehouse_id, quantity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		res.ID, res.TenantID, res.OrderID, res.ProductID, res.WarehouseID, res.Quantity, string(res.Status),
		res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return translate(err, "reserva "+res.ID)
	}
	return nil
}

// ListActiveByOrder reservas activas del pedido en orden de creación.
func (r *ReservationRepo) ListActiveByOrder(ctx context.Context, tenantID, orderID string) ([]*entity.Reservation, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, tenant_id, order_id, product_id, warehouse_id, quantity, status, created_at, updated_at
		FROM reservations WHERE tenant_id = $1 AND order_id = $2 AND status = $3
		ORDER BY created_at, id`, tenantID, orderID, string(entity.ReservationActive))
	if err != nil {
		return nil, translate(err, "list reservations")
	}
	defer rows.Close()
	var list []*entity.Reservation
	for rows.Next() {
		var res entity.Reservation
		var status string
		if err := rows.Scan(&res.ID, &res.TenantID, &res.OrderID, &res.ProductID, &res.WarehouseID,
			&res.Quantity, &status, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		res.Status = entity.ReservationStatus(status)
		list = append(list, &res)
	}
	return list, rows.Err()
}

func (r *ReservationRepo) UpdateStatus(ctx context.Context, id string, status entity.ReservationStatus, at time.Time) error {
	cmd, err := r.q.Exec(ctx, `UPDATE reservations SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), at)
	if err != nil {
		return translate(err, "reserva "+id)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("reserva %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
