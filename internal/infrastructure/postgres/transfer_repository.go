package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

const transferColumns = `id, tenant_id, product_id, from_warehouse_id, to_warehouse_id, quantity_shipped,
	quantity_received, unit_cost, status, created_by, dispatched_at, received_at`

type TransferRepo struct {
	q Querier
}

func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

func (r *TransferRepo) Create(ctx context.Context, t *entity.Transfer) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO transfers (id, tenant_id, product_id, from_warehouse_id, to_warehouse_id, quantity_shipped,
			quantity_received, unit_cost, status, created_by, dispatched_at, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.TenantID, t.ProductID, t.FromWarehouseID, t.ToWarehouseID, t.QuantityShipped,
		t.QuantityReceived, t.UnitCost, string(t.Status), t.CreatedBy, t.DispatchedAt, t.ReceivedAt)
	if err != nil {
		return translate(err, "traslado "+t.ID)
	}
	return nil
}

func (r *TransferRepo) Update(ctx context.Context, t *entity.Transfer) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE transfers SET quantity_received = $3, status = $4, received_at = $5
		WHERE id = $1 AND tenant_id = $2`,
		t.ID, t.TenantID, t.QuantityReceived, string(t.Status), t.ReceivedAt)
	if err != nil {
		return translate(err, "traslado "+t.ID)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("traslado %s: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *TransferRepo) get(ctx context.Context, tenantID, id, suffix string) (*entity.Transfer, error) {
	var t entity.Transfer
	var status string
	err := r.q.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfers WHERE tenant_id = $1 AND id = $2`+suffix,
		tenantID, id).Scan(&t.ID, &t.TenantID, &t.ProductID, &t.FromWarehouseID, &t.ToWarehouseID, &t.QuantityShipped,
		&t.QuantityReceived, &t.UnitCost, &status, &t.CreatedBy, &t.DispatchedAt, &t.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(err, "traslado "+id)
	}
	t.Status = entity.TransferStatus(status)
	return &t, nil
}

func (r *TransferRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Transfer, error) {
	return r.get(ctx, tenantID, id, "")
}

func (r *TransferRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Transfer, error) {
	return r.get(ctx, tenantID, id, " FOR UPDATE")
}
