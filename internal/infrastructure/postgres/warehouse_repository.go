package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

// WarehouseRepo lectura de bodegas. El alta la hace el onboarding del tenant.
type WarehouseRepo struct {
	q Querier
}

// NewWarehouseRepository construye el adaptador de persistencia para bodegas.
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{q: q}
}

// GetByID obtiene una bodega por ID.
func (r *WarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	var w entity.Warehouse
	err := r.q.QueryRow(ctx, `SELECT id, tenant_id, name, is_primary, created_at FROM warehouses WHERE id = $1`, id).
		Scan(&w.ID, &w.TenantID, &w.Name, &w.IsPrimary, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	return &w, nil
}

// ListByTenant bodegas del tenant, la principal primero.
func (r *WarehouseRepo) ListByTenant(ctx context.Context, tenantID string) ([]*entity.Warehouse, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, tenant_id, name, is_primary, created_at
		FROM warehouses WHERE tenant_id = $1 ORDER BY is_primary DESC, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	defer rows.Close()
	var list []*entity.Warehouse
	for rows.Next() {
		var w entity.Warehouse
		if err := rows.Scan(&w.ID, &w.TenantID, &w.Name, &w.IsPrimary, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan warehouse: %w", err)
		}
		list = append(list, &w)
	}
	return list, rows.Err()
}
