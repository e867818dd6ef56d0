package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// WarehouseRepository puerto de lectura de bodegas (el alta la hace el onboarding del tenant).
type WarehouseRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*entity.Warehouse, error)
}
