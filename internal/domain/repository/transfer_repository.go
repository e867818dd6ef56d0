package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// TransferRepository persistencia de traslados entre bodegas.
type TransferRepository interface {
	Create(ctx context.Context, transfer *entity.Transfer) error
	Update(ctx context.Context, transfer *entity.Transfer) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Transfer, error)
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Transfer, error)
}
