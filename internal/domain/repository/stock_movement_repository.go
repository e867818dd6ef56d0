package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockMovementRepository puerto de solo-inserción para el kardex. No existe Update ni Delete.
type StockMovementRepository interface {
	Append(ctx context.Context, movement *entity.StockMovement) error
	ListByRecord(ctx context.Context, recordID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	ListByReference(ctx context.Context, tenantID, reference string) ([]*entity.StockMovement, error)
	// SumDeltas Σ quantity_delta de todos los movimientos del registro (conciliación).
	SumDeltas(ctx context.Context, recordID string) (int64, error)
}
