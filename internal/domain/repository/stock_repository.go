package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockRepository define el puerto para consultar/actualizar stock por (tenant, producto, bodega).
// Usado dentro de transacciones para garantizar consistencia.
type StockRepository interface {
	// Get lectura sin bloqueo (solo para mostrar). Devuelve nil, nil si no existe.
	Get(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE). Devuelve nil, nil si no existe.
	GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error)
	// EnsureForUpdate crea el registro en cero si no existe y lo bloquea.
	EnsureForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error)
	Save(ctx context.Context, rec *entity.StockRecord) error
	ListByProduct(ctx context.Context, tenantID, productID string) ([]*entity.StockRecord, error)
}
