package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una unidad de trabajo, pasando repositorios atados a ella.
// Commit si fn devuelve nil; Rollback en cualquier otro caso. Los bloqueos se liberan al terminar.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error
}

// ProductReader consulta el catálogo para validar que un producto exista y sea del tenant.
// Devuelve nil, nil si no existe.
type ProductReader interface {
	GetProduct(ctx context.Context, tenantID, productID string) (*entity.Product, error)
}

// StockViewCache caché de lecturas de disponibilidad para mostrar. Nunca alimenta una reserva.
type StockViewCache interface {
	Get(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error)
	Set(ctx context.Context, rec *entity.StockRecord) error
	Invalidate(ctx context.Context, keys ...entity.StockKey) error
}

// NoopStockCache caché desactivada.
type NoopStockCache struct{}

func (NoopStockCache) Get(context.Context, entity.StockKey) (*entity.StockRecord, error) {
	return nil, nil
}
func (NoopStockCache) Set(context.Context, *entity.StockRecord) error       { return nil }
func (NoopStockCache) Invalidate(context.Context, ...entity.StockKey) error { return nil }
