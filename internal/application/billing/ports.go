package billing

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CatalogResolver colaborador de catálogo: precio unitario y tasa de impuesto ya resueltos.
// El núcleo confía en los valores devueltos y no recalcula reglas de precio.
// Devuelve nil, nil si el producto no existe para el tenant.
type CatalogResolver interface {
	ResolvePriceAndTax(ctx context.Context, tenantID, productID string) (*entity.PriceAndTax, error)
}
