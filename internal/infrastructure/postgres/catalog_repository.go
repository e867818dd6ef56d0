package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/application/billing"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var (
	_ billing.CatalogResolver = (*CatalogRepo)(nil)
	_ inventory.ProductReader = (*CatalogRepo)(nil)
)

// CatalogRepo vista de solo lectura del catálogo: existencia del producto, precio e impuesto.
type CatalogRepo struct {
	q Querier
}

func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

// GetProduct devuelve nil, nil si el producto no existe para el tenant.
func (r *CatalogRepo) GetProduct(ctx context.Context, tenantID, productID string) (*entity.Product, error) {
	var p entity.Product
	err := r.q.QueryRow(ctx, `
		SELECT id, tenant_id, sku, name, price, tax_rate
		FROM products WHERE tenant_id = $1 AND id = $2`, tenantID, productID).
		Scan(&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.Price, &p.TaxRate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (r *CatalogRepo) ResolvePriceAndTax(ctx context.Context, tenantID, productID string) (*entity.PriceAndTax, error) {
	p, err := r.GetProduct(ctx, tenantID, productID)
	if err != nil || p == nil {
		return nil, err
	}
	return &entity.PriceAndTax{UnitPrice: p.Price, TaxRate: p.TaxRate}, nil
}
