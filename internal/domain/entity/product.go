package entity

import "github.com/shopspring/decimal"

// Product vista mínima del catálogo que consume el núcleo de stock.
// Precio y tasa de impuesto ya vienen resueltos por el catálogo; aquí no se recalculan.
type Product struct {
	ID       string
	TenantID string
	SKU      string
	Name     string
	Price    decimal.Decimal // precio de venta
	TaxRate  decimal.Decimal // fracción (0.19); se usa tal cual llega del catálogo
}

// PriceAndTax respuesta del colaborador de catálogo para un producto.
type PriceAndTax struct {
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
}
