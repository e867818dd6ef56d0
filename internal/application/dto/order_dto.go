package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de rechazo de un pedido (resultado de negocio, no falla de infraestructura).
const (
	RejectionInsufficientStock = "insufficient_stock"
	RejectionValidationError   = "validation_error"
)

// CreateOrderRequest body para POST /api/orders. El tenant y el actor salen del token.
type CreateOrderRequest struct {
	CustomerID string                   `json:"customer_id"`
	Lines      []CreateOrderLineRequest `json:"lines"`
}

// CreateOrderLineRequest línea del pedido. UnitPriceOverride reemplaza el precio del catálogo.
// DiscountPct es una fracción en [0, 1): 0.1 = 10%.
type CreateOrderLineRequest struct {
	ProductID         string           `json:"product_id"`
	WarehouseID       string           `json:"warehouse_id"`
	Quantity          int64            `json:"quantity"`
	UnitPriceOverride *decimal.Decimal `json:"unit_price_override,omitempty"`
	DiscountPct       decimal.Decimal  `json:"discount_pct"`
}

// OrderTotalsDTO totales redondeados a 2 decimales.
type OrderTotalsDTO struct {
	Net   decimal.Decimal `json:"net"`
	Tax   decimal.Decimal `json:"tax"`
	Grand decimal.Decimal `json:"grand"`
}

// OrderReceipt respuesta de éxito: pedido comprometido con número de factura.
type OrderReceipt struct {
	OrderID       string         `json:"order_id"`
	InvoiceNumber string         `json:"invoice_number"`
	Totals        OrderTotalsDTO `json:"totals"`
}

// RejectionDetail detalle por línea de un rechazo.
type RejectionDetail struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id,omitempty"`
	Requested   int64  `json:"requested"`
	Available   int64  `json:"available"`
	Field       string `json:"field,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// OrderRejection rechazo itemizado; nunca hay éxito parcial.
type OrderRejection struct {
	OrderID string            `json:"order_id,omitempty"` // solo si el pedido quedó persistido como failed
	Kind    string            `json:"kind"`
	Details []RejectionDetail `json:"details"`
}

// OrderOutcome exactamente uno de Receipt o Rejection.
type OrderOutcome struct {
	Receipt   *OrderReceipt
	Rejection *OrderRejection
}

// Committed indica si el pedido quedó comprometido.
func (o *OrderOutcome) Committed() bool {
	return o != nil && o.Receipt != nil
}

// OrderLineResponse línea en respuestas.
type OrderLineResponse struct {
	LineNumber  int             `json:"line_number"`
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	NetTotal    decimal.Decimal `json:"net_total"`
}

// OrderResponse pedido con detalle para GET /api/orders/:id.
type OrderResponse struct {
	ID            string              `json:"id"`
	TenantID      string              `json:"tenant_id"`
	CustomerID    string              `json:"customer_id"`
	InvoiceNumber string              `json:"invoice_number,omitempty"`
	Status        string              `json:"status"`
	Totals        OrderTotalsDTO      `json:"totals"`
	FailureReason string              `json:"failure_reason,omitempty"`
	CreatedBy     string              `json:"created_by"`
	CreatedAt     time.Time           `json:"created_at"`
	CommittedAt   *time.Time          `json:"committed_at,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
	Lines         []OrderLineResponse `json:"lines,omitempty"`
}

// OrderListRequest filtros de GET /api/orders.
type OrderListRequest struct {
	PageRequest
	Status string     `query:"status"`
	From   *time.Time `query:"from"`
	To     *time.Time `query:"to"`
}

// OrderListResponse listado paginado.
type OrderListResponse struct {
	Items []OrderResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}
