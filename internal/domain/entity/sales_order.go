package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// OrderStatus estados del pedido. Validating y Pending (stock reservado) son intermedios;
// Committed, Failed y Cancelled son terminales para la transacción de venta.
type OrderStatus string

const (
	OrderStatusDraft      OrderStatus = "draft"
	OrderStatusValidating OrderStatus = "validating"
	OrderStatusPending    OrderStatus = "pending" // stock reservado
	OrderStatusCommitted  OrderStatus = "committed"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:      {OrderStatusValidating, OrderStatusFailed},
	OrderStatusValidating: {OrderStatusPending, OrderStatusFailed},
	OrderStatusPending:    {OrderStatusCommitted, OrderStatusFailed},
	OrderStatusCommitted:  {OrderStatusCancelled},
}

// SalesOrder cabecera del pedido de venta.
type SalesOrder struct {
	ID            string
	TenantID      string
	CustomerID    string
	InvoiceNumber string // único por tenant; vacío hasta el commit
	Status        OrderStatus
	NetTotal      decimal.Decimal
	TaxTotal      decimal.Decimal
	GrandTotal    decimal.Decimal
	FailureReason string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CommittedAt   *time.Time
	CancelledAt   *time.Time
}

// Transition devuelve el pedido en el nuevo estado o ErrConflict si la transición no es válida.
func (o SalesOrder) Transition(to OrderStatus, at time.Time) (SalesOrder, error) {
	for _, allowed := range orderTransitions[o.Status] {
		if allowed == to {
			next := o
			next.Status = to
			next.UpdatedAt = at
			switch to {
			case OrderStatusCommitted:
				next.CommittedAt = &at
			case OrderStatusCancelled:
				next.CancelledAt = &at
			}
			return next, nil
		}
	}
	return o, fmt.Errorf("pedido %s: transición %s -> %s: %w", o.ID, o.Status, to, domain.ErrConflict)
}

// WithTotals asigna los totales calculados de las líneas.
func (o SalesOrder) WithTotals(t OrderTotals) SalesOrder {
	next := o
	next.NetTotal = t.Net
	next.TaxTotal = t.Tax
	next.GrandTotal = t.Grand
	return next
}

// OrderLine línea del pedido; inmutable una vez comprometido el pedido.
type OrderLine struct {
	ID          string
	OrderID     string
	LineNumber  int
	ProductID   string
	WarehouseID string
	Quantity    int64
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal // fracción 0..1
	TaxRate     decimal.Decimal // fracción
}

func (l OrderLine) Key(tenantID string) StockKey {
	return StockKey{TenantID: tenantID, ProductID: l.ProductID, WarehouseID: l.WarehouseID}
}

// Net cantidad × precio × (1 − descuento).
func (l OrderLine) Net() decimal.Decimal {
	return decimal.NewFromInt(l.Quantity).Mul(l.UnitPrice).Mul(decimal.NewFromInt(1).Sub(l.DiscountPct))
}

// Tax impuesto sobre el neto.
func (l OrderLine) Tax() decimal.Decimal {
	return l.Net().Mul(l.TaxRate)
}

// OrderTotals totales del pedido redondeados a 2 decimales.
type OrderTotals struct {
	Net   decimal.Decimal
	Tax   decimal.Decimal
	Grand decimal.Decimal
}

// ComputeTotals Σ cantidad × precio × (1 − descuento) × (1 + impuesto).
// Se acumula con precisión completa y se redondea solo al final.
func ComputeTotals(lines []OrderLine) OrderTotals {
	net, tax := decimal.Zero, decimal.Zero
	for _, l := range lines {
		net = net.Add(l.Net())
		tax = tax.Add(l.Tax())
	}
	return OrderTotals{
		Net:   net.Round(2),
		Tax:   tax.Round(2),
		Grand: net.Add(tax).Round(2),
	}
}
