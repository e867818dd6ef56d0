package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un traslado entre bodegas.
type TransferStatus string

const (
	TransferInTransit         TransferStatus = "in_transit"
	TransferReceived          TransferStatus = "received"
	TransferPartiallyReceived TransferStatus = "partially_received"
)

// Transfer traslado de un producto entre dos bodegas del mismo tenant.
// El despacho y la recepción son movimientos separados, cada uno auditable.
type Transfer struct {
	ID               string
	TenantID         string
	ProductID        string
	FromWarehouseID  string
	ToWarehouseID    string
	QuantityShipped  int64
	QuantityReceived int64
	UnitCost         decimal.Decimal // costo promedio en origen al despachar
	Status           TransferStatus
	CreatedBy        string
	DispatchedAt     time.Time
	ReceivedAt       *time.Time
}

func (t Transfer) SourceKey() StockKey {
	return StockKey{TenantID: t.TenantID, ProductID: t.ProductID, WarehouseID: t.FromWarehouseID}
}

func (t Transfer) DestinationKey() StockKey {
	return StockKey{TenantID: t.TenantID, ProductID: t.ProductID, WarehouseID: t.ToWarehouseID}
}

// Shortfall unidades despachadas que no llegaron.
func (t Transfer) Shortfall() int64 {
	if t.Status == TransferInTransit {
		return 0
	}
	return t.QuantityShipped - t.QuantityReceived
}
