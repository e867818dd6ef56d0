package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTransferRequest body para POST /api/transfers.
// Immediate=true despacha y recibe en la misma transacción.
type CreateTransferRequest struct {
	ProductID       string `json:"product_id"`
	FromWarehouseID string `json:"from_warehouse_id"`
	ToWarehouseID   string `json:"to_warehouse_id"`
	Quantity        int64  `json:"quantity"`
	Immediate       bool   `json:"immediate"`
}

// ReceiveTransferRequest body para POST /api/transfers/:id/receive.
type ReceiveTransferRequest struct {
	QuantityReceived int64 `json:"quantity_received"`
}

// TransferResponse traslado en respuestas.
type TransferResponse struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"product_id"`
	FromWarehouseID  string          `json:"from_warehouse_id"`
	ToWarehouseID    string          `json:"to_warehouse_id"`
	QuantityShipped  int64           `json:"quantity_shipped"`
	QuantityReceived int64           `json:"quantity_received"`
	Shortfall        int64           `json:"shortfall"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	Status           string          `json:"status"`
	DispatchedAt     time.Time       `json:"dispatched_at"`
	ReceivedAt       *time.Time      `json:"received_at,omitempty"`
}
