package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptRequest body para POST /api/inventory/receipts.
type ReceiptRequest struct {
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    int64           `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Reference   string          `json:"reference,omitempty"`
}

// AdjustmentRequest body para POST /api/inventory/adjustments. Quantity con signo.
type AdjustmentRequest struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int64  `json:"quantity"`
	Reference   string `json:"reference,omitempty"`
}

// StockResponse vista de un StockRecord.
type StockResponse struct {
	ProductID         string          `json:"product_id"`
	WarehouseID       string          `json:"warehouse_id"`
	QuantityPhysical  int64           `json:"quantity_physical"`
	QuantityReserved  int64           `json:"quantity_reserved"`
	QuantityAvailable int64           `json:"quantity_available"`
	QuantityInTransit int64           `json:"quantity_in_transit"`
	AverageUnitCost   decimal.Decimal `json:"average_unit_cost"`
	Quarantined       bool            `json:"quarantined"`
	QuarantineReason  string          `json:"quarantine_reason,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// MovementResponse fila del kardex.
type MovementResponse struct {
	ID              int64            `json:"id"`
	Kind            string           `json:"kind"`
	QuantityDelta   int64            `json:"quantity_delta"`
	QuantityBefore  int64            `json:"quantity_before"`
	QuantityAfter   int64            `json:"quantity_after"`
	ReservedBefore  int64            `json:"reserved_before"`
	ReservedAfter   int64            `json:"reserved_after"`
	InTransitBefore int64            `json:"in_transit_before"`
	InTransitAfter  int64            `json:"in_transit_after"`
	Reference       string           `json:"reference,omitempty"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty"`
	ActorID         string           `json:"actor_id,omitempty"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

// MovementListRequest filtros de GET /api/inventory/movements.
type MovementListRequest struct {
	PageRequest
	ProductID   string     `query:"product_id"`
	WarehouseID string     `query:"warehouse_id"`
	From        *time.Time `query:"from"`
	To          *time.Time `query:"to"`
}

// ReconciliationLine Σ deltas del kardex frente al físico de un registro.
type ReconciliationLine struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Physical    int64  `json:"quantity_physical"`
	SumOfDeltas int64  `json:"sum_of_deltas"`
	Consistent  bool   `json:"consistent"`
	Quarantined bool   `json:"quarantined"`
}

// QuarantineReleaseRequest body para POST /api/inventory/quarantine/release.
type QuarantineReleaseRequest struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
}
