package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tipo de movimiento de inventario.
type MovementKind string

const (
	MovementKindReceipt     MovementKind = "receipt"      // entrada
	MovementKindSale        MovementKind = "sale"         // salida por venta
	MovementKindTransferOut MovementKind = "transfer-out" // salida por traslado
	MovementKindTransferIn  MovementKind = "transfer-in"  // llegada de traslado
	MovementKindAdjustment  MovementKind = "adjustment"   // ajuste
	MovementKindReservation MovementKind = "reservation"  // reserva (no mueve físico)
	MovementKindRelease     MovementKind = "release"      // liberación de reserva
	MovementKindInTransit   MovementKind = "in-transit"   // despacho anunciado en destino
)

// StockMovement fila inmutable de auditoría: una por transición de estado de un StockRecord.
// Las cantidades antes/después se capturan en el instante de la mutación, no se recalculan.
// QuantityDelta siempre se refiere al físico, así Σ deltas = físico actual − físico inicial.
type StockMovement struct {
	ID              int64
	StockRecordID   string
	TenantID        string
	ProductID       string
	WarehouseID     string
	Kind            MovementKind
	QuantityDelta   int64
	QuantityBefore  int64
	QuantityAfter   int64
	ReservedBefore  int64
	ReservedAfter   int64
	InTransitBefore int64
	InTransitAfter  int64
	Reference       string // pedido, traslado, nota de ajuste
	UnitCost        *decimal.Decimal
	ActorID         string
	OccurredAt      time.Time
}

// NewStockMovement construye el movimiento a partir del estado antes y después de la transición.
func NewStockMovement(kind MovementKind, before, after StockRecord, reference, actorID string, unitCost *decimal.Decimal, at time.Time) StockMovement {
	return StockMovement{
		StockRecordID:   after.ID,
		TenantID:        after.TenantID,
		ProductID:       after.ProductID,
		WarehouseID:     after.WarehouseID,
		Kind:            kind,
		QuantityDelta:   after.QuantityPhysical - before.QuantityPhysical,
		QuantityBefore:  before.QuantityPhysical,
		QuantityAfter:   after.QuantityPhysical,
		ReservedBefore:  before.QuantityReserved,
		ReservedAfter:   after.QuantityReserved,
		InTransitBefore: before.QuantityInTransit,
		InTransitAfter:  after.QuantityInTransit,
		Reference:       reference,
		UnitCost:        unitCost,
		ActorID:         actorID,
		OccurredAt:      at,
	}
}
