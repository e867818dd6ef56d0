package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

// StockKey identifica un StockRecord: (tenant, producto, bodega).
type StockKey struct {
	TenantID    string
	ProductID   string
	WarehouseID string
}

func (k StockKey) String() string {
	return fmt.Sprintf("%s/%s@%s", k.TenantID, k.ProductID, k.WarehouseID)
}

// Less orden total usado para adquirir bloqueos siempre en la misma secuencia.
func (k StockKey) Less(o StockKey) bool {
	if k.TenantID != o.TenantID {
		return k.TenantID < o.TenantID
	}
	if k.ProductID != o.ProductID {
		return k.ProductID < o.ProductID
	}
	return k.WarehouseID < o.WarehouseID
}

// StockRecord estado autoritativo de cantidades de un producto en una bodega.
// Invariante: 0 <= QuantityReserved <= QuantityPhysical, QuantityInTransit >= 0.
// Las operaciones son de valor: devuelven un registro nuevo y no mutan el receptor.
type StockRecord struct {
	ID                string
	TenantID          string
	ProductID         string
	WarehouseID       string
	QuantityPhysical  int64
	QuantityReserved  int64
	QuantityInTransit int64
	AverageUnitCost   decimal.Decimal
	Quarantined       bool
	QuarantineReason  string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewStockRecord registro vacío creado de forma perezosa en la primera entrada.
func NewStockRecord(id string, key StockKey, now time.Time) StockRecord {
	return StockRecord{
		ID:              id,
		TenantID:        key.TenantID,
		ProductID:       key.ProductID,
		WarehouseID:     key.WarehouseID,
		AverageUnitCost: decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s StockRecord) Key() StockKey {
	return StockKey{TenantID: s.TenantID, ProductID: s.ProductID, WarehouseID: s.WarehouseID}
}

// Available cantidad física no reservada.
func (s StockRecord) Available() int64 {
	return s.QuantityPhysical - s.QuantityReserved
}

// CheckInvariants valida 0 <= reservado <= físico y en tránsito >= 0.
func (s StockRecord) CheckInvariants() error {
	switch {
	case s.QuantityPhysical < 0:
		return s.violation(fmt.Sprintf("físico negativo (%d)", s.QuantityPhysical))
	case s.QuantityReserved < 0:
		return s.violation(fmt.Sprintf("reservado negativo (%d)", s.QuantityReserved))
	case s.QuantityReserved > s.QuantityPhysical:
		return s.violation(fmt.Sprintf("reservado %d > físico %d", s.QuantityReserved, s.QuantityPhysical))
	case s.QuantityInTransit < 0:
		return s.violation(fmt.Sprintf("en tránsito negativo (%d)", s.QuantityInTransit))
	}
	return nil
}

// Reserve aumenta lo reservado si qty <= disponible. No toca el físico.
func (s StockRecord) Reserve(qty int64) (StockRecord, error) {
	if err := s.guard(qty); err != nil {
		return s, err
	}
	if qty > s.Available() {
		return s, s.shortage(qty)
	}
	next := s
	next.QuantityReserved += qty
	return next, next.CheckInvariants()
}

// Release libera min(qty, reservado). Liberar más de lo reservado no es error: se recorta a cero.
// Devuelve la cantidad efectivamente liberada. Se permite en cuarentena: solo baja lo reservado.
func (s StockRecord) Release(qty int64) (StockRecord, int64, error) {
	released := min(qty, s.QuantityReserved)
	if released <= 0 {
		return s, 0, nil
	}
	next := s
	next.QuantityReserved -= released
	if s.Quarantined {
		return next, released, nil
	}
	return next, released, next.CheckInvariants()
}

// CommitDecrement consume stock reservado: baja físico y reservado en qty.
func (s StockRecord) CommitDecrement(qty int64) (StockRecord, error) {
	if err := s.guard(qty); err != nil {
		return s, err
	}
	if qty > s.QuantityReserved {
		return s, s.violation(fmt.Sprintf("consumo de %d supera lo reservado (%d)", qty, s.QuantityReserved))
	}
	next := s
	next.QuantityPhysical -= qty
	next.QuantityReserved -= qty
	return next, next.CheckInvariants()
}

// Receive suma físico y recalcula el costo promedio ponderado móvil.
func (s StockRecord) Receive(qty int64, unitCost decimal.Decimal) (StockRecord, error) {
	if err := s.guard(qty); err != nil {
		return s, err
	}
	if unitCost.IsNegative() {
		return s, &domain.ValidationError{Field: "unit_cost", ProductID: s.ProductID, Reason: "no puede ser negativo"}
	}
	next := s
	next.AverageUnitCost = inventory.WeightedAverage(s.QuantityPhysical, s.AverageUnitCost, qty, unitCost)
	next.QuantityPhysical += qty
	return next, next.CheckInvariants()
}

// Adjust corrección manual (conteo físico). Un ajuste negativo no puede consumir stock reservado.
func (s StockRecord) Adjust(delta int64) (StockRecord, error) {
	if s.Quarantined {
		return s, s.quarantined()
	}
	if delta == 0 {
		return s, &domain.ValidationError{Field: "quantity", ProductID: s.ProductID, Reason: "el ajuste no puede ser cero"}
	}
	if delta < 0 && -delta > s.Available() {
		return s, s.shortage(-delta)
	}
	next := s
	next.QuantityPhysical += delta
	return next, next.CheckInvariants()
}

// MarkInTransit registra en destino unidades despachadas que aún no llegan.
func (s StockRecord) MarkInTransit(qty int64) (StockRecord, error) {
	if err := s.guard(qty); err != nil {
		return s, err
	}
	next := s
	next.QuantityInTransit += qty
	return next, next.CheckInvariants()
}

// ReceiveInTransit recibe en destino: suma lo recibido al físico y descarga todo lo despachado
// del tránsito. El faltante (shipped - received) queda registrado en el traslado.
func (s StockRecord) ReceiveInTransit(received, shipped int64, unitCost decimal.Decimal) (StockRecord, error) {
	if err := s.guard(shipped); err != nil {
		return s, err
	}
	if received < 0 || received > shipped {
		return s, &domain.ValidationError{Field: "quantity_received", ProductID: s.ProductID,
			Reason: fmt.Sprintf("debe estar entre 0 y %d", shipped)}
	}
	if shipped > s.QuantityInTransit {
		return s, s.violation(fmt.Sprintf("recepción de %d supera lo en tránsito (%d)", shipped, s.QuantityInTransit))
	}
	next := s
	if received > 0 {
		next.AverageUnitCost = inventory.WeightedAverage(s.QuantityPhysical, s.AverageUnitCost, received, unitCost)
	}
	next.QuantityPhysical += received
	next.QuantityInTransit -= shipped
	return next, next.CheckInvariants()
}

// Quarantine congela el registro hasta que un operador lo revise.
func (s StockRecord) Quarantine(reason string) StockRecord {
	next := s
	next.Quarantined = true
	next.QuarantineReason = reason
	return next
}

func (s StockRecord) guard(qty int64) error {
	if s.Quarantined {
		return s.quarantined()
	}
	if qty <= 0 {
		return &domain.ValidationError{Field: "quantity", ProductID: s.ProductID, Reason: "debe ser mayor que cero"}
	}
	return nil
}

func (s StockRecord) shortage(requested int64) error {
	return &domain.InsufficientStockError{
		ProductID:   s.ProductID,
		WarehouseID: s.WarehouseID,
		Requested:   requested,
		Available:   s.Available(),
	}
}

func (s StockRecord) violation(detail string) error {
	return &domain.InvariantViolationError{Resource: s.Key().String(), Detail: detail}
}

func (s StockRecord) quarantined() error {
	return s.violation("registro en cuarentena: " + s.QuarantineReason)
}
