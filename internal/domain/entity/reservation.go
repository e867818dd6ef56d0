package entity

import "time"

// Estados de una reserva de stock asociada a un pedido.
type ReservationStatus string

const (
	ReservationActive   ReservationStatus = "active"
	ReservationReleased ReservationStatus = "released"
	ReservationConsumed ReservationStatus = "consumed"
)

// Reservation reclamo temporal sobre un StockRecord hecho por un pedido.
type Reservation struct {
	ID          string
	TenantID    string
	OrderID     string
	ProductID   string
	WarehouseID string
	Quantity    int64
	Status      ReservationStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r Reservation) Key() StockKey {
	return StockKey{TenantID: r.TenantID, ProductID: r.ProductID, WarehouseID: r.WarehouseID}
}
