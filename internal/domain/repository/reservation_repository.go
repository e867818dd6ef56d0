package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ReservationRepository persistencia de reservas por pedido.
type ReservationRepository interface {
	Create(ctx context.Context, reservation *entity.Reservation) error
	ListActiveByOrder(ctx context.Context, tenantID, orderID string) ([]*entity.Reservation, error)
	UpdateStatus(ctx context.Context, id string, status entity.ReservationStatus, at time.Time) error
}
