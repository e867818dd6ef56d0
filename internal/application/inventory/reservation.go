package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ReserveLine cantidad a reservar de un producto en una bodega.
type ReserveLine struct {
	ProductID   string
	WarehouseID string
	Quantity    int64
}

// ReservationManager reserva y libera stock por pedido. Todas sus operaciones corren con los
// repos de la transacción del llamador.
type ReservationManager struct {
	ledger *Ledger
	now    func() time.Time
}

func NewReservationManager(ledger *Ledger) *ReservationManager {
	return &ReservationManager{ledger: ledger, now: time.Now}
}

// ReserveForOrder reserva todas las líneas en una sola pasada o ninguna.
// Primero evalúa cada línea contra los registros bloqueados; si alguna no alcanza devuelve
// StockShortageError con todas las líneas faltantes sin haber escrito nada.
func (m *ReservationManager) ReserveForOrder(
	ctx context.Context,
	r repository.Repos,
	tenantID, orderID, actorID string,
	lines []ReserveLine,
) error {
	if len(lines) == 0 {
		return &domain.ValidationError{Field: "lines", Reason: "el pedido no tiene líneas"}
	}
	keys := make([]entity.StockKey, len(lines))
	for i, l := range lines {
		keys[i] = entity.StockKey{TenantID: tenantID, ProductID: l.ProductID, WarehouseID: l.WarehouseID}
	}

	return WithStockLock(ctx, r.Stocks, keys, false, func(locked LockedStock) error {
		// Pasada 1: simular sobre copias para reportar todos los faltantes.
		sim := make(LockedStock, len(locked))
		for k, v := range locked {
			sim[k] = v
		}
		var shortage domain.StockShortageError
		for i, l := range lines {
			next, err := sim[keys[i]].Reserve(l.Quantity)
			if err != nil {
				var ise *domain.InsufficientStockError
				if errors.As(err, &ise) {
					shortage.Lines = append(shortage.Lines, *ise)
					continue
				}
				return m.ledger.keyed(sim[keys[i]], err)
			}
			sim[keys[i]] = next
		}
		if len(shortage.Lines) > 0 {
			return &shortage
		}

		// Pasada 2: aplicar con movimiento y fila de reserva por línea.
		ref := Ref{Reference: orderID, ActorID: actorID}
		for i, l := range lines {
			next, err := m.ledger.Reserve(ctx, r, locked[keys[i]], l.Quantity, ref)
			if err != nil {
				return err
			}
			locked[keys[i]] = next
			now := m.now()
			res := &entity.Reservation{
				ID:          uuid.New().String(),
				TenantID:    tenantID,
				OrderID:     orderID,
				ProductID:   l.ProductID,
				WarehouseID: l.WarehouseID,
				Quantity:    l.Quantity,
				Status:      entity.ReservationActive,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := r.Reservations.Create(ctx, res); err != nil {
				return fmt.Errorf("crear reserva: %w", err)
			}
		}
		return nil
	})
}

// ReleaseForOrder libera las reservas activas del pedido. Idempotente: sin reservas activas no hace nada.
// Devuelve las claves afectadas.
func (m *ReservationManager) ReleaseForOrder(ctx context.Context, r repository.Repos, tenantID, orderID, actorID string) ([]entity.StockKey, error) {
	return m.settle(ctx, r, tenantID, orderID, func(rec entity.StockRecord, res *entity.Reservation) (entity.StockRecord, entity.ReservationStatus, error) {
		next, _, err := m.ledger.Release(ctx, r, rec, res.Quantity, Ref{Reference: orderID, ActorID: actorID})
		return next, entity.ReservationReleased, err
	})
}

// ConsumeForOrder convierte las reservas activas en salida física (movimiento sale por línea).
func (m *ReservationManager) ConsumeForOrder(ctx context.Context, r repository.Repos, tenantID, orderID, actorID string) ([]entity.StockKey, error) {
	return m.settle(ctx, r, tenantID, orderID, func(rec entity.StockRecord, res *entity.Reservation) (entity.StockRecord, entity.ReservationStatus, error) {
		next, err := m.ledger.CommitDecrement(ctx, r, rec, res.Quantity, entity.MovementKindSale, Ref{Reference: orderID, ActorID: actorID})
		return next, entity.ReservationConsumed, err
	})
}

func (m *ReservationManager) settle(
	ctx context.Context,
	r repository.Repos,
	tenantID, orderID string,
	op func(rec entity.StockRecord, res *entity.Reservation) (entity.StockRecord, entity.ReservationStatus, error),
) ([]entity.StockKey, error) {
	active, err := r.Reservations.ListActiveByOrder(ctx, tenantID, orderID)
	if err != nil {
		return nil, fmt.Errorf("listar reservas del pedido %s: %w", orderID, err)
	}
	if len(active) == 0 {
		return nil, nil
	}
	keys := make([]entity.StockKey, len(active))
	for i, res := range active {
		keys[i] = res.Key()
	}
	err = WithStockLock(ctx, r.Stocks, keys, false, func(locked LockedStock) error {
		for _, res := range active {
			next, status, err := op(locked[res.Key()], res)
			if err != nil {
				return err
			}
			locked[res.Key()] = next
			if err := r.Reservations.UpdateStatus(ctx, res.ID, status, m.now()); err != nil {
				return fmt.Errorf("actualizar reserva %s: %w", res.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return SortedKeys(keys), nil
}
