package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

// Ref datos de auditoría de un movimiento: documento que lo origina y actor.
type Ref struct {
	Reference string
	ActorID   string
}

// Ledger aplica las operaciones de StockRecord y registra el movimiento correspondiente.
// Cada operación guarda el registro y agrega exactamente un movimiento con los repos de la
// transacción del llamador: si el movimiento falla, el cambio de cantidad se revierte con ella.
// El llamador debe tener el registro bloqueado (WithStockLock).
type Ledger struct {
	now     func() time.Time
	metrics *metrics.Metrics
}

// NewLedger construye el ledger. m puede ser nil.
func NewLedger(m *metrics.Metrics) *Ledger {
	return &Ledger{now: time.Now, metrics: m}
}

// WithClock reemplaza el reloj (tests).
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

func (l *Ledger) Reserve(ctx context.Context, r repository.Repos, rec entity.StockRecord, qty int64, ref Ref) (entity.StockRecord, error) {
	next, err := rec.Reserve(qty)
	if err != nil {
		return rec, l.keyed(rec, err)
	}
	return l.apply(ctx, r, entity.MovementKindReservation, rec, next, ref, nil)
}

// Release devuelve también la cantidad efectivamente liberada. Sin cambio no se registra movimiento.
func (l *Ledger) Release(ctx context.Context, r repository.Repos, rec entity.StockRecord, qty int64, ref Ref) (entity.StockRecord, int64, error) {
	next, released, err := rec.Release(qty)
	if err != nil {
		return rec, 0, l.keyed(rec, err)
	}
	if released == 0 {
		return rec, 0, nil
	}
	next, err = l.apply(ctx, r, entity.MovementKindRelease, rec, next, ref, nil)
	return next, released, err
}

// CommitDecrement consume stock reservado. kind es sale o transfer-out; el costo es el promedio vigente.
func (l *Ledger) CommitDecrement(ctx context.Context, r repository.Repos, rec entity.StockRecord, qty int64, kind entity.MovementKind, ref Ref) (entity.StockRecord, error) {
	next, err := rec.CommitDecrement(qty)
	if err != nil {
		return rec, l.keyed(rec, err)
	}
	cost := rec.AverageUnitCost
	return l.apply(ctx, r, kind, rec, next, ref, &cost)
}

// Receive entrada de mercancía. kind es receipt o transfer-in.
func (l *Ledger) Receive(ctx context.Context, r repository.Repos, rec entity.StockRecord, qty int64, unitCost decimal.Decimal, kind entity.MovementKind, ref Ref) (entity.StockRecord, error) {
	next, err := rec.Receive(qty, unitCost)
	if err != nil {
		return rec, l.keyed(rec, err)
	}
	return l.apply(ctx, r, kind, rec, next, ref, &unitCost)
}

func (l *Ledger) Adjust(ctx context.Context, r repository.Repos, rec entity.StockRecord, delta int64, ref Ref) (entity.StockRecord, error) {
	next, err := rec.Adjust(delta)
	if err != nil {
		return rec, l.keyed(rec, err)
	}
	return l.apply(ctx, r, entity.MovementKindAdjustment, rec, next, ref, nil)
}

func (l *Ledger) MarkInTransit(ctx context.Context, r repository.Repos, rec entity.StockRecord, qty int64, ref Ref) (entity.StockRecord, error) {
	next, err := rec.MarkInTransit(qty)
	if err != nil {
		return rec, l.keyed(rec, err)
	}
	return l.apply(ctx, r, entity.MovementKindInTransit, rec, next, ref, nil)
}

func (l *Ledger) ReceiveInTransit(ctx context.Context, r repository.Repos, rec entity.StockRecord, received, shipped int64, unitCost decimal.Decimal, ref Ref) (entity.StockRecord, error) {
	next, err := rec.ReceiveInTransit(received, shipped, unitCost)
	if err != nil {
		return rec, l.keyed(rec, err)
	}
	return l.apply(ctx, r, entity.MovementKindTransferIn, rec, next, ref, &unitCost)
}

func (l *Ledger) apply(
	ctx context.Context,
	r repository.Repos,
	kind entity.MovementKind,
	before, after entity.StockRecord,
	ref Ref,
	unitCost *decimal.Decimal,
) (entity.StockRecord, error) {
	if before.ID == "" {
		return before, l.keyed(before, &domain.InvariantViolationError{
			Resource: before.Key().String(),
			Detail:   "el registro de stock no existe",
		})
	}
	now := l.now()
	after.UpdatedAt = now
	if err := r.Stocks.Save(ctx, &after); err != nil {
		return before, fmt.Errorf("guardar stock %s: %w", before.Key(), err)
	}
	mov := entity.NewStockMovement(kind, before, after, ref.Reference, ref.ActorID, unitCost, now)
	if err := r.Movements.Append(ctx, &mov); err != nil {
		return before, fmt.Errorf("registrar movimiento %s: %w", kind, err)
	}
	l.metrics.Movement(string(kind))
	return after, nil
}

// keyed adjunta la clave del registro a las violaciones de invariante para poder ponerlo en cuarentena.
func (l *Ledger) keyed(rec entity.StockRecord, err error) error {
	if errors.Is(err, domain.ErrInvariantViolation) {
		return &RecordViolation{Key: rec.Key(), Err: err}
	}
	return err
}

// RecordViolation violación de invariante atribuida a un registro de stock concreto.
type RecordViolation struct {
	Key entity.StockKey
	Err error
}

func (e *RecordViolation) Error() string { return e.Err.Error() }
func (e *RecordViolation) Unwrap() error { return e.Err }

// ViolatedKey devuelve la clave del registro que violó una invariante, si err la lleva.
func ViolatedKey(err error) (entity.StockKey, bool) {
	var rv *RecordViolation
	if errors.As(err, &rv) {
		return rv.Key, true
	}
	return entity.StockKey{}, false
}
