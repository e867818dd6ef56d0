package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

var tracer = otel.Tracer("stock-ledger/inventory")

// TransferUseCase traslados entre bodegas del mismo tenant.
// El despacho reserva y descuenta en origen y anuncia el tránsito en destino en una sola transacción;
// la recepción es otra transacción con su propio movimiento, así una entrega parcial queda auditada.
type TransferUseCase struct {
	txRunner      TxRunner
	ledger        *Ledger
	products      ProductReader
	warehouseRepo repository.WarehouseRepository
	transferRepo  repository.TransferRepository
	quarantine    *QuarantineUseCase
	cache         StockViewCache
	log           *logger.Logger
	now           func() time.Time
}

func NewTransferUseCase(
	txRunner TxRunner,
	ledger *Ledger,
	products ProductReader,
	warehouseRepo repository.WarehouseRepository,
	transferRepo repository.TransferRepository,
	quarantine *QuarantineUseCase,
	cache StockViewCache,
	log *logger.Logger,
) *TransferUseCase {
	if cache == nil {
		cache = NoopStockCache{}
	}
	return &TransferUseCase{
		txRunner:      txRunner,
		ledger:        ledger,
		products:      products,
		warehouseRepo: warehouseRepo,
		transferRepo:  transferRepo,
		quarantine:    quarantine,
		cache:         cache,
		log:           log.Component("transfers"),
		now:           time.Now,
	}
}

// Dispatch crea el traslado. Con Immediate la recepción total ocurre en la misma transacción.
func (uc *TransferUseCase) Dispatch(ctx context.Context, tenantID, actorID string, in dto.CreateTransferRequest) (*dto.TransferResponse, error) {
	ctx, span := tracer.Start(ctx, "transfer.dispatch")
	defer span.End()

	if in.Quantity <= 0 {
		return nil, &domain.ValidationError{Field: "quantity", ProductID: in.ProductID, Reason: "debe ser mayor que cero"}
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return nil, &domain.ValidationError{Field: "to_warehouse_id", Reason: "origen y destino deben ser distintos"}
	}
	if err := CheckProduct(ctx, uc.products, tenantID, in.ProductID); err != nil {
		return nil, err
	}
	for _, wh := range []string{in.FromWarehouseID, in.ToWarehouseID} {
		if err := CheckWarehouse(ctx, uc.warehouseRepo, tenantID, wh); err != nil {
			return nil, err
		}
	}

	now := uc.now()
	t := entity.Transfer{
		ID:              uuid.New().String(),
		TenantID:        tenantID,
		ProductID:       in.ProductID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		QuantityShipped: in.Quantity,
		Status:          entity.TransferInTransit,
		CreatedBy:       actorID,
		DispatchedAt:    now,
	}
	span.SetAttributes(attribute.String("transfer.id", t.ID), attribute.Bool("transfer.immediate", in.Immediate))
	ref := Ref{Reference: t.ID, ActorID: actorID}
	src, dst := t.SourceKey(), t.DestinationKey()

	err := uc.txRunner.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		return WithStockLock(ctx, r.Stocks, []entity.StockKey{src, dst}, true, func(locked LockedStock) error {
			reserved, err := uc.ledger.Reserve(ctx, r, locked[src], t.QuantityShipped, ref)
			if err != nil {
				return err
			}
			t.UnitCost = reserved.AverageUnitCost
			if _, err := uc.ledger.CommitDecrement(ctx, r, reserved, t.QuantityShipped, entity.MovementKindTransferOut, ref); err != nil {
				return err
			}
			if in.Immediate {
				if _, err := uc.ledger.Receive(ctx, r, locked[dst], t.QuantityShipped, t.UnitCost, entity.MovementKindTransferIn, ref); err != nil {
					return err
				}
				t.QuantityReceived = t.QuantityShipped
				t.Status = entity.TransferReceived
				t.ReceivedAt = &now
			} else if _, err := uc.ledger.MarkInTransit(ctx, r, locked[dst], t.QuantityShipped, ref); err != nil {
				return err
			}
			if err := r.Transfers.Create(ctx, &t); err != nil {
				return fmt.Errorf("crear traslado: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		uc.fail(ctx, span, err, t.ID)
		return nil, err
	}
	_ = uc.cache.Invalidate(ctx, src, dst)
	uc.log.Info().Str("transfer_id", t.ID).Str("product_id", t.ProductID).Int64("quantity", t.QuantityShipped).
		Bool("immediate", in.Immediate).Msg("traslado despachado")
	return ToTransferResponse(&t), nil
}

// Receive registra la llegada al destino. Una cantidad menor a la despachada deja el faltante
// registrado en el traslado (partially_received) y descarga todo el tránsito.
func (uc *TransferUseCase) Receive(ctx context.Context, tenantID, actorID, transferID string, in dto.ReceiveTransferRequest) (*dto.TransferResponse, error) {
	ctx, span := tracer.Start(ctx, "transfer.receive")
	defer span.End()
	span.SetAttributes(attribute.String("transfer.id", transferID))

	var out entity.Transfer
	err := uc.txRunner.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		t, err := r.Transfers.GetForUpdate(ctx, tenantID, transferID)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.ErrNotFound
		}
		if t.Status != entity.TransferInTransit {
			return fmt.Errorf("traslado %s en estado %s: %w", t.ID, t.Status, domain.ErrConflict)
		}
		if in.QuantityReceived < 0 || in.QuantityReceived > t.QuantityShipped {
			return &domain.ValidationError{Field: "quantity_received", ProductID: t.ProductID,
				Reason: fmt.Sprintf("debe estar entre 0 y %d", t.QuantityShipped)}
		}
		dst := t.DestinationKey()
		return WithStockLock(ctx, r.Stocks, []entity.StockKey{dst}, false, func(locked LockedStock) error {
			ref := Ref{Reference: t.ID, ActorID: actorID}
			if _, err := uc.ledger.ReceiveInTransit(ctx, r, locked[dst], in.QuantityReceived, t.QuantityShipped, t.UnitCost, ref); err != nil {
				return err
			}
			now := uc.now()
			t.QuantityReceived = in.QuantityReceived
			t.ReceivedAt = &now
			t.Status = entity.TransferReceived
			if in.QuantityReceived < t.QuantityShipped {
				t.Status = entity.TransferPartiallyReceived
			}
			if err := r.Transfers.Update(ctx, t); err != nil {
				return fmt.Errorf("actualizar traslado: %w", err)
			}
			out = *t
			return nil
		})
	})
	if err != nil {
		uc.fail(ctx, span, err, transferID)
		return nil, err
	}
	_ = uc.cache.Invalidate(ctx, out.DestinationKey())
	if out.Shortfall() > 0 {
		uc.log.Warn().Str("transfer_id", out.ID).Int64("shortfall", out.Shortfall()).Msg("traslado recibido con faltante")
	}
	return ToTransferResponse(&out), nil
}

// Get devuelve un traslado del tenant.
func (uc *TransferUseCase) Get(ctx context.Context, tenantID, transferID string) (*dto.TransferResponse, error) {
	t, err := uc.transferRepo.GetByID(ctx, tenantID, transferID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	return ToTransferResponse(t), nil
}

func (uc *TransferUseCase) fail(ctx context.Context, span trace.Span, err error, transferID string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if uc.quarantine.HandleFailure(ctx, err) {
		return
	}
	if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrInvalidInput) {
		uc.log.Debug().Err(err).Str("transfer_id", transferID).Msg("traslado rechazado")
		return
	}
	uc.log.Warn().Err(err).Str("transfer_id", transferID).Msg("traslado no aplicado")
}

func ToTransferResponse(t *entity.Transfer) *dto.TransferResponse {
	return &dto.TransferResponse{
		ID:               t.ID,
		ProductID:        t.ProductID,
		FromWarehouseID:  t.FromWarehouseID,
		ToWarehouseID:    t.ToWarehouseID,
		QuantityShipped:  t.QuantityShipped,
		QuantityReceived: t.QuantityReceived,
		Shortfall:        t.Shortfall(),
		UnitCost:         t.UnitCost,
		Status:           string(t.Status),
		DispatchedAt:     t.DispatchedAt,
		ReceivedAt:       t.ReceivedAt,
	}
}
