package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

var tracer = otel.Tracer("stock-ledger/billing")

const compensationAttempts = 3

// CreateOrderUseCase transacción de venta: valida, reserva, compromete stock y factura.
// El llamador recibe un pedido comprometido con número de factura o un rechazo itemizado;
// nunca un pedido a medias. El error solo se usa para fallas de infraestructura o invariantes.
type CreateOrderUseCase struct {
	txRunner      inventory.TxRunner
	catalog       CatalogResolver
	warehouseRepo repository.WarehouseRepository
	reservations  *inventory.ReservationManager
	sequencer     *InvoiceSequencer
	quarantine    *inventory.QuarantineUseCase
	cache         inventory.StockViewCache
	log           *logger.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

// NewCreateOrderUseCase construye el caso de uso.
func NewCreateOrderUseCase(
	txRunner inventory.TxRunner,
	catalog CatalogResolver,
	warehouseRepo repository.WarehouseRepository,
	reservations *inventory.ReservationManager,
	sequencer *InvoiceSequencer,
	quarantine *inventory.QuarantineUseCase,
	cache inventory.StockViewCache,
	log *logger.Logger,
	m *metrics.Metrics,
) *CreateOrderUseCase {
	if cache == nil {
		cache = inventory.NoopStockCache{}
	}
	return &CreateOrderUseCase{
		txRunner:      txRunner,
		catalog:       catalog,
		warehouseRepo: warehouseRepo,
		reservations:  reservations,
		sequencer:     sequencer,
		quarantine:    quarantine,
		cache:         cache,
		log:           log.Component("orders"),
		metrics:       m,
		now:           time.Now,
	}
}

// CreateOrder ejecuta Draft -> Validating -> Pending (stock reservado) -> Committed.
// Rechazos de validación no se persisten; un faltante de stock deja el pedido en failed.
func (uc *CreateOrderUseCase) CreateOrder(ctx context.Context, tenantID, actorID string, in dto.CreateOrderRequest) (*dto.OrderOutcome, error) {
	ctx, span := tracer.Start(ctx, "order.create")
	defer span.End()

	now := uc.now()
	order := entity.SalesOrder{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		CustomerID: in.CustomerID,
		Status:     entity.OrderStatusDraft,
		CreatedBy:  actorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("tenant.id", tenantID), attribute.Int("order.lines", len(in.Lines)))
	log := uc.log.Zerolog().With().Str("order_id", order.ID).Str("tenant_id", tenantID).Logger()

	// 1. Validación: sin efectos sobre el stock.
	lines, details, err := uc.validate(ctx, tenantID, order.ID, in)
	if err != nil {
		uc.fail(span, "error", err)
		return nil, err
	}
	if len(details) > 0 {
		uc.metrics.OrderOutcome(dto.RejectionValidationError)
		span.SetAttributes(attribute.String("order.outcome", dto.RejectionValidationError))
		log.Debug().Int("details", len(details)).Msg("pedido rechazado por validación")
		return &dto.OrderOutcome{Rejection: &dto.OrderRejection{Kind: dto.RejectionValidationError, Details: details}}, nil
	}
	order, _ = order.Transition(entity.OrderStatusValidating, now)
	totals := entity.ComputeTotals(lines)
	keys := lineKeys(tenantID, lines)

	// 2. Reserva: pedido pending + reservas en una sola transacción.
	if err := uc.reserve(ctx, order, lines, actorID, totals); err != nil {
		var shortage *domain.StockShortageError
		if errors.As(err, &shortage) {
			rejection := uc.reject(ctx, order, lines, shortage)
			uc.metrics.OrderOutcome(dto.RejectionInsufficientStock)
			span.SetAttributes(attribute.String("order.outcome", dto.RejectionInsufficientStock))
			log.Info().Int("lines_short", len(shortage.Lines)).Msg("pedido rechazado por stock insuficiente")
			return &dto.OrderOutcome{Rejection: rejection}, nil
		}
		uc.quarantine.HandleFailure(ctx, err)
		uc.fail(span, outcomeOf(err), err)
		log.Warn().Err(err).Msg("reserva del pedido no aplicada")
		return nil, err
	}
	uc.invalidate(ctx, keys)

	// 3. Commit: descuento físico, número de factura y totales como una sola unidad.
	number, err := uc.commit(ctx, tenantID, order.ID, actorID, totals)
	if err != nil {
		// La transacción de commit ya se revirtió; liberar reservas y cerrar el pedido como failed.
		if cerr := uc.compensate(ctx, tenantID, order.ID, actorID, err); cerr != nil {
			log.Error().Err(cerr).Msg("no se pudo compensar el pedido; reservas pendientes")
			err = errors.Join(err, cerr)
		}
		if !uc.quarantine.HandleFailure(ctx, err) && errors.Is(err, domain.ErrInvariantViolation) {
			log.Error().Err(err).Msg("violación de invariante al comprometer el pedido")
		}
		uc.invalidate(ctx, keys)
		uc.fail(span, outcomeOf(err), err)
		return nil, err
	}
	uc.invalidate(ctx, keys)

	uc.metrics.OrderOutcome("committed")
	span.SetAttributes(attribute.String("order.outcome", "committed"), attribute.String("order.invoice_number", number))
	log.Info().Str("invoice_number", number).Str("grand_total", totals.Grand.String()).Msg("pedido comprometido")
	return &dto.OrderOutcome{Receipt: &dto.OrderReceipt{
		OrderID:       order.ID,
		InvoiceNumber: number,
		Totals:        toTotalsDTO(totals),
	}}, nil
}

func (uc *CreateOrderUseCase) validate(ctx context.Context, tenantID, orderID string, in dto.CreateOrderRequest) ([]entity.OrderLine, []dto.RejectionDetail, error) {
	_, span := tracer.Start(ctx, "order.validate")
	defer span.End()

	var details []dto.RejectionDetail
	if in.CustomerID == "" {
		details = append(details, dto.RejectionDetail{Field: "customer_id", Reason: "obligatorio"})
	}
	if len(in.Lines) == 0 {
		details = append(details, dto.RejectionDetail{Field: "lines", Reason: "el pedido no tiene líneas"})
	}

	lines := make([]entity.OrderLine, 0, len(in.Lines))
	for i, l := range in.Lines {
		reject := func(field, reason string) {
			details = append(details, dto.RejectionDetail{
				ProductID:   l.ProductID,
				WarehouseID: l.WarehouseID,
				Requested:   l.Quantity,
				Field:       field,
				Reason:      reason,
			})
		}
		if l.Quantity <= 0 {
			reject("quantity", "debe ser mayor que cero")
			continue
		}
		if err := inventory.CheckWarehouse(ctx, uc.warehouseRepo, tenantID, l.WarehouseID); err != nil {
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				return nil, nil, err
			}
			reject(ve.Field, ve.Reason)
			continue
		}
		if l.ProductID == "" {
			reject("product_id", "obligatorio")
			continue
		}
		pt, err := uc.catalog.ResolvePriceAndTax(ctx, tenantID, l.ProductID)
		if err != nil {
			return nil, nil, fmt.Errorf("catálogo: %w", err)
		}
		if pt == nil {
			reject("product_id", "producto inexistente para el tenant")
			continue
		}
		price := pt.UnitPrice
		if l.UnitPriceOverride != nil {
			price = *l.UnitPriceOverride
		}
		if price.IsNegative() {
			reject("unit_price", "no puede ser negativo")
			continue
		}
		discount := l.DiscountPct
		if !validDiscount(discount) {
			reject("discount_pct", "fracción en [0, 1)")
			continue
		}
		tax := pt.TaxRate
		if tax.IsNegative() {
			reject("tax_rate", "tasa de impuesto negativa en catálogo")
			continue
		}
		lines = append(lines, entity.OrderLine{
			ID:          uuid.New().String(),
			OrderID:     orderID,
			LineNumber:  i + 1,
			ProductID:   l.ProductID,
			WarehouseID: l.WarehouseID,
			Quantity:    l.Quantity,
			UnitPrice:   price,
			DiscountPct: discount,
			TaxRate:     tax,
		})
	}
	return lines, details, nil
}

func (uc *CreateOrderUseCase) reserve(ctx context.Context, order entity.SalesOrder, lines []entity.OrderLine, actorID string, totals entity.OrderTotals) error {
	ctx, span := tracer.Start(ctx, "order.reserve")
	defer span.End()

	pending, err := order.Transition(entity.OrderStatusPending, uc.now())
	if err != nil {
		return err
	}
	pending = pending.WithTotals(totals)
	reserveLines := make([]inventory.ReserveLine, len(lines))
	for i, l := range lines {
		reserveLines[i] = inventory.ReserveLine{ProductID: l.ProductID, WarehouseID: l.WarehouseID, Quantity: l.Quantity}
	}
	err = uc.txRunner.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		if err := r.Orders.Create(ctx, &pending, linePtrs(lines)); err != nil {
			return fmt.Errorf("crear pedido: %w", err)
		}
		return uc.reservations.ReserveForOrder(ctx, r, order.TenantID, order.ID, actorID, reserveLines)
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// reject persiste la cabecera como failed en una transacción aparte y arma el rechazo.
func (uc *CreateOrderUseCase) reject(ctx context.Context, order entity.SalesOrder, lines []entity.OrderLine, shortage *domain.StockShortageError) *dto.OrderRejection {
	rejection := &dto.OrderRejection{Kind: dto.RejectionInsufficientStock}
	for _, l := range shortage.Lines {
		rejection.Details = append(rejection.Details, dto.RejectionDetail{
			ProductID:   l.ProductID,
			WarehouseID: l.WarehouseID,
			Requested:   l.Requested,
			Available:   l.Available,
		})
	}
	failed, err := order.Transition(entity.OrderStatusFailed, uc.now())
	if err != nil {
		return rejection
	}
	failed.FailureReason = dto.RejectionInsufficientStock
	failed = failed.WithTotals(entity.ComputeTotals(lines))
	err = uc.txRunner.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		return r.Orders.Create(ctx, &failed, linePtrs(lines))
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("order_id", order.ID).Msg("no se pudo persistir el pedido rechazado")
		return rejection
	}
	rejection.OrderID = order.ID
	return rejection
}

func (uc *CreateOrderUseCase) commit(ctx context.Context, tenantID, orderID, actorID string, totals entity.OrderTotals) (string, error) {
	ctx, span := tracer.Start(ctx, "order.commit")
	defer span.End()

	var number string
	err := uc.txRunner.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		cur, err := r.Orders.GetForUpdate(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("pedido %s: %w", orderID, domain.ErrNotFound)
		}
		// Orden de bloqueo: pedido, registros de stock (ordenados) y por último el contador.
		keys, err := uc.reservations.ConsumeForOrder(ctx, r, tenantID, orderID, actorID)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return &domain.InvariantViolationError{Resource: "pedido " + orderID, Detail: "sin reservas activas para comprometer"}
		}
		number, err = uc.sequencer.Next(ctx, r, tenantID)
		if err != nil {
			return fmt.Errorf("número de factura: %w", err)
		}
		next, err := cur.Transition(entity.OrderStatusCommitted, uc.now())
		if err != nil {
			return err
		}
		next.InvoiceNumber = number
		next = next.WithTotals(totals)
		return r.Orders.Update(ctx, &next)
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return number, nil
}

// compensate libera las reservas del pedido y lo marca failed. Reintenta ante fallas transitorias.
func (uc *CreateOrderUseCase) compensate(ctx context.Context, tenantID, orderID, actorID string, cause error) error {
	ctx, span := tracer.Start(ctx, "order.compensate")
	defer span.End()

	var err error
	for attempt := 1; attempt <= compensationAttempts; attempt++ {
		err = uc.txRunner.Run(ctx, func(ctx context.Context, r repository.Repos) error {
			cur, err := r.Orders.GetForUpdate(ctx, tenantID, orderID)
			if err != nil {
				return err
			}
			if cur == nil || cur.Status != entity.OrderStatusPending {
				return nil
			}
			if _, err := uc.reservations.ReleaseForOrder(ctx, r, tenantID, orderID, actorID); err != nil {
				return err
			}
			next, err := cur.Transition(entity.OrderStatusFailed, uc.now())
			if err != nil {
				return err
			}
			next.FailureReason = failureReason(cause)
			return r.Orders.Update(ctx, &next)
		})
		if err == nil || !domain.IsRetryable(err) {
			break
		}
	}
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (uc *CreateOrderUseCase) invalidate(ctx context.Context, keys []entity.StockKey) {
	if err := uc.cache.Invalidate(ctx, keys...); err != nil {
		uc.log.Warn().Err(err).Msg("no se pudo invalidar la caché de stock")
	}
}

func (uc *CreateOrderUseCase) fail(span trace.Span, outcome string, err error) {
	uc.metrics.OrderOutcome(outcome)
	if outcome == "lock_timeout" {
		uc.metrics.LockTimeout()
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, domain.ErrInvariantViolation):
		return "invariant_violation"
	default:
		return "error"
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, domain.ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, domain.ErrInvariantViolation):
		return "invariant_violation: " + err.Error()
	default:
		return "error: " + err.Error()
	}
}

// validDiscount el descuento es una fracción: 0 <= d < 1.
func validDiscount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThan(decimal.NewFromInt(1))
}

func lineKeys(tenantID string, lines []entity.OrderLine) []entity.StockKey {
	keys := make([]entity.StockKey, len(lines))
	for i, l := range lines {
		keys[i] = l.Key(tenantID)
	}
	return inventory.SortedKeys(keys)
}

func linePtrs(lines []entity.OrderLine) []*entity.OrderLine {
	out := make([]*entity.OrderLine, len(lines))
	for i := range lines {
		out[i] = &lines[i]
	}
	return out
}

func toTotalsDTO(t entity.OrderTotals) dto.OrderTotalsDTO {
	return dto.OrderTotalsDTO{Net: t.Net, Tax: t.Tax, Grand: t.Grand}
}
