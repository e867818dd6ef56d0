package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

// CancelOrderUseCase reversa de un pedido comprometido. No deshace la transacción original:
// es una transacción nueva que reingresa las cantidades con movimientos receipt referenciados
// al pedido, al costo con que salieron. El kardex original queda intacto.
type CancelOrderUseCase struct {
	txRunner   inventory.TxRunner
	ledger     *inventory.Ledger
	quarantine *inventory.QuarantineUseCase
	cache      inventory.StockViewCache
	log        *logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewCancelOrderUseCase(
	txRunner inventory.TxRunner,
	ledger *inventory.Ledger,
	quarantine *inventory.QuarantineUseCase,
	cache inventory.StockViewCache,
	log *logger.Logger,
	m *metrics.Metrics,
) *CancelOrderUseCase {
	if cache == nil {
		cache = inventory.NoopStockCache{}
	}
	return &CancelOrderUseCase{
		txRunner:   txRunner,
		ledger:     ledger,
		quarantine: quarantine,
		cache:      cache,
		log:        log.Component("orders"),
		metrics:    m,
		now:        time.Now,
	}
}

// CancelOrder pasa el pedido de committed a cancelled reingresando el stock de cada línea.
func (uc *CancelOrderUseCase) CancelOrder(ctx context.Context, tenantID, actorID, orderID string) (*dto.OrderResponse, error) {
	ctx, span := tracer.Start(ctx, "order.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	var (
		out   entity.SalesOrder
		lines []*entity.OrderLine
		keys  []entity.StockKey
	)
	err := uc.txRunner.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		order, err := r.Orders.GetForUpdate(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}
		next, err := order.Transition(entity.OrderStatusCancelled, uc.now())
		if err != nil {
			return err
		}
		lines, err = r.Orders.GetLines(ctx, orderID)
		if err != nil {
			return err
		}
		costs, err := saleCosts(ctx, r, tenantID, orderID)
		if err != nil {
			return err
		}
		keys = make([]entity.StockKey, len(lines))
		for i, l := range lines {
			keys[i] = l.Key(tenantID)
		}
		ref := inventory.Ref{Reference: orderID, ActorID: actorID}
		err = inventory.WithStockLock(ctx, r.Stocks, keys, true, func(locked inventory.LockedStock) error {
			for _, l := range lines {
				key := l.Key(tenantID)
				cost, ok := costs[key]
				if !ok {
					cost = locked[key].AverageUnitCost
				}
				rec, err := uc.ledger.Receive(ctx, r, locked[key], l.Quantity, cost, entity.MovementKindReceipt, ref)
				if err != nil {
					return err
				}
				locked[key] = rec
			}
			return nil
		})
		if err != nil {
			return err
		}
		if err := r.Orders.Update(ctx, &next); err != nil {
			return fmt.Errorf("actualizar pedido: %w", err)
		}
		out = next
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.quarantine.HandleFailure(ctx, err)
		return nil, err
	}
	if err := uc.cache.Invalidate(ctx, keys...); err != nil {
		uc.log.Warn().Err(err).Msg("no se pudo invalidar la caché de stock")
	}
	uc.metrics.OrderOutcome("cancelled")
	uc.log.Info().Str("order_id", orderID).Str("actor_id", actorID).Msg("pedido cancelado")
	return ToOrderResponse(&out, lines), nil
}

// saleCosts costo unitario con que salió cada línea, tomado de los movimientos sale del pedido.
func saleCosts(ctx context.Context, r repository.Repos, tenantID, orderID string) (map[entity.StockKey]decimal.Decimal, error) {
	movs, err := r.Movements.ListByReference(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	costs := make(map[entity.StockKey]decimal.Decimal)
	for _, m := range movs {
		if m.Kind != entity.MovementKindSale || m.UnitCost == nil {
			continue
		}
		costs[entity.StockKey{TenantID: m.TenantID, ProductID: m.ProductID, WarehouseID: m.WarehouseID}] = *m.UnitCost
	}
	return costs, nil
}
