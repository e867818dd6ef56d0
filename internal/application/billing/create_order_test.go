package billing_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-ledger/internal/application/billing"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

func TestCreateOrder_ComprometeStockYFactura(t *testing.T) {
	f := newFixture(t, 2*time.Second, billing.SequencerConfig{})
	f.receive("P", whMain, 10, 60)
	f.receive("Q", whMain, 20, 4)

	q := f.order(line("P", whMain, 2), line("Q", whMain, 3))
	q.Lines[0].DiscountPct = decimal.RequireFromString("0.1")

	out, err := f.create.CreateOrder(context.Background(), tenantID, actorID, q)
	require.NoError(t, err)
	require.True(t, out.Committed())
	assert.Equal(t, "FV-00000001", out.Receipt.InvoiceNumber)
	// P: 2 × 100 × 0.9 = 180, IVA 19% = 34.20; Q: 3 × 10 = 30, impuesto 5% = 1.50
	assert.Equal(t, "210.00", out.Receipt.Totals.Net.StringFixed(2))
	assert.Equal(t, "35.70", out.Receipt.Totals.Tax.StringFixed(2))
	assert.Equal(t, "245.70", out.Receipt.Totals.Grand.StringFixed(2))

	p := f.record("P", whMain)
	assert.Equal(t, int64(8), p.QuantityPhysical)
	assert.Equal(t, int64(0), p.QuantityReserved)

	got, err := f.query.GetOrder(context.Background(), tenantID, out.Receipt.OrderID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.OrderStatusCommitted), got.Status)
	assert.Equal(t, "FV-00000001", got.InvoiceNumber)
	require.Len(t, got.Lines, 2)
	assert.NotNil(t, got.CommittedAt)

	movs, err := f.store.Reader().Movements.ListByReference(context.Background(), tenantID, out.Receipt.OrderID)
	require.NoError(t, err)
	kinds := map[entity.MovementKind]int{}
	for _, m := range movs {
		kinds[m.Kind]++
	}
	assert.Equal(t, 2, kinds[entity.MovementKindReservation])
	assert.Equal(t, 2, kinds[entity.MovementKindSale])
	f.reconcile("P")
	f.reconcile("Q")
}

func TestCreateOrder_RechazoPorValidacionSinEfectos(t *testing.T) {
	f := newFixture(t, 2*time.Second, billing.SequencerConfig{})
	f.receive("P", whMain, 10, 60)

	out, err := f.create.CreateOrder(context.Background(), tenantID, actorID, f.order(
		line("P", whMain, 0),
		line("NOPE", whMain, 1),
		line("P", "wh-other", 1),
	))
	require.NoError(t, err)
	require.NotNil(t, out.Rejection)
	assert.Equal(t, dto.RejectionValidationError, out.Rejection.Kind)
	assert.Len(t, out.Rejection.Details, 3)
	assert.Empty(t, out.Rejection.OrderID)

	p := f.record("P", whMain)
	assert.Equal(t, int64(10), p.QuantityPhysical)
	assert.Equal(t, int64(0), p.QuantityReserved)

	list, err := f.query.ListOrders(context.Background(), tenantID, dto.OrderListRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Items, "los rechazos de validación no se persisten")
}

func TestCreateOrder_StockInsuficienteReportaCadaLinea(t *testing.T) {
	f := newFixture(t, 2*time.Second, billing.SequencerConfig{})
	f.receive("P", whMain, 3, 60)
	f.receive("Q", whMain, 5, 4)

	out, err := f.create.CreateOrder(context.Background(), tenantID, actorID, f.order(
		line("P", whMain, 4),
		line("Q", whMain, 5),
		line("R", whMain, 1), // sin registro: disponible 0
	))
	require.NoError(t, err)
	require.NotNil(t, out.Rejection)
	assert.Equal(t, dto.RejectionInsufficientStock, out.Rejection.Kind)
	require.Len(t, out.Rejection.Details, 2)
	assert.Equal(t, dto.RejectionDetail{ProductID: "P", WarehouseID: whMain, Requested: 4, Available: 3}, out.Rejection.Details[0])
	assert.Equal(t, dto.RejectionDetail{ProductID: "R", WarehouseID: whMain, Requested: 1, Available: 0}, out.Rejection.Details[1])

	// Ninguna reserva parcial queda viva.
	assert.Equal(t, int64(0), f.record("Q", whMain).QuantityReserved)
	assert.Equal(t, int64(0), f.record("P", whMain).QuantityReserved)

	got, err := f.query.GetOrder(context.Background(), tenantID, out.Rejection.OrderID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.OrderStatusFailed), got.Status)
	assert.Equal(t, dto.RejectionInsufficientStock, got.FailureReason)
	assert.Empty(t, got.InvoiceNumber)
}

func TestCreateOrder_EscenarioAyBConcurrentes(t *testing.T) {
	f := newFixture(t, 5*time.Second, billing.SequencerConfig{})
	f.receive("P", whMain, 10, 60)

	var (
		outs [2]*dto.OrderOutcome
		g    errgroup.Group
	)
	for i, qty := range []int64{7, 5} {
		i, qty := i, qty
		g.Go(func() error {
			out, err := f.create.CreateOrder(context.Background(), tenantID, actorID, f.order(line("P", whMain, qty)))
			outs[i] = out
			return err
		})
	}
	require.NoError(t, g.Wait())

	a, b := outs[0], outs[1]
	require.NotEqual(t, a.Committed(), b.Committed(), "exactamente uno debe comprometerse")
	p := f.record("P", whMain)
	if a.Committed() {
		assert.Equal(t, int64(3), p.QuantityPhysical)
		assert.Equal(t, dto.RejectionDetail{ProductID: "P", WarehouseID: whMain, Requested: 5, Available: 3}, b.Rejection.Details[0])
	} else {
		assert.Equal(t, int64(5), p.QuantityPhysical)
		assert.Equal(t, dto.RejectionDetail{ProductID: "P", WarehouseID: whMain, Requested: 7, Available: 5}, a.Rejection.Details[0])
	}
	assert.Equal(t, int64(0), p.QuantityReserved)
	f.reconcile("P")
}

func TestCreateOrder_SinSobreventaConcurrente(t *testing.T) {
	const (
		callers  = 60
		perOrder = 3
		initial  = 100
	)
	f := newFixture(t, 10*time.Second, billing.SequencerConfig{})
	f.receive("P", whMain, initial, 60)

	var (
		mu        sync.Mutex
		committed int
		rejected  int
		g         errgroup.Group
	)
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			out, err := f.create.CreateOrder(context.Background(), tenantID, actorID, f.order(line("P", whMain, perOrder)))
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if out.Committed() {
				committed++
			} else if out.Rejection.Kind == dto.RejectionInsufficientStock {
				rejected++
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, initial/perOrder, committed)
	assert.Equal(t, callers-initial/perOrder, rejected)
	p := f.record("P", whMain)
	assert.Equal(t, int64(initial-committed*perOrder), p.QuantityPhysical)
	assert.GreaterOrEqual(t, p.QuantityPhysical, int64(0))
	assert.Equal(t, int64(0), p.QuantityReserved)
	f.reconcile("P")
}

func TestCreateOrder_FacturasUnicasSinHuecosBajoConcurrencia(t *testing.T) {
	const callers = 50
	f := newFixture(t, 10*time.Second, billing.SequencerConfig{})
	f.receive("P", whMain, 500, 60)
	f.receive("Q", whNorth, 500, 4)

	numbers := make([]string, callers)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		i := i
		g.Go(func() error {
			req := f.order(line("P", whMain, 1))
			if i%2 == 0 {
				req = f.order(line("Q", whNorth, 2), line("P", whMain, 1))
			}
			out, err := f.create.CreateOrder(context.Background(), tenantID, actorID, req)
			if err != nil {
				return err
			}
			if !out.Committed() {
				return fmt.Errorf("pedido %d rechazado: %+v", i, out.Rejection)
			}
			numbers[i] = out.Receipt.InvoiceNumber
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[string]bool, callers)
	for _, n := range numbers {
		require.False(t, seen[n], "número duplicado %s", n)
		seen[n] = true
	}
	for i := 1; i <= callers; i++ {
		assert.True(t, seen[fmt.Sprintf("FV-%08d", i)], "falta FV-%08d", i)
	}
}

func TestCreateOrder_FallaEnCommitRevierteTodasLasLineas(t *testing.T) {
	f := newFixture(t, 2*time.Second, billing.SequencerConfig{})
	f.receive("P", whMain, 10, 60)
	f.receive("Q", whMain, 10, 4)
	f.receive("R", whMain, 10, 1)

	// Antes del commit, un actor fuera de banda consume lo reservado de R.
	f.runner.hooks[2] = func() {
		err := f.store.Run(context.Background(), func(ctx context.Context, r repository.Repos) error {
			rec, err := r.Stocks.GetForUpdate(ctx, entity.StockKey{TenantID: tenantID, ProductID: "R", WarehouseID: whMain})
			if err != nil {
				return err
			}
			rec.QuantityReserved = 0
			return r.Stocks.Save(ctx, rec)
		})
		require.NoError(t, err)
	}

	out, err := f.create.CreateOrder(context.Background(), tenantID, actorID, f.order(
		line("P", whMain, 2), line("Q", whMain, 3), line("R", whMain, 4),
	))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))
	assert.False(t, domain.IsRetryable(err))

	for _, id := range []string{"P", "Q", "R"} {
		rec := f.record(id, whMain)
		assert.Equal(t, int64(10), rec.QuantityPhysical, "producto %s", id)
		assert.Equal(t, int64(0), rec.QuantityReserved, "producto %s", id)
	}
	assert.True(t, f.record("R", whMain).Quarantined, "el registro que violó la invariante queda en cuarentena")
	assert.False(t, f.record("P", whMain).Quarantined)

	list, err := f.query.ListOrders(context.Background(), tenantID, dto.OrderListRequest{Status: string(entity.OrderStatusFailed)})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Contains(t, list.Items[0].FailureReason, "invariant_violation")
	assert.Empty(t, list.Items[0].InvoiceNumber)

	// Un registro en cuarentena rechaza cualquier mutación posterior.
	out, err = f.create.CreateOrder(context.Background(), tenantID, actorID, f.order(line("R", whMain, 1)))
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))
}

func TestCreateOrder_TimeoutDeBloqueoEsReintentable(t *testing.T) {
	f := newFixture(t, 50*time.Millisecond, billing.SequencerConfig{})
	f.receive("P", whMain, 10, 60)

	locked := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = f.store.Run(context.Background(), func(ctx context.Context, r repository.Repos) error {
			if _, err := r.Stocks.GetForUpdate(ctx, entity.StockKey{TenantID: tenantID, ProductID: "P", WarehouseID: whMain}); err != nil {
				return err
			}
			close(locked)
			<-done
			return nil
		})
	}()
	<-locked

	out, err := f.create.CreateOrder(context.Background(), tenantID, actorID, f.order(line("P", whMain, 1)))
	close(done)
	require.Error(t, err)
	assert.Nil(t, out)
	var lte *domain.LockTimeoutError
	assert.True(t, errors.As(err, &lte))
	assert.True(t, domain.IsRetryable(err))

	list, err := f.query.ListOrders(context.Background(), tenantID, dto.OrderListRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	// Reintentar la llamada completa funciona una vez liberado el bloqueo.
	out, err = f.create.CreateOrder(context.Background(), tenantID, actorID, f.order(line("P", whMain, 1)))
	require.NoError(t, err)
	assert.True(t, out.Committed())
}

func TestCreateOrder_NumeracionDegradada(t *testing.T) {
	f := newFixture(t, 2*time.Second, billing.SequencerConfig{FallbackEnabled: true, FallbackRetries: 3})
	f.receive("P", whMain, 10, 60)
	f.store.SetSequencesAvailable(false)

	out, err := f.create.CreateOrder(context.Background(), tenantID, actorID, f.order(line("P", whMain, 1)))
	require.NoError(t, err)
	require.True(t, out.Committed())
	assert.Regexp(t, regexp.MustCompile(`^FV-\d{14}-[0-9a-f]{6}$`), out.Receipt.InvoiceNumber)
}

func TestCreateOrder_SinContadorNiDegradadoFallaYLibera(t *testing.T) {
	f := newFixture(t, 2*time.Second, billing.SequencerConfig{FallbackEnabled: false})
	f.receive("P", whMain, 10, 60)
	f.store.SetSequencesAvailable(false)

	out, err := f.create.CreateOrder(context.Background(), tenantID, actorID, f.order(line("P", whMain, 4)))
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, domain.ErrSequenceUnavailable))

	p := f.record("P", whMain)
	assert.Equal(t, int64(10), p.QuantityPhysical)
	assert.Equal(t, int64(0), p.QuantityReserved)
	f.reconcile("P")
}

func TestCreateOrder_CuarentenaAntesDelCommitLiberaReservas(t *testing.T) {
	f := newFixture(t, 2*time.Second, billing.SequencerConfig{})
	f.receive("P", whMain, 10, 60)
	f.receive("Q", whMain, 10, 4)

	// Entre la reserva y el commit otro proceso congela P.
	f.runner.hooks[2] = func() {
		err := f.store.Run(context.Background(), func(ctx context.Context, r repository.Repos) error {
			rec, err := r.Stocks.GetForUpdate(ctx, entity.StockKey{TenantID: tenantID, ProductID: "P", WarehouseID: whMain})
			if err != nil {
				return err
			}
			frozen := rec.Quarantine("conteo físico en curso")
			return r.Stocks.Save(ctx, &frozen)
		})
		require.NoError(t, err)
	}

	out, err := f.create.CreateOrder(context.Background(), tenantID, actorID, f.order(
		line("P", whMain, 4), line("Q", whMain, 2),
	))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	p := f.record("P", whMain)
	assert.True(t, p.Quarantined)
	assert.Equal(t, int64(10), p.QuantityPhysical)
	assert.Equal(t, int64(0), p.QuantityReserved, "la reserva sobre el registro congelado se libera")
	q := f.record("Q", whMain)
	assert.Equal(t, int64(10), q.QuantityPhysical)
	assert.Equal(t, int64(0), q.QuantityReserved)

	list, err := f.query.ListOrders(context.Background(), tenantID, dto.OrderListRequest{Status: string(entity.OrderStatusPending)})
	require.NoError(t, err)
	assert.Empty(t, list.Items, "ningún pedido queda pendiente")
	list, err = f.query.ListOrders(context.Background(), tenantID, dto.OrderListRequest{Status: string(entity.OrderStatusFailed)})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	f.reconcile("P")
	f.reconcile("Q")
}

func TestCreateOrder_DescuentoEsFraccion(t *testing.T) {
	f := newFixture(t, 2*time.Second, billing.SequencerConfig{})
	f.receive("P", whMain, 10, 60)

	q := f.order(line("P", whMain, 1))
	q.Lines[0].DiscountPct = decimal.RequireFromString("0.9")
	out, err := f.create.CreateOrder(context.Background(), tenantID, actorID, q)
	require.NoError(t, err)
	require.True(t, out.Committed())
	assert.Equal(t, "10.00", out.Receipt.Totals.Net.StringFixed(2))

	for _, d := range []string{"1", "1.1", "10", "-0.1"} {
		q := f.order(line("P", whMain, 1))
		q.Lines[0].DiscountPct = decimal.RequireFromString(d)
		out, err := f.create.CreateOrder(context.Background(), tenantID, actorID, q)
		require.NoError(t, err, d)
		require.NotNil(t, out.Rejection, d)
		assert.Equal(t, dto.RejectionValidationError, out.Rejection.Kind, d)
		require.Len(t, out.Rejection.Details, 1, d)
		assert.Equal(t, "discount_pct", out.Rejection.Details[0].Field, d)
	}
	assert.Equal(t, int64(9), f.record("P", whMain).QuantityPhysical)
}

func TestCreateOrder_TasaDeImpuestoDelCatalogoSeUsaTalCual(t *testing.T) {
	f := newFixture(t, 2*time.Second, billing.SequencerConfig{})
	f.store.AddProduct(entity.Product{ID: "T", TenantID: tenantID, SKU: "T", Price: decimal.NewFromInt(10), TaxRate: decimal.NewFromInt(5)})
	f.receive("T", whMain, 5, 1)

	out, err := f.create.CreateOrder(context.Background(), tenantID, actorID, f.order(line("T", whMain, 1)))
	require.NoError(t, err)
	require.True(t, out.Committed())
	assert.Equal(t, "10.00", out.Receipt.Totals.Net.StringFixed(2))
	assert.Equal(t, "50.00", out.Receipt.Totals.Tax.StringFixed(2), "la tasa no se reinterpreta como porcentaje")
}
