package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/billing"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const (
	tenantID = "tenant-1"
	actorID  = "user-1"
	whMain   = "wh-main"
	whNorth  = "wh-north"
)

// hookRunner permite inyectar una mutación fuera de banda antes de la n-ésima unidad de trabajo.
type hookRunner struct {
	inner inventory.TxRunner
	mu    sync.Mutex
	calls int
	hooks map[int]func()
}

func (h *hookRunner) Run(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error {
	h.mu.Lock()
	h.calls++
	hook := h.hooks[h.calls]
	h.mu.Unlock()
	if hook != nil {
		hook()
	}
	return h.inner.Run(ctx, fn)
}

type fixture struct {
	t        *testing.T
	store    *memory.Store
	runner   *hookRunner
	create   *billing.CreateOrderUseCase
	cancel   *billing.CancelOrderUseCase
	query    *billing.OrderQueryUseCase
	movement *inventory.RegisterMovementUseCase
	stock    *inventory.StockQueryUseCase
	seqCfg   billing.SequencerConfig
}

func newFixture(t *testing.T, lockTimeout time.Duration, seqCfg billing.SequencerConfig) *fixture {
	t.Helper()
	store := memory.NewStore(lockTimeout)
	store.AddWarehouse(entity.Warehouse{ID: whMain, TenantID: tenantID, Name: "Principal", IsPrimary: true})
	store.AddWarehouse(entity.Warehouse{ID: whNorth, TenantID: tenantID, Name: "Norte"})
	store.AddWarehouse(entity.Warehouse{ID: "wh-other", TenantID: "tenant-2", Name: "Ajena"})
	for _, p := range []entity.Product{
		{ID: "P", TenantID: tenantID, SKU: "P", Name: "Producto P", Price: decimal.NewFromInt(100), TaxRate: decimal.RequireFromString("0.19")},
		{ID: "Q", TenantID: tenantID, SKU: "Q", Name: "Producto Q", Price: decimal.NewFromInt(10), TaxRate: decimal.RequireFromString("0.05")},
		{ID: "R", TenantID: tenantID, SKU: "R", Name: "Producto R", Price: decimal.NewFromInt(1), TaxRate: decimal.Zero},
	} {
		store.AddProduct(p)
	}

	log := logger.Nop()
	runner := &hookRunner{inner: store, hooks: map[int]func(){}}
	ledger := inventory.NewLedger(nil)
	quarantine := inventory.NewQuarantineUseCase(store, nil, log, nil)
	if seqCfg.Prefix == "" {
		seqCfg.Prefix = "FV"
	}
	seq := billing.NewInvoiceSequencer(seqCfg, log, nil)

	return &fixture{
		t:      t,
		store:  store,
		runner: runner,
		create: billing.NewCreateOrderUseCase(runner, store.Catalog(), store.Warehouses(),
			inventory.NewReservationManager(ledger), seq, quarantine, nil, log, nil),
		cancel:   billing.NewCancelOrderUseCase(store, ledger, quarantine, nil, log, nil),
		query:    billing.NewOrderQueryUseCase(store.Reader().Orders),
		movement: inventory.NewRegisterMovementUseCase(store, ledger, store.Catalog(), store.Warehouses(), quarantine, nil, log),
		stock:    inventory.NewStockQueryUseCase(store.Reader().Stocks, store.Reader().Movements, nil, log),
		seqCfg:   seqCfg,
	}
}

func (f *fixture) receive(productID, warehouseID string, qty int64, cost int64) {
	f.t.Helper()
	c := decimal.NewFromInt(cost)
	_, err := f.movement.RegisterMovement(context.Background(), inventory.MovementInput{
		TenantID: tenantID, ActorID: actorID, ProductID: productID, WarehouseID: warehouseID,
		Type: inventory.MovementTypeReceipt, Quantity: qty, UnitCost: &c, Reference: "seed",
	})
	require.NoError(f.t, err)
}

func (f *fixture) record(productID, warehouseID string) entity.StockRecord {
	f.t.Helper()
	rec, err := f.store.Reader().Stocks.Get(context.Background(), entity.StockKey{TenantID: tenantID, ProductID: productID, WarehouseID: warehouseID})
	require.NoError(f.t, err)
	require.NotNil(f.t, rec)
	return *rec
}

func (f *fixture) order(lines ...dto.CreateOrderLineRequest) dto.CreateOrderRequest {
	return dto.CreateOrderRequest{CustomerID: "cust-1", Lines: lines}
}

func line(productID, warehouseID string, qty int64) dto.CreateOrderLineRequest {
	return dto.CreateOrderLineRequest{ProductID: productID, WarehouseID: warehouseID, Quantity: qty}
}

// reconcile verifica Σ deltas = físico en todos los registros del producto.
func (f *fixture) reconcile(productID string) {
	f.t.Helper()
	lines, err := f.stock.Reconcile(context.Background(), tenantID, productID)
	require.NoError(f.t, err)
	for _, l := range lines {
		require.True(f.t, l.Consistent, "kardex descuadrado en %s@%s: físico %d, Σ %d", l.ProductID, l.WarehouseID, l.Physical, l.SumOfDeltas)
	}
}
