package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const (
	tenantID = "tenant-1"
	actorID  = "user-1"
	whA      = "wh-a"
	whB      = "wh-b"
)

type fixture struct {
	t          *testing.T
	store      *memory.Store
	ledger     *inventory.Ledger
	quarantine *inventory.QuarantineUseCase
	movement   *inventory.RegisterMovementUseCase
	transfers  *inventory.TransferUseCase
	query      *inventory.StockQueryUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(2 * time.Second)
	store.AddWarehouse(entity.Warehouse{ID: whA, TenantID: tenantID, Name: "A", IsPrimary: true})
	store.AddWarehouse(entity.Warehouse{ID: whB, TenantID: tenantID, Name: "B"})
	store.AddProduct(entity.Product{ID: "P", TenantID: tenantID, SKU: "P", Price: decimal.NewFromInt(100)})
	store.AddProduct(entity.Product{ID: "Q", TenantID: tenantID, SKU: "Q", Price: decimal.NewFromInt(10)})

	log := logger.Nop()
	ledger := inventory.NewLedger(nil)
	quarantine := inventory.NewQuarantineUseCase(store, nil, log, nil)
	reader := store.Reader()
	return &fixture{
		t:          t,
		store:      store,
		ledger:     ledger,
		quarantine: quarantine,
		movement:   inventory.NewRegisterMovementUseCase(store, ledger, store.Catalog(), store.Warehouses(), quarantine, nil, log),
		transfers:  inventory.NewTransferUseCase(store, ledger, store.Catalog(), store.Warehouses(), reader.Transfers, quarantine, nil, log),
		query:      inventory.NewStockQueryUseCase(reader.Stocks, reader.Movements, nil, log),
	}
}

func key(productID, warehouseID string) entity.StockKey {
	return entity.StockKey{TenantID: tenantID, ProductID: productID, WarehouseID: warehouseID}
}

func (f *fixture) receive(productID, warehouseID string, qty, cost int64) *entity.StockRecord {
	f.t.Helper()
	c := decimal.NewFromInt(cost)
	rec, err := f.movement.RegisterMovement(context.Background(), inventory.MovementInput{
		TenantID: tenantID, ActorID: actorID, ProductID: productID, WarehouseID: warehouseID,
		Type: inventory.MovementTypeReceipt, Quantity: qty, UnitCost: &c, Reference: "compra",
	})
	require.NoError(f.t, err)
	return rec
}

func (f *fixture) record(productID, warehouseID string) entity.StockRecord {
	f.t.Helper()
	rec, err := f.store.Reader().Stocks.Get(context.Background(), key(productID, warehouseID))
	require.NoError(f.t, err)
	require.NotNil(f.t, rec)
	return *rec
}
