package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

func TestRegisterMovement_EntradaRecalculaCostoPromedio(t *testing.T) {
	f := newFixture(t)
	f.receive("P", whA, 10, 800)
	rec := f.receive("P", whA, 20, 1000)

	assert.Equal(t, int64(30), rec.QuantityPhysical)
	assert.Equal(t, "933.33", rec.AverageUnitCost.StringFixed(2))

	movs, err := f.query.ListMovements(context.Background(), tenantID, dto.MovementListRequest{ProductID: "P", WarehouseID: whA})
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Equal(t, int64(10), movs[1].QuantityBefore, "quantity_before = quantity_after del movimiento anterior")
	assert.Equal(t, movs[0].QuantityAfter, movs[1].QuantityBefore)
	assert.Equal(t, int64(30), movs[1].QuantityAfter)
	assert.Equal(t, actorID, movs[1].ActorID)
}

func TestRegisterMovement_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cost := decimal.NewFromInt(1)

	cases := []inventory.MovementInput{
		{TenantID: tenantID, ProductID: "P", WarehouseID: whA, Type: inventory.MovementTypeReceipt, Quantity: 0, UnitCost: &cost},
		{TenantID: tenantID, ProductID: "P", WarehouseID: whA, Type: inventory.MovementTypeReceipt, Quantity: 1},
		{TenantID: tenantID, ProductID: "X", WarehouseID: whA, Type: inventory.MovementTypeReceipt, Quantity: 1, UnitCost: &cost},
		{TenantID: tenantID, ProductID: "P", WarehouseID: "wh-z", Type: inventory.MovementTypeReceipt, Quantity: 1, UnitCost: &cost},
		{TenantID: "tenant-2", ProductID: "P", WarehouseID: whA, Type: inventory.MovementTypeReceipt, Quantity: 1, UnitCost: &cost},
		{TenantID: tenantID, ProductID: "P", WarehouseID: whA, Type: inventory.MovementTypeAdjustment, Quantity: 0},
		{TenantID: tenantID, ProductID: "P", WarehouseID: whA, Type: "sale", Quantity: 1},
	}
	for i, in := range cases {
		_, err := f.movement.RegisterMovement(ctx, in)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput), "caso %d: %v", i, err)
	}
}

func TestRegisterMovement_AjusteNegativoNoConsumeReservado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive("P", whA, 10, 5)

	mgr := inventory.NewReservationManager(f.ledger)
	require.NoError(t, f.store.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		return mgr.ReserveForOrder(ctx, r, tenantID, "order-1", actorID, []inventory.ReserveLine{{ProductID: "P", WarehouseID: whA, Quantity: 8}})
	}))

	_, err := f.movement.RegisterMovement(ctx, inventory.MovementInput{
		TenantID: tenantID, ActorID: actorID, ProductID: "P", WarehouseID: whA, Type: inventory.MovementTypeAdjustment, Quantity: -3,
	})
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, int64(2), ise.Available)

	rec, err := f.movement.RegisterMovement(ctx, inventory.MovementInput{
		TenantID: tenantID, ActorID: actorID, ProductID: "P", WarehouseID: whA, Type: inventory.MovementTypeAdjustment, Quantity: -2, Reference: "conteo",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), rec.QuantityPhysical)
	assert.Equal(t, int64(8), rec.QuantityReserved)
}

func TestRegisterMovement_AjusteNegativoSinRegistro(t *testing.T) {
	f := newFixture(t)
	_, err := f.movement.RegisterMovement(context.Background(), inventory.MovementInput{
		TenantID: tenantID, ActorID: actorID, ProductID: "Q", WarehouseID: whB, Type: inventory.MovementTypeAdjustment, Quantity: -1,
	})
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	rec, err := f.store.Reader().Stocks.Get(context.Background(), key("Q", whB))
	require.NoError(t, err)
	assert.Nil(t, rec, "un ajuste rechazado no crea el registro")
}

func TestReconcile_SumaDeDeltasIgualAFisico(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive("P", whA, 10, 5)
	f.receive("P", whB, 4, 5)
	_, err := f.movement.RegisterMovement(ctx, inventory.MovementInput{
		TenantID: tenantID, ActorID: actorID, ProductID: "P", WarehouseID: whA, Type: inventory.MovementTypeAdjustment, Quantity: -3,
	})
	require.NoError(t, err)
	_, err = f.transfers.Dispatch(ctx, tenantID, actorID, dto.CreateTransferRequest{ProductID: "P", FromWarehouseID: whA, ToWarehouseID: whB, Quantity: 2, Immediate: true})
	require.NoError(t, err)

	lines, err := f.query.Reconcile(ctx, tenantID, "P")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.True(t, l.Consistent, "%s: físico %d Σ %d", l.WarehouseID, l.Physical, l.SumOfDeltas)
	}
	assert.Equal(t, int64(5), lines[0].Physical)
	assert.Equal(t, int64(6), lines[1].Physical)
}

func TestGetStock_LecturaParaMostrar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive("P", whA, 10, 5)
	f.receive("P", whB, 1, 5)

	one, err := f.query.GetStock(ctx, tenantID, "P", whA)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, int64(10), one[0].QuantityAvailable)

	all, err := f.query.GetStock(ctx, tenantID, "P", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.query.GetStock(ctx, tenantID, "Q", whA)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestQuarantine_BloqueaMutacionesHastaLiberar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive("P", whA, 10, 5)

	require.NoError(t, f.quarantine.Quarantine(ctx, key("P", whA), "revisión manual"))
	assert.True(t, f.record("P", whA).Quarantined)

	cost := decimal.NewFromInt(5)
	_, err := f.movement.RegisterMovement(ctx, inventory.MovementInput{
		TenantID: tenantID, ActorID: actorID, ProductID: "P", WarehouseID: whA, Type: inventory.MovementTypeReceipt, Quantity: 1, UnitCost: &cost,
	})
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))
	k, ok := inventory.ViolatedKey(err)
	assert.True(t, ok)
	assert.Equal(t, key("P", whA), k)

	rec, err := f.quarantine.Release(ctx, key("P", whA), actorID)
	require.NoError(t, err)
	assert.False(t, rec.Quarantined)

	_, err = f.quarantine.Release(ctx, key("P", whA), actorID)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	f.receive("P", whA, 1, 5)
	assert.Equal(t, int64(11), f.record("P", whA).QuantityPhysical)
}
