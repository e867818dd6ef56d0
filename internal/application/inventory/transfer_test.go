package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestTransfer_DespachoYRecepcionParcial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive("P", whA, 10, 50)

	tr, err := f.transfers.Dispatch(ctx, tenantID, actorID, dto.CreateTransferRequest{
		ProductID: "P", FromWarehouseID: whA, ToWarehouseID: whB, Quantity: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.TransferInTransit), tr.Status)
	assert.Equal(t, "50", tr.UnitCost.String())

	src := f.record("P", whA)
	assert.Equal(t, int64(4), src.QuantityPhysical)
	assert.Equal(t, int64(0), src.QuantityReserved)
	dst := f.record("P", whB)
	assert.Equal(t, int64(0), dst.QuantityPhysical)
	assert.Equal(t, int64(6), dst.QuantityInTransit)

	got, err := f.transfers.Receive(ctx, tenantID, actorID, tr.ID, dto.ReceiveTransferRequest{QuantityReceived: 5})
	require.NoError(t, err)
	assert.Equal(t, string(entity.TransferPartiallyReceived), got.Status)
	assert.Equal(t, int64(1), got.Shortfall)

	dst = f.record("P", whB)
	assert.Equal(t, int64(5), dst.QuantityPhysical)
	assert.Equal(t, int64(0), dst.QuantityInTransit)
	assert.Equal(t, "50.00", dst.AverageUnitCost.StringFixed(2))

	// Despacho y recepción son movimientos separados con la misma referencia.
	movs, err := f.store.Reader().Movements.ListByReference(ctx, tenantID, tr.ID)
	require.NoError(t, err)
	var kinds []entity.MovementKind
	for _, m := range movs {
		kinds = append(kinds, m.Kind)
	}
	assert.Equal(t, []entity.MovementKind{
		entity.MovementKindReservation, entity.MovementKindTransferOut, entity.MovementKindInTransit, entity.MovementKindTransferIn,
	}, kinds)

	_, err = f.transfers.Receive(ctx, tenantID, actorID, tr.ID, dto.ReceiveTransferRequest{QuantityReceived: 1})
	assert.True(t, errors.Is(err, domain.ErrConflict), "un traslado solo se recibe una vez")
}

func TestTransfer_Inmediato(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive("P", whA, 10, 50)
	f.receive("P", whB, 10, 80)

	tr, err := f.transfers.Dispatch(ctx, tenantID, actorID, dto.CreateTransferRequest{
		ProductID: "P", FromWarehouseID: whA, ToWarehouseID: whB, Quantity: 10, Immediate: true,
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.TransferReceived), tr.Status)
	assert.Equal(t, int64(0), tr.Shortfall)

	assert.Equal(t, int64(0), f.record("P", whA).QuantityPhysical)
	dst := f.record("P", whB)
	assert.Equal(t, int64(20), dst.QuantityPhysical)
	assert.Equal(t, "65.00", dst.AverageUnitCost.StringFixed(2))
}

func TestTransfer_StockInsuficienteNoDejaRastro(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive("P", whA, 3, 50)

	_, err := f.transfers.Dispatch(ctx, tenantID, actorID, dto.CreateTransferRequest{
		ProductID: "P", FromWarehouseID: whA, ToWarehouseID: whB, Quantity: 4,
	})
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, int64(3), ise.Available)

	assert.Equal(t, int64(3), f.record("P", whA).QuantityPhysical)
	rec, err := f.store.Reader().Stocks.Get(ctx, key("P", whB))
	require.NoError(t, err)
	assert.Nil(t, rec, "el registro destino creado en la transacción se revierte")
}

func TestTransfer_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, in := range []dto.CreateTransferRequest{
		{ProductID: "P", FromWarehouseID: whA, ToWarehouseID: whA, Quantity: 1},
		{ProductID: "P", FromWarehouseID: whA, ToWarehouseID: whB, Quantity: 0},
		{ProductID: "P", FromWarehouseID: whA, ToWarehouseID: "wh-z", Quantity: 1},
		{ProductID: "X", FromWarehouseID: whA, ToWarehouseID: whB, Quantity: 1},
	} {
		_, err := f.transfers.Dispatch(ctx, tenantID, actorID, in)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput), "%+v: %v", in, err)
	}

	_, err := f.transfers.Receive(ctx, tenantID, actorID, "no-existe", dto.ReceiveTransferRequest{QuantityReceived: 1})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
