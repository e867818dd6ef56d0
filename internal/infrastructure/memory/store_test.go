package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var testKey = entity.StockKey{TenantID: "t1", ProductID: "p1", WarehouseID: "w1"}

func TestStore_RollbackDescartaEscrituras(t *testing.T) {
	s := NewStore(time.Second)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		rec, err := r.Stocks.EnsureForUpdate(ctx, testKey)
		require.NoError(t, err)
		rec.QuantityPhysical = 5
		require.NoError(t, r.Stocks.Save(ctx, rec))
		require.NoError(t, r.Movements.Append(ctx, &entity.StockMovement{StockRecordID: rec.ID, TenantID: "t1", QuantityDelta: 5}))

		// Dentro de la transacción se ve lo preparado.
		got, err := r.Stocks.Get(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, int64(5), got.QuantityPhysical)
		return boom
	})
	require.ErrorIs(t, err, boom)

	rec, err := s.Reader().Stocks.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Empty(t, s.movements)
}

func TestStore_CommitAplicaYLiberaBloqueos(t *testing.T) {
	s := NewStore(time.Second)
	ctx := context.Background()

	require.NoError(t, s.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		rec, err := r.Stocks.EnsureForUpdate(ctx, testKey)
		if err != nil {
			return err
		}
		// Reentrante: la misma transacción vuelve a bloquear sin esperar.
		again, err := r.Stocks.GetForUpdate(ctx, testKey)
		if err != nil {
			return err
		}
		assert.Equal(t, rec.ID, again.ID)
		rec.QuantityPhysical = 3
		return r.Stocks.Save(ctx, rec)
	}))

	require.NoError(t, s.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		rec, err := r.Stocks.GetForUpdate(ctx, testKey)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(3), rec.QuantityPhysical)
		return nil
	}))
}

func TestStore_GuardarSinBloqueoFalla(t *testing.T) {
	s := NewStore(time.Second)
	ctx := context.Background()

	err := s.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		rec := entity.NewStockRecord("id-1", testKey, time.Now())
		return r.Stocks.Save(ctx, &rec)
	})
	assert.True(t, errors.Is(err, domain.ErrConcurrentModification))

	err = s.Reader().Stocks.Save(ctx, &entity.StockRecord{})
	assert.ErrorIs(t, err, errReadOnly)
}

func TestStore_EsperaDeBloqueoAgotada(t *testing.T) {
	s := NewStore(50 * time.Millisecond)
	ctx := context.Background()
	held := make(chan struct{})
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Run(ctx, func(ctx context.Context, r repository.Repos) error {
			if _, err := r.Stocks.EnsureForUpdate(ctx, testKey); err != nil {
				return err
			}
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	start := time.Now()
	err := s.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		_, err := r.Stocks.GetForUpdate(ctx, testKey)
		return err
	})
	var lte *domain.LockTimeoutError
	require.True(t, errors.As(err, &lte), "se esperaba LockTimeoutError, fue %v", err)
	assert.True(t, errors.Is(err, domain.ErrLockTimeout))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	close(done)
	wg.Wait()

	// Liberado el bloqueo, la siguiente transacción avanza.
	require.NoError(t, s.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		_, err := r.Stocks.GetForUpdate(ctx, testKey)
		return err
	}))
}

func TestStore_ConsecutivoSeConfirmaSoloConCommit(t *testing.T) {
	s := NewStore(time.Second)
	ctx := context.Background()
	next := func(fail bool) int64 {
		var v int64
		_ = s.Run(ctx, func(ctx context.Context, r repository.Repos) error {
			var err error
			v, err = r.Sequences.NextValue(ctx, "t1", "")
			if err != nil {
				return err
			}
			if fail {
				return errors.New("rollback")
			}
			return nil
		})
		return v
	}
	assert.Equal(t, int64(1), next(false))
	assert.Equal(t, int64(2), next(true))
	assert.Equal(t, int64(2), next(false))

	s.SetSequencesAvailable(false)
	err := s.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		_, err := r.Sequences.NextValue(ctx, "t1", "")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrSequenceUnavailable)
}

func TestStore_CommitRechazaFacturaDuplicada(t *testing.T) {
	s := NewStore(time.Second)
	ctx := context.Background()
	create := func(id string) error {
		return s.Run(ctx, func(ctx context.Context, r repository.Repos) error {
			return r.Orders.Create(ctx, &entity.SalesOrder{ID: id, TenantID: "t1", InvoiceNumber: "FV-1", Status: entity.OrderStatusCommitted}, nil)
		})
	}
	require.NoError(t, create("o1"))
	err := create("o2")
	var dup *domain.DuplicateInvoiceNumberError
	assert.True(t, errors.As(err, &dup))
}
