package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

// QuarantineUseCase congela registros que violaron una invariante y permite liberarlos tras revisión.
// La cuarentena se escribe en su propia transacción: la que detectó la violación ya se revirtió.
type QuarantineUseCase struct {
	txRunner TxRunner
	cache    StockViewCache
	log      *logger.Logger
	metrics  *metrics.Metrics
}

func NewQuarantineUseCase(txRunner TxRunner, cache StockViewCache, log *logger.Logger, m *metrics.Metrics) *QuarantineUseCase {
	if cache == nil {
		cache = NoopStockCache{}
	}
	return &QuarantineUseCase{txRunner: txRunner, cache: cache, log: log.Component("quarantine"), metrics: m}
}

// HandleFailure pone en cuarentena el registro si err es una violación de invariante atribuible.
// Devuelve true si err era una violación de ese tipo.
func (uc *QuarantineUseCase) HandleFailure(ctx context.Context, err error) bool {
	key, ok := ViolatedKey(err)
	if !ok {
		return false
	}
	uc.log.Error().Err(err).Str("stock_key", key.String()).Msg("violación de invariante de stock")
	if qerr := uc.Quarantine(ctx, key, err.Error()); qerr != nil {
		uc.log.Error().Err(qerr).Str("stock_key", key.String()).Msg("no se pudo poner el registro en cuarentena")
	}
	return true
}

// Quarantine congela el registro. Si ya estaba en cuarentena no hace nada.
func (uc *QuarantineUseCase) Quarantine(ctx context.Context, key entity.StockKey, reason string) error {
	err := uc.txRunner.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		rec, err := r.Stocks.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if rec == nil || rec.Quarantined {
			return nil
		}
		next := rec.Quarantine(reason)
		next.UpdatedAt = time.Now()
		if err := r.Stocks.Save(ctx, &next); err != nil {
			return fmt.Errorf("guardar cuarentena %s: %w", key, err)
		}
		uc.metrics.Quarantine()
		return nil
	})
	if err != nil {
		return err
	}
	_ = uc.cache.Invalidate(ctx, key)
	return nil
}

// Release levanta la cuarentena. Antes valida que el registro cumpla sus invariantes.
func (uc *QuarantineUseCase) Release(ctx context.Context, key entity.StockKey, actorID string) (*entity.StockRecord, error) {
	var out entity.StockRecord
	err := uc.txRunner.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		rec, err := r.Stocks.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if rec == nil {
			return domain.ErrNotFound
		}
		if !rec.Quarantined {
			return fmt.Errorf("registro %s no está en cuarentena: %w", key, domain.ErrConflict)
		}
		next := *rec
		next.Quarantined = false
		next.QuarantineReason = ""
		if err := next.CheckInvariants(); err != nil {
			return err
		}
		next.UpdatedAt = time.Now()
		if err := r.Stocks.Save(ctx, &next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = uc.cache.Invalidate(ctx, key)
	uc.log.Info().Str("stock_key", key.String()).Str("actor_id", actorID).Msg("cuarentena liberada")
	return &out, nil
}
