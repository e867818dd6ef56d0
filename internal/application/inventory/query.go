package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// StockQueryUseCase lecturas sin bloqueo para mostrar y para el colaborador de reportes.
// Nada de lo que devuelve alimenta una decisión de reserva.
type StockQueryUseCase struct {
	stockRepo    repository.StockRepository
	movementRepo repository.StockMovementRepository
	cache        StockViewCache
	log          *logger.Logger
}

func NewStockQueryUseCase(
	stockRepo repository.StockRepository,
	movementRepo repository.StockMovementRepository,
	cache StockViewCache,
	log *logger.Logger,
) *StockQueryUseCase {
	if cache == nil {
		cache = NoopStockCache{}
	}
	return &StockQueryUseCase{stockRepo: stockRepo, movementRepo: movementRepo, cache: cache, log: log.Component("stock-query")}
}

// GetStock disponibilidad de un producto en una bodega, o en todas si warehouseID está vacío.
func (uc *StockQueryUseCase) GetStock(ctx context.Context, tenantID, productID, warehouseID string) ([]dto.StockResponse, error) {
	if productID == "" {
		return nil, &domain.ValidationError{Field: "product_id", Reason: "obligatorio"}
	}
	if warehouseID == "" {
		recs, err := uc.stockRepo.ListByProduct(ctx, tenantID, productID)
		if err != nil {
			return nil, err
		}
		out := make([]dto.StockResponse, 0, len(recs))
		for _, rec := range recs {
			out = append(out, *ToStockResponse(rec))
		}
		return out, nil
	}

	key := entity.StockKey{TenantID: tenantID, ProductID: productID, WarehouseID: warehouseID}
	rec, err := uc.cache.Get(ctx, key)
	if err != nil {
		uc.log.Warn().Err(err).Str("stock_key", key.String()).Msg("caché de stock no disponible")
		rec = nil
	}
	if rec == nil {
		rec, err = uc.stockRepo.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, domain.ErrNotFound
		}
		if err := uc.cache.Set(ctx, rec); err != nil {
			uc.log.Warn().Err(err).Str("stock_key", key.String()).Msg("no se pudo cachear stock")
		}
	}
	return []dto.StockResponse{*ToStockResponse(rec)}, nil
}

// ListMovements kardex de un registro, en orden de ocurrencia.
func (uc *StockQueryUseCase) ListMovements(ctx context.Context, tenantID string, in dto.MovementListRequest) ([]dto.MovementResponse, error) {
	if in.ProductID == "" || in.WarehouseID == "" {
		return nil, &domain.ValidationError{Field: "product_id/warehouse_id", Reason: "obligatorios"}
	}
	in.DefaultPage()
	rec, err := uc.stockRepo.Get(ctx, entity.StockKey{TenantID: tenantID, ProductID: in.ProductID, WarehouseID: in.WarehouseID})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return []dto.MovementResponse{}, nil
	}
	movs, err := uc.movementRepo.ListByRecord(ctx, rec.ID, in.From, in.To, in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovementResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, ToMovementResponse(m))
	}
	return out, nil
}

// Reconcile compara, por registro del producto, Σ quantity_delta del kardex con el físico actual.
// Los registros nacen en cero, así que ambos valores deben coincidir.
func (uc *StockQueryUseCase) Reconcile(ctx context.Context, tenantID, productID string) ([]dto.ReconciliationLine, error) {
	if productID == "" {
		return nil, &domain.ValidationError{Field: "product_id", Reason: "obligatorio"}
	}
	recs, err := uc.stockRepo.ListByProduct(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ReconciliationLine, 0, len(recs))
	for _, rec := range recs {
		sum, err := uc.movementRepo.SumDeltas(ctx, rec.ID)
		if err != nil {
			return nil, fmt.Errorf("sumar movimientos de %s: %w", rec.Key(), err)
		}
		line := dto.ReconciliationLine{
			ProductID:   rec.ProductID,
			WarehouseID: rec.WarehouseID,
			Physical:    rec.QuantityPhysical,
			SumOfDeltas: sum,
			Consistent:  sum == rec.QuantityPhysical,
			Quarantined: rec.Quarantined,
		}
		if !line.Consistent {
			uc.log.Error().Str("stock_key", rec.Key().String()).Int64("physical", rec.QuantityPhysical).
				Int64("sum_of_deltas", sum).Time("checked_at", time.Now()).Msg("kardex descuadrado")
		}
		out = append(out, line)
	}
	return out, nil
}
