package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ReceiveFromRequest adapta el request HTTP de entrada al caso de uso RegisterMovement.
func (uc *RegisterMovementUseCase) ReceiveFromRequest(ctx context.Context, tenantID, actorID string, in dto.ReceiptRequest) (*dto.StockResponse, error) {
	cost := in.UnitCost
	rec, err := uc.RegisterMovement(ctx, MovementInput{
		TenantID:    tenantID,
		ActorID:     actorID,
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Type:        MovementTypeReceipt,
		Quantity:    in.Quantity,
		UnitCost:    &cost,
		Reference:   in.Reference,
	})
	if err != nil {
		return nil, err
	}
	return ToStockResponse(rec), nil
}

// AdjustFromRequest adapta el request HTTP de ajuste al caso de uso RegisterMovement.
func (uc *RegisterMovementUseCase) AdjustFromRequest(ctx context.Context, tenantID, actorID string, in dto.AdjustmentRequest) (*dto.StockResponse, error) {
	rec, err := uc.RegisterMovement(ctx, MovementInput{
		TenantID:    tenantID,
		ActorID:     actorID,
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Type:        MovementTypeAdjustment,
		Quantity:    in.Quantity,
		Reference:   in.Reference,
	})
	if err != nil {
		return nil, err
	}
	return ToStockResponse(rec), nil
}

func ToStockResponse(rec *entity.StockRecord) *dto.StockResponse {
	return &dto.StockResponse{
		ProductID:         rec.ProductID,
		WarehouseID:       rec.WarehouseID,
		QuantityPhysical:  rec.QuantityPhysical,
		QuantityReserved:  rec.QuantityReserved,
		QuantityAvailable: rec.Available(),
		QuantityInTransit: rec.QuantityInTransit,
		AverageUnitCost:   rec.AverageUnitCost,
		Quarantined:       rec.Quarantined,
		QuarantineReason:  rec.QuarantineReason,
		UpdatedAt:         rec.UpdatedAt,
	}
}

func ToMovementResponse(m *entity.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:              m.ID,
		Kind:            string(m.Kind),
		QuantityDelta:   m.QuantityDelta,
		QuantityBefore:  m.QuantityBefore,
		QuantityAfter:   m.QuantityAfter,
		ReservedBefore:  m.ReservedBefore,
		ReservedAfter:   m.ReservedAfter,
		InTransitBefore: m.InTransitBefore,
		InTransitAfter:  m.InTransitAfter,
		Reference:       m.Reference,
		UnitCost:        m.UnitCost,
		ActorID:         m.ActorID,
		OccurredAt:      m.OccurredAt,
	}
}
