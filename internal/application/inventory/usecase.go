package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Tipos de movimiento manual admitidos por RegisterMovement.
const (
	MovementTypeReceipt    = "receipt"
	MovementTypeAdjustment = "adjustment"
)

// RegisterMovementUseCase registra entradas y ajustes de inventario de forma transaccional:
// bloquea el registro (SELECT FOR UPDATE o equivalente), aplica la operación, guarda el movimiento
// y hace Commit o Rollback.
type RegisterMovementUseCase struct {
	txRunner      TxRunner
	ledger        *Ledger
	products      ProductReader
	warehouseRepo repository.WarehouseRepository
	quarantine    *QuarantineUseCase
	cache         StockViewCache
	log           *logger.Logger
}

// NewRegisterMovementUseCase construye el caso de uso.
func NewRegisterMovementUseCase(
	txRunner TxRunner,
	ledger *Ledger,
	products ProductReader,
	warehouseRepo repository.WarehouseRepository,
	quarantine *QuarantineUseCase,
	cache StockViewCache,
	log *logger.Logger,
) *RegisterMovementUseCase {
	if cache == nil {
		cache = NoopStockCache{}
	}
	return &RegisterMovementUseCase{
		txRunner:      txRunner,
		ledger:        ledger,
		products:      products,
		warehouseRepo: warehouseRepo,
		quarantine:    quarantine,
		cache:         cache,
		log:           log.Component("inventory"),
	}
}

// MovementInput entrada para registrar un movimiento manual.
// Receipt: Quantity > 0 y UnitCost obligatorio. Adjustment: Quantity con signo, distinto de cero.
type MovementInput struct {
	TenantID    string
	ActorID     string
	ProductID   string
	WarehouseID string
	Type        string
	Quantity    int64
	UnitCost    *decimal.Decimal
	Reference   string
}

// RegisterMovement valida la entrada, aplica el movimiento y devuelve el registro resultante.
func (uc *RegisterMovementUseCase) RegisterMovement(ctx context.Context, input MovementInput) (*entity.StockRecord, error) {
	switch input.Type {
	case MovementTypeReceipt:
		if input.Quantity <= 0 {
			return nil, &domain.ValidationError{Field: "quantity", ProductID: input.ProductID, Reason: "debe ser mayor que cero"}
		}
		if input.UnitCost == nil || input.UnitCost.IsNegative() {
			return nil, &domain.ValidationError{Field: "unit_cost", ProductID: input.ProductID, Reason: "obligatorio y no negativo"}
		}
	case MovementTypeAdjustment:
		if input.Quantity == 0 {
			return nil, &domain.ValidationError{Field: "quantity", ProductID: input.ProductID, Reason: "el ajuste no puede ser cero"}
		}
	default:
		return nil, &domain.ValidationError{Field: "type", Reason: fmt.Sprintf("tipo de movimiento no soportado: %q", input.Type)}
	}
	if err := CheckProduct(ctx, uc.products, input.TenantID, input.ProductID); err != nil {
		return nil, err
	}
	if err := CheckWarehouse(ctx, uc.warehouseRepo, input.TenantID, input.WarehouseID); err != nil {
		return nil, err
	}

	key := entity.StockKey{TenantID: input.TenantID, ProductID: input.ProductID, WarehouseID: input.WarehouseID}
	ref := Ref{Reference: input.Reference, ActorID: input.ActorID}
	var out entity.StockRecord

	err := uc.txRunner.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		// Solo una entrada crea el registro; un ajuste sobre un registro inexistente es un faltante.
		create := input.Type == MovementTypeReceipt || input.Quantity > 0
		return WithStockLock(ctx, r.Stocks, []entity.StockKey{key}, create, func(locked LockedStock) error {
			rec := locked[key]
			var err error
			switch input.Type {
			case MovementTypeReceipt:
				out, err = uc.ledger.Receive(ctx, r, rec, input.Quantity, *input.UnitCost, entity.MovementKindReceipt, ref)
			case MovementTypeAdjustment:
				if !locked.Exists(key) {
					return &domain.InsufficientStockError{ProductID: key.ProductID, WarehouseID: key.WarehouseID, Requested: -input.Quantity}
				}
				out, err = uc.ledger.Adjust(ctx, r, rec, input.Quantity, ref)
			}
			return err
		})
	})
	if err != nil {
		if !uc.quarantine.HandleFailure(ctx, err) && !errors.Is(err, domain.ErrInsufficientStock) && !errors.Is(err, domain.ErrInvalidInput) {
			uc.log.Warn().Err(err).Str("stock_key", key.String()).Str("type", input.Type).Msg("movimiento no aplicado")
		}
		return nil, err
	}
	_ = uc.cache.Invalidate(ctx, key)
	uc.log.Debug().Str("stock_key", key.String()).Str("type", input.Type).Int64("quantity", input.Quantity).
		Int64("physical", out.QuantityPhysical).Msg("movimiento registrado")
	return &out, nil
}

// CheckProduct valida que el producto exista en el catálogo del tenant.
func CheckProduct(ctx context.Context, products ProductReader, tenantID, productID string) error {
	if productID == "" {
		return &domain.ValidationError{Field: "product_id", Reason: "obligatorio"}
	}
	p, err := products.GetProduct(ctx, tenantID, productID)
	if err != nil {
		return err
	}
	if p == nil || p.TenantID != tenantID {
		return &domain.ValidationError{Field: "product_id", ProductID: productID, Reason: "producto inexistente para el tenant"}
	}
	return nil
}

// CheckWarehouse valida que la bodega exista y pertenezca al tenant.
func CheckWarehouse(ctx context.Context, warehouses repository.WarehouseRepository, tenantID, warehouseID string) error {
	if warehouseID == "" {
		return &domain.ValidationError{Field: "warehouse_id", Reason: "obligatorio"}
	}
	wh, err := warehouses.GetByID(ctx, warehouseID)
	if err != nil {
		return err
	}
	if wh == nil || wh.TenantID != tenantID {
		return &domain.ValidationError{Field: "warehouse_id", Reason: fmt.Sprintf("bodega %s inexistente para el tenant", warehouseID)}
	}
	return nil
}
