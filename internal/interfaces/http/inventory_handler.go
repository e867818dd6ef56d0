package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// InventoryHandler entradas, ajustes, consultas de stock, kardex, conciliación y cuarentena (protegido).
type InventoryHandler struct {
	movements  *inventory.RegisterMovementUseCase
	query      *inventory.StockQueryUseCase
	quarantine *inventory.QuarantineUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(movements *inventory.RegisterMovementUseCase, query *inventory.StockQueryUseCase, quarantine *inventory.QuarantineUseCase) *InventoryHandler {
	return &InventoryHandler{movements: movements, query: query, quarantine: quarantine}
}

// Receive godoc
// @Summary      Registrar entrada de mercancía
// @Description  Suma al físico y recalcula el costo promedio ponderado. Crea el registro si no existe.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiptRequest  true  "product_id, warehouse_id, quantity, unit_cost"
// @Success      201   {object}  dto.StockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/receipts [post]
func (h *InventoryHandler) Receive(c *fiber.Ctx) error {
	tenantID, userID := GetTenantID(c), GetUserID(c)
	if tenantID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.ReceiptRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.movements.ReceiveFromRequest(c.UserContext(), tenantID, userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Adjust godoc
// @Summary      Ajuste manual de inventario
// @Description  quantity con signo. Un ajuste negativo no puede consumir stock reservado.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "product_id, warehouse_id, quantity"
// @Success      201   {object}  dto.StockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	tenantID, userID := GetTenantID(c), GetUserID(c)
	if tenantID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.movements.AdjustFromRequest(c.UserContext(), tenantID, userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetStock godoc
// @Summary      Disponibilidad de un producto
// @Description  Lectura sin bloqueo, solo para mostrar. Sin warehouse_id devuelve todas las bodegas.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  true   "producto"
// @Param        warehouse_id  query  string  false  "bodega"
// @Success      200  {array}   dto.StockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	out, err := h.query.GetStock(c.UserContext(), tenantID, c.Query("product_id"), c.Query("warehouse_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListMovements godoc
// @Summary      Kardex de un producto en una bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  true   "producto"
// @Param        warehouse_id  query  string  true   "bodega"
// @Param        from          query  string  false  "fecha inicial"
// @Param        to            query  string  false  "fecha final"
// @Success      200  {array}   dto.MovementResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	from, to, err := timeRange(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.query.ListMovements(c.UserContext(), tenantID, dto.MovementListRequest{
		PageRequest: pageFrom(c),
		ProductID:   c.Query("product_id"),
		WarehouseID: c.Query("warehouse_id"),
		From:        from,
		To:          to,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Reconcile godoc
// @Summary      Conciliación kardex vs físico
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  true  "producto"
// @Success      200  {array}  dto.ReconciliationLine
// @Router       /api/inventory/reconciliation [get]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	out, err := h.query.Reconcile(c.UserContext(), tenantID, c.Query("product_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(out), "lines": out})
}

// ReleaseQuarantine godoc
// @Summary      Liberar un registro en cuarentena
// @Description  Solo si las cantidades actuales cumplen las invariantes.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.QuarantineReleaseRequest  true  "product_id, warehouse_id"
// @Success      200   {object}  dto.StockResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/quarantine/release [post]
func (h *InventoryHandler) ReleaseQuarantine(c *fiber.Ctx) error {
	tenantID, userID := GetTenantID(c), GetUserID(c)
	if tenantID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.QuarantineReleaseRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	key := entity.StockKey{TenantID: tenantID, ProductID: in.ProductID, WarehouseID: in.WarehouseID}
	rec, err := h.quarantine.Release(c.UserContext(), key, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(inventory.ToStockResponse(rec))
}
