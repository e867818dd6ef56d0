package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/billing"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
)

// OrderHandler pedidos de venta (protegido).
type OrderHandler struct {
	create *billing.CreateOrderUseCase
	cancel *billing.CancelOrderUseCase
	query  *billing.OrderQueryUseCase
}

// NewOrderHandler construye el handler.
func NewOrderHandler(create *billing.CreateOrderUseCase, cancel *billing.CancelOrderUseCase, query *billing.OrderQueryUseCase) *OrderHandler {
	return &OrderHandler{create: create, cancel: cancel, query: query}
}

// Create godoc
// @Summary      Crear pedido de venta
// @Description  Reserva, descuenta stock y asigna número de factura como una sola unidad.
// @Description  Un rechazo (validación o stock insuficiente) responde 422 con el detalle por línea.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateOrderRequest  true  "customer_id y líneas"
// @Success      201   {object}  dto.OrderReceipt
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.OrderRejection
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	tenantID, userID := GetTenantID(c), GetUserID(c)
	if tenantID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.CreateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	outcome, err := h.create.CreateOrder(c.UserContext(), tenantID, userID, in)
	if err != nil {
		return writeError(c, err)
	}
	if !outcome.Committed() {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(outcome.Rejection)
	}
	return c.Status(fiber.StatusCreated).JSON(outcome.Receipt)
}

// GetByID godoc
// @Summary      Detalle de un pedido
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del pedido"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	order, err := h.query.GetOrder(c.UserContext(), tenantID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(order)
}

// List godoc
// @Summary      Listar pedidos
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "pending, committed, failed, cancelled"
// @Param        from    query  string  false  "fecha inicial"
// @Param        to      query  string  false  "fecha final"
// @Param        limit   query  int     false  "máximo 100"
// @Param        offset  query  int     false  "desplazamiento"
// @Success      200  {object}  dto.OrderListResponse
// @Router       /api/orders [get]
func (h *OrderHandler) List(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	from, to, err := timeRange(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.query.ListOrders(c.UserContext(), tenantID, dto.OrderListRequest{
		PageRequest: pageFrom(c),
		Status:      c.Query("status"),
		From:        from,
		To:          to,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Anular pedido comprometido
// @Description  Devuelve el stock a cada bodega con un movimiento auditable. El número de factura se conserva.
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del pedido"
// @Success      200  {object}  dto.OrderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	tenantID, userID := GetTenantID(c), GetUserID(c)
	if tenantID == "" || userID == "" {
		return unauthorized(c)
	}
	order, err := h.cancel.CancelOrder(c.UserContext(), tenantID, userID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(order)
}
