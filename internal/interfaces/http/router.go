package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/stock-ledger/internal/application/billing"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName          string
	CreateOrder      *billing.CreateOrderUseCase
	CancelOrder      *billing.CancelOrderUseCase
	OrderQuery       *billing.OrderQueryUseCase
	RegisterMovement *inventory.RegisterMovementUseCase
	StockQuery       *inventory.StockQueryUseCase
	Quarantine       *inventory.QuarantineUseCase
	Transfers        *inventory.TransferUseCase
	JWTSecret        string
	// Gatherer registro de Prometheus expuesto en /metrics. Nil deshabilita la ruta.
	Gatherer prometheus.Gatherer
	// Health comprobaciones de dependencias (base de datos, caché). Nil responde siempre ok.
	Health func(ctx context.Context) error
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.Health != nil {
			if err := deps.Health(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": deps.AppName, "error": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Todas las rutas de negocio requieren Bearer Token; el tenant sale del token.
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	orders := api.Group("/orders")
	orderHandler := NewOrderHandler(deps.CreateOrder, deps.CancelOrder, deps.OrderQuery)
	orders.Post("/", RequireRole(RoleAdmin, RoleVendedor), orderHandler.Create)
	orders.Get("/", orderHandler.List)
	orders.Get("/:id", orderHandler.GetByID)
	orders.Post("/:id/cancel", RequireRole(RoleAdmin), orderHandler.Cancel)

	inv := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.RegisterMovement, deps.StockQuery, deps.Quarantine)
	inv.Post("/receipts", RequireRole(RoleAdmin, RoleBodeguero), inventoryHandler.Receive)
	inv.Post("/adjustments", RequireRole(RoleAdmin, RoleBodeguero), inventoryHandler.Adjust)
	inv.Get("/stock", inventoryHandler.GetStock)
	inv.Get("/movements", inventoryHandler.ListMovements)
	inv.Get("/reconciliation", RequireRole(RoleAdmin), inventoryHandler.Reconcile)
	inv.Post("/quarantine/release", RequireRole(RoleAdmin), inventoryHandler.ReleaseQuarantine)

	transfers := api.Group("/transfers")
	transferHandler := NewTransferHandler(deps.Transfers)
	transfers.Post("/", RequireRole(RoleAdmin, RoleBodeguero), transferHandler.Create)
	transfers.Get("/:id", transferHandler.GetByID)
	transfers.Post("/:id/receive", RequireRole(RoleAdmin, RoleBodeguero), transferHandler.Receive)
}
