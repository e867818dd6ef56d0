package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// OrderRepository persistencia de pedidos de venta y sus líneas.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.SalesOrder, lines []*entity.OrderLine) error
	// Update persiste estado, número de factura, totales y motivo de fallo.
	Update(ctx context.Context, order *entity.SalesOrder) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.SalesOrder, error)
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.SalesOrder, error)
	GetLines(ctx context.Context, orderID string) ([]*entity.OrderLine, error)
	InvoiceNumberExists(ctx context.Context, tenantID, number string) (bool, error)
	ListByStatus(ctx context.Context, tenantID string, status entity.OrderStatus, from, to *time.Time, limit, offset int) ([]*entity.SalesOrder, error)
}
