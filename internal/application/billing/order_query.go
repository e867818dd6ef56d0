package billing

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// OrderQueryUseCase lectura de pedidos para los colaboradores de PDF y reportes.
// Un pedido comprometido y sus líneas ya no cambian, así que se leen sin bloqueo.
type OrderQueryUseCase struct {
	orderRepo repository.OrderRepository
}

func NewOrderQueryUseCase(orderRepo repository.OrderRepository) *OrderQueryUseCase {
	return &OrderQueryUseCase{orderRepo: orderRepo}
}

// GetOrder cabecera y líneas.
func (uc *OrderQueryUseCase) GetOrder(ctx context.Context, tenantID, orderID string) (*dto.OrderResponse, error) {
	o, err := uc.orderRepo.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	lines, err := uc.orderRepo.GetLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderResponse(o, lines), nil
}

// ListOrders pedidos del tenant filtrados por estado y rango de creación.
func (uc *OrderQueryUseCase) ListOrders(ctx context.Context, tenantID string, in dto.OrderListRequest) (*dto.OrderListResponse, error) {
	in.DefaultPage()
	status := entity.OrderStatus(in.Status)
	switch status {
	case "", entity.OrderStatusPending, entity.OrderStatusCommitted, entity.OrderStatusFailed, entity.OrderStatusCancelled:
	default:
		return nil, &domain.ValidationError{Field: "status", Reason: "estado desconocido"}
	}
	orders, err := uc.orderRepo.ListByStatus(ctx, tenantID, status, in.From, in.To, in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, *ToOrderResponse(o, nil))
	}
	return &dto.OrderListResponse{Items: items, Page: dto.PageResponse{Limit: in.Limit, Offset: in.Offset}}, nil
}

func ToOrderResponse(o *entity.SalesOrder, lines []*entity.OrderLine) *dto.OrderResponse {
	resp := &dto.OrderResponse{
		ID:            o.ID,
		TenantID:      o.TenantID,
		CustomerID:    o.CustomerID,
		InvoiceNumber: o.InvoiceNumber,
		Status:        string(o.Status),
		Totals:        dto.OrderTotalsDTO{Net: o.NetTotal, Tax: o.TaxTotal, Grand: o.GrandTotal},
		FailureReason: o.FailureReason,
		CreatedBy:     o.CreatedBy,
		CreatedAt:     o.CreatedAt,
		CommittedAt:   o.CommittedAt,
		CancelledAt:   o.CancelledAt,
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, dto.OrderLineResponse{
			LineNumber:  l.LineNumber,
			ProductID:   l.ProductID,
			WarehouseID: l.WarehouseID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			DiscountPct: l.DiscountPct,
			TaxRate:     l.TaxRate,
			NetTotal:    l.Net().Round(2),
		})
	}
	return resp
}
