package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

const orderColumns = `id, tenant_id, customer_id, invoice_number, status, net_total, tax_total, grand_total,
	failure_reason, created_by, created_at, updated_at, committed_at, cancelled_at`

// OrderRepo pedidos de venta y sus líneas. El número de factura tiene índice único parcial
// (tenant_id, invoice_number) WHERE invoice_number IS NOT NULL.
type OrderRepo struct {
	q Querier
}

func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create inserta la cabecera y las líneas.
func (r *OrderRepo) Create(ctx context.Context, o *entity.SalesOrder, lines []*entity.OrderLine) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sales_orders (id, tenant_id, customer_id, invoice_number, status, net_total, tax_total, grand_total,
			failure_reason, created_by, created_at, updated_at, committed_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		o.ID, o.TenantID, o.CustomerID, nullable(o.InvoiceNumber), string(o.Status), o.NetTotal, o.TaxTotal, o.GrandTotal,
		o.FailureReason, o.CreatedBy, o.CreatedAt, o.UpdatedAt, o.CommittedAt, o.CancelledAt)
	if err != nil {
		return r.translate(err, o)
	}
	for _, l := range lines {
		_, err := r.q.Exec(ctx, `
			INSERT INTO order_lines (id, order_id, line_number, product_id, warehouse_id, quantity, unit_price, discount_pct, tax_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			l.ID, l.OrderID, l.LineNumber, l.ProductID, l.WarehouseID, l.Quantity, l.UnitPrice, l.DiscountPct, l.TaxRate)
		if err != nil {
			return translate(err, fmt.Sprintf("línea %d del pedido %s", l.LineNumber, o.ID))
		}
	}
	return nil
}

// Update persiste estado, factura, totales y motivo de fallo.
func (r *OrderRepo) Update(ctx context.Context, o *entity.SalesOrder) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE sales_orders SET invoice_number = $3, status = $4, net_total = $5, tax_total = $6, grand_total = $7,
			failure_reason = $8, updated_at = $9, committed_at = $10, cancelled_at = $11
		WHERE id = $1 AND tenant_id = $2`,
		o.ID, o.TenantID, nullable(o.InvoiceNumber), string(o.Status), o.NetTotal, o.TaxTotal, o.GrandTotal,
		o.FailureReason, o.UpdatedAt, o.CommittedAt, o.CancelledAt)
	if err != nil {
		return r.translate(err, o)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("pedido %s: %w", o.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *OrderRepo) translate(err error, o *entity.SalesOrder) error {
	if isUniqueViolation(err) {
		if o.InvoiceNumber != "" && constraintName(err) == "sales_orders_invoice_uq" {
			return &domain.DuplicateInvoiceNumberError{TenantID: o.TenantID, Number: o.InvoiceNumber}
		}
		return fmt.Errorf("pedido %s: %w", o.ID, domain.ErrDuplicate)
	}
	return translate(err, "pedido "+o.ID)
}

func (r *OrderRepo) get(ctx context.Context, tenantID, id, suffix string) (*entity.SalesOrder, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE tenant_id = $1 AND id = $2`+suffix,
		tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(err, "pedido "+id)
	}
	return o, nil
}

func (r *OrderRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.SalesOrder, error) {
	return r.get(ctx, tenantID, id, "")
}

// GetForUpdate bloquea la cabecera; es el primer bloqueo que toma la transacción de venta.
func (r *OrderRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.SalesOrder, error) {
	return r.get(ctx, tenantID, id, " FOR UPDATE")
}

func (r *OrderRepo) GetLines(ctx context.Context, orderID string) ([]*entity.OrderLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, order_id, line_number, product_id, warehouse_id, quantity, unit_price, discount_pct, tax_rate
		FROM order_lines WHERE order_id = $1 ORDER BY line_number`, orderID)
	if err != nil {
		return nil, translate(err, "líneas del pedido "+orderID)
	}
	defer rows.Close()
	var list []*entity.OrderLine
	for rows.Next() {
		var l entity.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.LineNumber, &l.ProductID, &l.WarehouseID, &l.Quantity,
			&l.UnitPrice, &l.DiscountPct, &l.TaxRate); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

func (r *OrderRepo) InvoiceNumberExists(ctx context.Context, tenantID, number string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sales_orders WHERE tenant_id = $1 AND invoice_number = $2)`,
		tenantID, number).Scan(&exists)
	if err != nil {
		return false, translate(err, "factura "+number)
	}
	return exists, nil
}

// ListByStatus pedidos del tenant, más recientes primero. status vacío lista todos.
func (r *OrderRepo) ListByStatus(ctx context.Context, tenantID string, status entity.OrderStatus, from, to *time.Time, limit, offset int) ([]*entity.SalesOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM sales_orders WHERE tenant_id = $1`
	args := []any{tenantID}
	pos := 2
	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", pos)
		args = append(args, string(status))
		pos++
	}
	if from != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list orders")
	}
	defer rows.Close()
	var list []*entity.SalesOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

func scanOrder(row pgx.Row) (*entity.SalesOrder, error) {
	var o entity.SalesOrder
	var invoice *string
	var status string
	err := row.Scan(&o.ID, &o.TenantID, &o.CustomerID, &invoice, &status, &o.NetTotal, &o.TaxTotal, &o.GrandTotal,
		&o.FailureReason, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt, &o.CommittedAt, &o.CancelledAt)
	if err != nil {
		return nil, err
	}
	if invoice != nil {
		o.InvoiceNumber = *invoice
	}
	o.Status = entity.OrderStatus(status)
	return &o, nil
}
