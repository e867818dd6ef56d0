package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.InvoiceSequenceRepository = (*InvoiceSequenceRepo)(nil)

// InvoiceSequenceRepo contador por (tenant, periodo) en invoice_sequences.
// El upsert bloquea la fila del contador hasta el fin de la transacción, así dos ventas
// del mismo tenant se serializan y un rollback no deja huecos.
type InvoiceSequenceRepo struct {
	q Querier
}

func NewInvoiceSequenceRepository(q Querier) *InvoiceSequenceRepo {
	return &InvoiceSequenceRepo{q: q}
}

// NextValue corre en un savepoint: si el contador no existe o falla, la transacción exterior
// sigue utilizable para el número de respaldo.
func (r *InvoiceSequenceRepo) NextValue(ctx context.Context, tenantID, period string) (int64, error) {
	sp, err := r.q.Begin(ctx)
	if err != nil {
		return 0, translate(err, "savepoint consecutivo")
	}
	defer func() { _ = sp.Rollback(ctx) }()

	var value int64
	err = sp.QueryRow(ctx, `
		INSERT INTO invoice_sequences (tenant_id, period, last_value, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (tenant_id, period)
		DO UPDATE SET last_value = invoice_sequences.last_value + 1, updated_at = now()
		RETURNING last_value`, tenantID, period).Scan(&value)
	if err != nil {
		resource := fmt.Sprintf("consecutivo %s/%s", tenantID, period)
		if pgCode(err) == codeUndefinedTable {
			return 0, fmt.Errorf("%s: %w", resource, domain.ErrSequenceUnavailable)
		}
		return 0, translate(err, resource)
	}
	if err := sp.Commit(ctx); err != nil {
		return 0, translate(err, "release savepoint consecutivo")
	}
	return value, nil
}
