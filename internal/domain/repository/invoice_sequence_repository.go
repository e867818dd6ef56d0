package repository

import "context"

// InvoiceSequenceRepository contador por tenant (y periodo opcional).
type InvoiceSequenceRepository interface {
	// NextValue bloquea la fila del contador, la incrementa y devuelve el nuevo valor.
	// Debe llamarse dentro de la transacción que compromete el pedido.
	// Devuelve domain.ErrSequenceUnavailable si el mecanismo de contador no está disponible.
	NextValue(ctx context.Context, tenantID, period string) (int64, error)
}
