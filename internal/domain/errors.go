package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrConflict               = errors.New("conflicto con el estado actual")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrLockTimeout            = errors.New("tiempo de espera de bloqueo agotado")
	ErrConcurrentModification = errors.New("modificación concurrente")
	ErrInvariantViolation     = errors.New("violación de invariante de stock")
	ErrDuplicateInvoiceNumber = errors.New("número de factura duplicado")
	ErrSequenceUnavailable    = errors.New("consecutivo de facturación no disponible")
)

// ValidationError entrada mal formada o referencia inexistente; se rechaza antes de tocar stock.
type ValidationError struct {
	Field     string
	ProductID string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.ProductID != "" {
		return fmt.Sprintf("validación: %s (producto %s): %s", e.Field, e.ProductID, e.Reason)
	}
	return fmt.Sprintf("validación: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// InsufficientStockError faltante de una línea: cantidad pedida vs disponible al momento del bloqueo.
type InsufficientStockError struct {
	ProductID   string
	WarehouseID string
	Requested   int64
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para producto %s en bodega %s: solicitado %d, disponible %d",
		e.ProductID, e.WarehouseID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// StockShortageError agrega los faltantes de todas las líneas de una misma operación.
type StockShortageError struct {
	Lines []InsufficientStockError
}

func (e *StockShortageError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for i := range e.Lines {
		parts = append(parts, fmt.Sprintf("%s@%s(%d/%d)", e.Lines[i].ProductID, e.Lines[i].WarehouseID, e.Lines[i].Requested, e.Lines[i].Available))
	}
	return "stock insuficiente: " + strings.Join(parts, ", ")
}

func (e *StockShortageError) Unwrap() error { return ErrInsufficientStock }

// LockTimeoutError no se obtuvo el bloqueo exclusivo dentro del tiempo máximo. Reintentable.
type LockTimeoutError struct {
	Resource string
	Wait     time.Duration
}

func (e *LockTimeoutError) Error() string {
	if e.Wait > 0 {
		return fmt.Sprintf("bloqueo de %s no obtenido en %s", e.Resource, e.Wait)
	}
	return fmt.Sprintf("bloqueo de %s no obtenido", e.Resource)
}

func (e *LockTimeoutError) Unwrap() error { return ErrLockTimeout }

// ConcurrentModificationError conflicto transitorio (deadlock, serialización). Reintentable.
type ConcurrentModificationError struct {
	Resource string
	Cause    error
}

func (e *ConcurrentModificationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("modificación concurrente en %s: %v", e.Resource, e.Cause)
	}
	return fmt.Sprintf("modificación concurrente en %s", e.Resource)
}

func (e *ConcurrentModificationError) Unwrap() error { return ErrConcurrentModification }

// InvariantViolationError reservado > físico, cantidad negativa o registro en cuarentena.
// Nunca se reintenta.
type InvariantViolationError struct {
	Resource string
	Detail   string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariante violada en %s: %s", e.Resource, e.Detail)
}

func (e *InvariantViolationError) Unwrap() error { return ErrInvariantViolation }

// DuplicateInvoiceNumberError se trata como violación de invariante: el diseño con bloqueo lo hace imposible.
type DuplicateInvoiceNumberError struct {
	TenantID string
	Number   string
}

func (e *DuplicateInvoiceNumberError) Error() string {
	return fmt.Sprintf("número de factura %s duplicado para tenant %s", e.Number, e.TenantID)
}

func (e *DuplicateInvoiceNumberError) Unwrap() []error {
	return []error{ErrDuplicateInvoiceNumber, ErrInvariantViolation}
}

// IsRetryable indica si el error es transitorio de infraestructura (seguro reintentar la operación completa).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrConcurrentModification)
}
