package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Códigos SQLSTATE que el núcleo de stock distingue.
const (
	codeUniqueViolation      = "23505"
	codeLockNotAvailable     = "55P03"
	codeDeadlockDetected     = "40P01"
	codeSerializationFailure = "40001"
	codeUndefinedTable       = "42P01"
	codeCheckViolation       = "23514"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	if code := pgCode(err); code != "" {
		return code == codeUniqueViolation
	}
	return err != nil && strings.Contains(err.Error(), codeUniqueViolation)
}

// translate convierte errores de PostgreSQL en la taxonomía de dominio.
// resource identifica la fila o tabla afectada para el mensaje.
func translate(err error, resource string) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case codeLockNotAvailable:
		return &domain.LockTimeoutError{Resource: resource}
	case codeDeadlockDetected, codeSerializationFailure:
		return &domain.ConcurrentModificationError{Resource: resource, Cause: err}
	case codeCheckViolation:
		return &domain.InvariantViolationError{Resource: resource, Detail: err.Error()}
	}
	return fmt.Errorf("%s: %w", resource, err)
}
