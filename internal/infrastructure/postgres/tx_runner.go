package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
// Cada transacción fija lock_timeout para que ninguna espera por una fila bloqueada sea indefinida.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool y la espera máxima por bloqueo.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return translate(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SET no admite parámetros; el valor viene de configuración, no del usuario.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return translate(err, "set lock_timeout")
	}

	if err := fn(ctx, NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate(err, "commit transaction")
	}
	return nil
}

// Reader repos sobre el pool, sin transacción, para lecturas de pantalla.
func (r *TxRunner) Reader() repository.Repos {
	return NewRepos(r.pool)
}

// NewRepos arma el conjunto de repositorios sobre un pool o una tx.
func NewRepos(q Querier) repository.Repos {
	return repository.Repos{
		Stocks:       NewStockRepository(q),
		Movements:    NewStockMovementRepository(q),
		Reservations: NewReservationRepository(q),
		Orders:       NewOrderRepository(q),
		Sequences:    NewInvoiceSequenceRepository(q),
		Transfers:    NewTransferRepository(q),
	}
}
