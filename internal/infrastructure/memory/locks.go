package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// lockTable bloqueos exclusivos por nombre con espera acotada.
// Cada nombre es un canal con capacidad 1: enviar adquiere, recibir libera.
type lockTable struct {
	mu sync.Mutex
	m  map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{m: make(map[string]chan struct{})}
}

func (lt *lockTable) slot(name string) chan struct{} {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	ch, ok := lt.m[name]
	if !ok {
		ch = make(chan struct{}, 1)
		lt.m[name] = ch
	}
	return ch
}

func (lt *lockTable) acquire(ctx context.Context, name string, timeout time.Duration) error {
	ch := lt.slot(name)
	select {
	case ch <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return &domain.LockTimeoutError{Resource: name, Wait: timeout}
	case <-ctx.Done():
		return &domain.LockTimeoutError{Resource: name, Wait: timeout}
	}
}

func (lt *lockTable) release(name string) {
	<-lt.slot(name)
}
