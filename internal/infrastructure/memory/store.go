package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Store almacén en proceso con la misma semántica transaccional que PostgreSQL para el núcleo de stock:
// bloqueos exclusivos por fila con espera acotada, escrituras preparadas que se aplican de una vez
// en el commit y se descartan en el rollback. Se usa en modo desarrollo y en las pruebas.
type Store struct {
	mu          sync.Mutex
	locks       *lockTable
	lockTimeout time.Duration
	seqDown     atomic.Bool
	movementSeq atomic.Int64

	stocks       map[entity.StockKey]entity.StockRecord
	movements    []entity.StockMovement
	reservations map[string]entity.Reservation
	orders       map[string]entity.SalesOrder
	lines        map[string][]entity.OrderLine
	counters     map[string]int64
	transfers    map[string]entity.Transfer
	warehouses   map[string]entity.Warehouse
	products     map[string]entity.Product
}

// NewStore crea un almacén vacío. lockTimeout es la espera máxima por cada bloqueo.
func NewStore(lockTimeout time.Duration) *Store {
	return &Store{
		locks:        newLockTable(),
		lockTimeout:  lockTimeout,
		stocks:       make(map[entity.StockKey]entity.StockRecord),
		reservations: make(map[string]entity.Reservation),
		orders:       make(map[string]entity.SalesOrder),
		lines:        make(map[string][]entity.OrderLine),
		counters:     make(map[string]int64),
		transfers:    make(map[string]entity.Transfer),
		warehouses:   make(map[string]entity.Warehouse),
		products:     make(map[string]entity.Product),
	}
}

// Run ejecuta fn en una unidad de trabajo. Commit si fn devuelve nil; los bloqueos se liberan siempre.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error {
	t := newTx(s, false)
	defer t.releaseLocks()
	if err := fn(ctx, t.repos()); err != nil {
		return err
	}
	return t.commit()
}

// Reader repos de solo lectura sin bloqueo, para consultas de pantalla y reportes.
func (s *Store) Reader() repository.Repos {
	return newTx(s, true).repos()
}

// Warehouses repositorio de bodegas.
func (s *Store) Warehouses() repository.WarehouseRepository {
	return warehouseRepo{s: s}
}

// Catalog colaborador de catálogo respaldado por los productos cargados.
func (s *Store) Catalog() *Catalog {
	return &Catalog{s: s}
}

// AddWarehouse registra una bodega (onboarding del tenant).
func (s *Store) AddWarehouse(w entity.Warehouse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warehouses[w.ID] = w
}

// AddProduct registra un producto del catálogo.
func (s *Store) AddProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// SetSequencesAvailable simula la caída (false) o recuperación del contador de facturas.
func (s *Store) SetSequencesAvailable(ok bool) {
	s.seqDown.Store(!ok)
}

// tx unidad de trabajo: lecturas ven primero lo preparado y luego lo confirmado.
type tx struct {
	s        *Store
	readOnly bool
	held     []string
	heldSet  map[string]struct{}

	stocks       map[entity.StockKey]entity.StockRecord
	movements    []entity.StockMovement
	reservations map[string]entity.Reservation
	orders       map[string]entity.SalesOrder
	lines        map[string][]entity.OrderLine
	counters     map[string]int64
	transfers    map[string]entity.Transfer
}

func newTx(s *Store, readOnly bool) *tx {
	return &tx{
		s:            s,
		readOnly:     readOnly,
		heldSet:      make(map[string]struct{}),
		stocks:       make(map[entity.StockKey]entity.StockRecord),
		reservations: make(map[string]entity.Reservation),
		orders:       make(map[string]entity.SalesOrder),
		lines:        make(map[string][]entity.OrderLine),
		counters:     make(map[string]int64),
		transfers:    make(map[string]entity.Transfer),
	}
}

func (t *tx) repos() repository.Repos {
	return repository.Repos{
		Stocks:       stockRepo{t: t},
		Movements:    movementRepo{t: t},
		Reservations: reservationRepo{t: t},
		Orders:       orderRepo{t: t},
		Sequences:    sequenceRepo{t: t},
		Transfers:    transferRepo{t: t},
	}
}

// lock adquiere el bloqueo una sola vez por transacción (reentrante).
func (t *tx) lock(ctx context.Context, name string) error {
	if t.readOnly {
		return nil
	}
	if _, ok := t.heldSet[name]; ok {
		return nil
	}
	if err := t.s.locks.acquire(ctx, name, t.s.lockTimeout); err != nil {
		return err
	}
	t.heldSet[name] = struct{}{}
	t.held = append(t.held, name)
	return nil
}

func (t *tx) holds(name string) bool {
	_, ok := t.heldSet[name]
	return ok
}

func (t *tx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func (t *tx) releaseLocks() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.s.locks.release(t.held[i])
	}
	t.held = nil
	t.heldSet = make(map[string]struct{})
}

// commit aplica todas las escrituras preparadas bajo el mutex del almacén.
func (t *tx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, o := range t.orders {
		if o.InvoiceNumber == "" {
			continue
		}
		for otherID, other := range s.orders {
			if otherID != id && other.TenantID == o.TenantID && other.InvoiceNumber == o.InvoiceNumber {
				return &domain.DuplicateInvoiceNumberError{TenantID: o.TenantID, Number: o.InvoiceNumber}
			}
		}
	}

	for k, v := range t.stocks {
		s.stocks[k] = v
	}
	s.movements = append(s.movements, t.movements...)
	for k, v := range t.reservations {
		s.reservations[k] = v
	}
	for k, v := range t.orders {
		s.orders[k] = v
	}
	for k, v := range t.lines {
		s.lines[k] = v
	}
	for k, v := range t.counters {
		s.counters[k] = v
	}
	for k, v := range t.transfers {
		s.transfers[k] = v
	}
	return nil
}
