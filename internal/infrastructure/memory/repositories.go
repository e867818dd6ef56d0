package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var errReadOnly = errors.New("memory: escritura fuera de una transacción")

func stockLock(key entity.StockKey) string { return "stock:" + key.String() }

// --- stock ---

type stockRepo struct{ t *tx }

func (r stockRepo) Get(_ context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	if rec, ok := r.t.stocks[key]; ok {
		return &rec, nil
	}
	r.t.s.mu.Lock()
	defer r.t.s.mu.Unlock()
	if rec, ok := r.t.s.stocks[key]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (r stockRepo) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	if err := r.t.lock(ctx, stockLock(key)); err != nil {
		return nil, err
	}
	return r.Get(ctx, key)
}

func (r stockRepo) EnsureForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	if err := r.t.writable(); err != nil {
		return nil, err
	}
	rec, err := r.GetForUpdate(ctx, key)
	if err != nil || rec != nil {
		return rec, err
	}
	created := entity.NewStockRecord(uuid.New().String(), key, time.Now())
	r.t.stocks[key] = created
	return &created, nil
}

func (r stockRepo) Save(_ context.Context, rec *entity.StockRecord) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if !r.t.holds(stockLock(rec.Key())) {
		return fmt.Errorf("memory: guardar %s sin bloqueo: %w", rec.Key(), domain.ErrConcurrentModification)
	}
	r.t.stocks[rec.Key()] = *rec
	return nil
}

func (r stockRepo) ListByProduct(_ context.Context, tenantID, productID string) ([]*entity.StockRecord, error) {
	merged := make(map[entity.StockKey]entity.StockRecord)
	r.t.s.mu.Lock()
	for k, v := range r.t.s.stocks {
		if k.TenantID == tenantID && k.ProductID == productID {
			merged[k] = v
		}
	}
	r.t.s.mu.Unlock()
	for k, v := range r.t.stocks {
		if k.TenantID == tenantID && k.ProductID == productID {
			merged[k] = v
		}
	}
	out := make([]*entity.StockRecord, 0, len(merged))
	for _, v := range merged {
		rec := v
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID < out[j].WarehouseID })
	return out, nil
}

// --- movimientos (solo inserción) ---

type movementRepo struct{ t *tx }

func (r movementRepo) Append(_ context.Context, m *entity.StockMovement) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	m.ID = r.t.s.movementSeq.Add(1)
	r.t.movements = append(r.t.movements, *m)
	return nil
}

func (r movementRepo) all(match func(m entity.StockMovement) bool) []*entity.StockMovement {
	var out []*entity.StockMovement
	r.t.s.mu.Lock()
	for _, m := range r.t.s.movements {
		if match(m) {
			mv := m
			out = append(out, &mv)
		}
	}
	r.t.s.mu.Unlock()
	for _, m := range r.t.movements {
		if match(m) {
			mv := m
			out = append(out, &mv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r movementRepo) ListByRecord(_ context.Context, recordID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	out := r.all(func(m entity.StockMovement) bool {
		if m.StockRecordID != recordID {
			return false
		}
		if from != nil && m.OccurredAt.Before(*from) {
			return false
		}
		if to != nil && m.OccurredAt.After(*to) {
			return false
		}
		return true
	})
	return page(out, limit, offset), nil
}

func (r movementRepo) ListByReference(_ context.Context, tenantID, reference string) ([]*entity.StockMovement, error) {
	return r.all(func(m entity.StockMovement) bool {
		return m.TenantID == tenantID && m.Reference == reference
	}), nil
}

func (r movementRepo) SumDeltas(_ context.Context, recordID string) (int64, error) {
	var sum int64
	for _, m := range r.all(func(m entity.StockMovement) bool { return m.StockRecordID == recordID }) {
		sum += m.QuantityDelta
	}
	return sum, nil
}

// --- reservas ---

type reservationRepo struct{ t *tx }

func (r reservationRepo) Create(_ context.Context, res *entity.Reservation) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	r.t.reservations[res.ID] = *res
	return nil
}

func (r reservationRepo) get(id string) (entity.Reservation, bool) {
	if res, ok := r.t.reservations[id]; ok {
		return res, true
	}
	r.t.s.mu.Lock()
	defer r.t.s.mu.Unlock()
	res, ok := r.t.s.reservations[id]
	return res, ok
}

func (r reservationRepo) ListActiveByOrder(_ context.Context, tenantID, orderID string) ([]*entity.Reservation, error) {
	merged := make(map[string]entity.Reservation)
	r.t.s.mu.Lock()
	for id, res := range r.t.s.reservations {
		if res.TenantID == tenantID && res.OrderID == orderID {
			merged[id] = res
		}
	}
	r.t.s.mu.Unlock()
	for id, res := range r.t.reservations {
		if res.TenantID == tenantID && res.OrderID == orderID {
			merged[id] = res
		}
	}
	var out []*entity.Reservation
	for _, res := range merged {
		if res.Status == entity.ReservationActive {
			rv := res
			out = append(out, &rv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r reservationRepo) UpdateStatus(_ context.Context, id string, status entity.ReservationStatus, at time.Time) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	res, ok := r.get(id)
	if !ok {
		return domain.ErrNotFound
	}
	res.Status = status
	res.UpdatedAt = at
	r.t.reservations[id] = res
	return nil
}

// --- pedidos ---

type orderRepo struct{ t *tx }

func (r orderRepo) get(tenantID, id string) (*entity.SalesOrder, bool) {
	if o, ok := r.t.orders[id]; ok {
		return &o, o.TenantID == tenantID
	}
	r.t.s.mu.Lock()
	defer r.t.s.mu.Unlock()
	o, ok := r.t.s.orders[id]
	if !ok {
		return nil, false
	}
	return &o, o.TenantID == tenantID
}

func (r orderRepo) Create(_ context.Context, order *entity.SalesOrder, lines []*entity.OrderLine) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if o, _ := r.get(order.TenantID, order.ID); o != nil {
		return fmt.Errorf("pedido %s: %w", order.ID, domain.ErrDuplicate)
	}
	r.t.orders[order.ID] = *order
	ls := make([]entity.OrderLine, len(lines))
	for i, l := range lines {
		ls[i] = *l
	}
	r.t.lines[order.ID] = ls
	return nil
}

func (r orderRepo) Update(ctx context.Context, order *entity.SalesOrder) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if order.InvoiceNumber != "" {
		exists, err := r.invoiceTaken(order.TenantID, order.InvoiceNumber, order.ID)
		if err != nil {
			return err
		}
		if exists {
			return &domain.DuplicateInvoiceNumberError{TenantID: order.TenantID, Number: order.InvoiceNumber}
		}
	}
	r.t.orders[order.ID] = *order
	return nil
}

func (r orderRepo) GetByID(_ context.Context, tenantID, id string) (*entity.SalesOrder, error) {
	o, ok := r.get(tenantID, id)
	if !ok {
		return nil, nil
	}
	return o, nil
}

func (r orderRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.SalesOrder, error) {
	if err := r.t.lock(ctx, "order:"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, tenantID, id)
}

func (r orderRepo) GetLines(_ context.Context, orderID string) ([]*entity.OrderLine, error) {
	ls, ok := r.t.lines[orderID]
	if !ok {
		r.t.s.mu.Lock()
		ls = r.t.s.lines[orderID]
		r.t.s.mu.Unlock()
	}
	out := make([]*entity.OrderLine, len(ls))
	for i := range ls {
		l := ls[i]
		out[i] = &l
	}
	return out, nil
}

func (r orderRepo) InvoiceNumberExists(_ context.Context, tenantID, number string) (bool, error) {
	return r.invoiceTaken(tenantID, number, "")
}

func (r orderRepo) invoiceTaken(tenantID, number, exceptID string) (bool, error) {
	for id, o := range r.t.orders {
		if id != exceptID && o.TenantID == tenantID && o.InvoiceNumber == number {
			return true, nil
		}
	}
	r.t.s.mu.Lock()
	defer r.t.s.mu.Unlock()
	for id, o := range r.t.s.orders {
		if id != exceptID && o.TenantID == tenantID && o.InvoiceNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (r orderRepo) ListByStatus(_ context.Context, tenantID string, status entity.OrderStatus, from, to *time.Time, limit, offset int) ([]*entity.SalesOrder, error) {
	merged := make(map[string]entity.SalesOrder)
	r.t.s.mu.Lock()
	for id, o := range r.t.s.orders {
		merged[id] = o
	}
	r.t.s.mu.Unlock()
	for id, o := range r.t.orders {
		merged[id] = o
	}
	var out []*entity.SalesOrder
	for _, o := range merged {
		if o.TenantID != tenantID || (status != "" && o.Status != status) {
			continue
		}
		if from != nil && o.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && o.CreatedAt.After(*to) {
			continue
		}
		ov := o
		out = append(out, &ov)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, limit, offset), nil
}

// --- consecutivo de facturas ---

type sequenceRepo struct{ t *tx }

func (r sequenceRepo) NextValue(ctx context.Context, tenantID, period string) (int64, error) {
	if err := r.t.writable(); err != nil {
		return 0, err
	}
	if r.t.s.seqDown.Load() {
		return 0, domain.ErrSequenceUnavailable
	}
	name := tenantID + "/" + period
	if err := r.t.lock(ctx, "seq:"+name); err != nil {
		return 0, err
	}
	cur, ok := r.t.counters[name]
	if !ok {
		r.t.s.mu.Lock()
		cur = r.t.s.counters[name]
		r.t.s.mu.Unlock()
	}
	cur++
	r.t.counters[name] = cur
	return cur, nil
}

// --- traslados ---

type transferRepo struct{ t *tx }

func (r transferRepo) Create(_ context.Context, t *entity.Transfer) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	r.t.transfers[t.ID] = *t
	return nil
}

func (r transferRepo) Update(_ context.Context, t *entity.Transfer) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	r.t.transfers[t.ID] = *t
	return nil
}

func (r transferRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Transfer, error) {
	t, ok := r.t.transfers[id]
	if !ok {
		r.t.s.mu.Lock()
		t, ok = r.t.s.transfers[id]
		r.t.s.mu.Unlock()
	}
	if !ok || t.TenantID != tenantID {
		return nil, nil
	}
	return &t, nil
}

func (r transferRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Transfer, error) {
	if err := r.t.lock(ctx, "transfer:"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, tenantID, id)
}

// --- bodegas y catálogo ---

type warehouseRepo struct{ s *Store }

func (r warehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.warehouses[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r warehouseRepo) ListByTenant(_ context.Context, tenantID string) ([]*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Warehouse
	for _, w := range r.s.warehouses {
		if w.TenantID == tenantID {
			wv := w
			out = append(out, &wv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Catalog colaborador de catálogo en memoria.
type Catalog struct{ s *Store }

func (c *Catalog) GetProduct(_ context.Context, tenantID, productID string) (*entity.Product, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	p, ok := c.s.products[productID]
	if !ok || p.TenantID != tenantID {
		return nil, nil
	}
	return &p, nil
}

func (c *Catalog) ResolvePriceAndTax(ctx context.Context, tenantID, productID string) (*entity.PriceAndTax, error) {
	p, err := c.GetProduct(ctx, tenantID, productID)
	if err != nil || p == nil {
		return nil, err
	}
	return &entity.PriceAndTax{UnitPrice: p.Price, TaxRate: p.TaxRate}, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
