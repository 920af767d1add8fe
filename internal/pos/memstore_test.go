package pos

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// memStore: Store in-memory untuk test domain; semantik transaksinya
// all-or-nothing lewat snapshot + restore.
type memStore struct {
	mu       sync.Mutex
	products map[string]Product
	orders   map[string]Order
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[string]Product),
		orders:   make(map[string]Order),
	}
}

func (m *memStore) addProduct(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *memStore) productQty(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Quantity
}

func (m *memStore) snapshot() (map[string]Product, map[string]Order) {
	ps := make(map[string]Product, len(m.products))
	for k, v := range m.products {
		ps[k] = v
	}
	os := make(map[string]Order, len(m.orders))
	for k, v := range m.orders {
		v.Items = append([]OrderLine(nil), v.Items...)
		os[k] = v
	}
	return ps, os
}

func (m *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ps, os := m.snapshot()
	if err := fn(&memTx{m}); err != nil {
		m.products, m.orders = ps, os // rollback
		return err
	}
	return nil
}

type memTx struct{ m *memStore }

func (t *memTx) QuantitiesForUpdate(ctx context.Context, productIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(productIDs))
	for _, id := range productIDs {
		if p, ok := t.m.products[id]; ok {
			out[id] = p.Quantity
		}
	}
	return out, nil
}

func (t *memTx) SetQuantity(ctx context.Context, productID string, qty int) error {
	p, ok := t.m.products[productID]
	if !ok {
		return errors.Wrap(ErrNotFound, "product")
	}
	p.Quantity = qty
	t.m.products[productID] = p
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *Order) error {
	for _, existing := range t.m.orders {
		if existing.OrderNumber == o.OrderNumber {
			return errors.Wrap(ErrOrderNumberCollision, o.OrderNumber)
		}
	}
	cp := *o
	cp.Items = append([]OrderLine(nil), o.Items...)
	t.m.orders[o.ID] = cp
	return nil
}

func (t *memTx) GetOrderForUpdate(ctx context.Context, id string) (*Order, error) {
	o, ok := t.m.orders[id]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, "order")
	}
	o.Items = append([]OrderLine(nil), o.Items...)
	return &o, nil
}

func (t *memTx) UpdateOrder(ctx context.Context, o *Order) error {
	if _, ok := t.m.orders[o.ID]; !ok {
		return errors.Wrap(ErrNotFound, "order")
	}
	cp := *o
	cp.Items = append([]OrderLine(nil), o.Items...)
	t.m.orders[o.ID] = cp
	return nil
}

func (m *memStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, "order")
	}
	o.Items = append([]OrderLine(nil), o.Items...)
	return &o, nil
}

func (m *memStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, "product")
	}
	return &p, nil
}

func (m *memStore) PageProducts(ctx context.Context, q PageQuery) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		all = append(all, p)
	}
	return pageRows(all, q, func(p Product) Cursor { return Cursor{Key: p.Name, ID: p.ID} }), nil
}

func (m *memStore) PageOrders(ctx context.Context, q PageQuery) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		o.Items = append([]OrderLine(nil), o.Items...)
		all = append(all, o)
	}
	return pageRows(all, q, func(o Order) Cursor { return Cursor{Key: orderDateKey(o.OrderDate), ID: o.ID} }), nil
}

// pageRows meniru kontrak keyset store: After maju di display order, Before
// mundur dari cursor (hasil dikembalikan dari yang terdekat ke cursor).
func pageRows[T any](all []T, q PageQuery, cursorOf func(T) Cursor) []T {
	cmp := func(a, b Cursor) int {
		if a.Key != b.Key {
			if a.Key < b.Key {
				return -1
			}
			return 1
		}
		if a.ID != b.ID {
			if a.ID < b.ID {
				return -1
			}
			return 1
		}
		return 0
	}
	// display order
	sort.Slice(all, func(i, j int) bool {
		c := cmp(cursorOf(all[i]), cursorOf(all[j]))
		if q.Desc {
			return c > 0
		}
		return c < 0
	})
	after := func(row T, c Cursor) bool {
		d := cmp(cursorOf(row), c)
		if q.Desc {
			return d < 0
		}
		return d > 0
	}

	switch {
	case q.After != nil:
		var out []T
		for _, row := range all {
			if after(row, *q.After) {
				out = append(out, row)
			}
			if len(out) == q.Limit {
				break
			}
		}
		return out
	case q.Before != nil:
		var before []T
		for _, row := range all {
			if !after(row, *q.Before) && cmp(cursorOf(row), *q.Before) != 0 {
				before = append(before, row)
			}
		}
		if len(before) > q.Limit {
			before = before[len(before)-q.Limit:]
		}
		// mundur dari cursor
		out := make([]T, 0, len(before))
		for i := len(before) - 1; i >= 0; i-- {
			out = append(out, before[i])
		}
		return out
	default:
		if len(all) > q.Limit {
			all = all[:q.Limit]
		}
		return all
	}
}
