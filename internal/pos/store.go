package pos

import "context"

// Store: akses durable ke product + order. Semua mutasi lewat InTx; baik
// semua write dalam fn ke-commit, atau tidak ada sama sekali.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetOrder(ctx context.Context, id string) (*Order, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	PageProducts(ctx context.Context, q PageQuery) ([]Product, error)
	PageOrders(ctx context.Context, q PageQuery) ([]Order, error)
}

// Tx: operasi di dalam satu transaksi store.
type Tx interface {
	// QuantitiesForUpdate membaca stok dengan row lock; product yang tidak
	// ada tidak muncul di map.
	QuantitiesForUpdate(ctx context.Context, productIDs []string) (map[string]int, error)
	SetQuantity(ctx context.Context, productID string, qty int) error

	InsertOrder(ctx context.Context, o *Order) error
	// GetOrderForUpdate baca order + lock di transaksi yang sama, supaya base
	// edit tidak stale.
	GetOrderForUpdate(ctx context.Context, id string) (*Order, error)
	UpdateOrder(ctx context.Context, o *Order) error
}

// PageQuery: satu window keyset. After/Before eksklusif terhadap cursor.
// Kontrak Before: baris dikembalikan mundur dari cursor (paginator yang
// membalik ke display order).
type PageQuery struct {
	SortKey string // "name" | "order_date"
	Desc    bool
	After   *Cursor
	Before  *Cursor
	Limit   int
}
