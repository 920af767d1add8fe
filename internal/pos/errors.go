package pos

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrEmptyOrder           = errors.New("order has no items")
	ErrNotFound             = errors.New("not found")
	ErrOrderNumberCollision = errors.New("order number collision") // fatal, jangan auto-retry
	ErrStoreUnavailable     = errors.New("store unavailable")      // transient, boleh retry dengan backoff
	ErrInvalidQuantity      = errors.New("bill quantity must be positive")
	ErrDuplicateLine        = errors.New("duplicate product line") // satu product maksimal satu line per order
	ErrInvalidPage          = errors.New("invalid page request")
)

// InsufficientStockError selalu menunjuk product spesifik supaya billing UI
// bisa highlight line item yang bermasalah.
type InsufficientStockError struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
