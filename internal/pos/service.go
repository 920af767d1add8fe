package pos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const DefaultPageSize = 20

// Service: Order Transaction Service. Create dan edit jalan sebagai satu
// transaksi store bersama write stok dari Ledger; tidak pernah ada order
// setengah jadi.
type Service struct {
	store  Store
	ledger *Ledger
	log    *logrus.Logger
	now    func() time.Time
}

func NewService(store Store, log *logrus.Logger) *Service {
	return &Service{store: store, ledger: &Ledger{}, log: log, now: time.Now}
}

// CreateOrder mengubah cart tervalidasi jadi order persisten sambil
// mengurangi stok untuk tepat quantity itu, atomik.
func (s *Service) CreateOrder(ctx context.Context, cart Cart) (*Order, error) {
	if len(cart.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, it := range cart.Items {
		if it.BillQuantity <= 0 {
			return nil, errors.Wrapf(ErrInvalidQuantity, "product %s", it.ProductID)
		}
	}
	if dup := duplicateLine(cart.Items); dup != "" {
		return nil, errors.Wrapf(ErrDuplicateLine, "product %s", dup)
	}

	now := s.now().UTC()
	subtotal, tax, total := Totals(cart.Items)

	o := &Order{
		ID:             uuid.NewString(),
		OrderNumber:    orderNumber(now),
		CustomerID:     cart.CustomerID,
		CustomerName:   cart.CustomerName,
		CustomerMobile: cart.CustomerMobile,
		Items:          cart.Items,
		SubtotalCents:  subtotal,
		TaxCents:       tax,
		TotalCents:     total,
		OrderDate:      cart.OrderDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = now
	}
	if o.CustomerID == "" && o.CustomerName == "" {
		o.CustomerName = WalkInCustomer
	}

	deltas := DeltasForCreate(cart.Items)
	err := s.store.InTx(ctx, func(tx Tx) error {
		if _, err := s.ledger.Apply(ctx, tx, deltas); err != nil {
			return err
		}
		return tx.InsertOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"total_cents":  o.TotalCents,
	}).Info("order created")
	return o, nil
}

// EditResult: order hasil revisi + product yang kena delta (termasuk delta
// 0), buat invalidasi cache di caller.
type EditResult struct {
	Order   *Order
	Touched []string
}

// EditOrder menerapkan daftar item revisi ke order yang sudah ada. Delta
// stok = original - revised per product; apply delta + replace items +
// recompute totals jalan dalam satu transaksi. OrderNumber, OrderDate,
// CustomerID tidak disentuh.
//
// InsufficientStockError tetap mungkin walau product "nominal" sudah
// ter-reserve di original: order concurrent bisa saja sudah makan stok di
// antara commit original dan edit ini. Bukan bug; order dibiarkan utuh.
func (s *Service) EditOrder(ctx context.Context, orderID string, revised []OrderLine) (*EditResult, error) {
	for _, it := range revised {
		if it.BillQuantity < 0 {
			return nil, errors.Wrapf(ErrInvalidQuantity, "product %s", it.ProductID)
		}
	}
	if dup := duplicateLine(revised); dup != "" {
		return nil, errors.Wrapf(ErrDuplicateLine, "product %s", dup)
	}
	kept := DropZeroLines(revised)
	if len(kept) == 0 {
		// cancel order bukan fitur jalur ini; tolak sebelum sentuh storage
		return nil, ErrEmptyOrder
	}

	var out *Order
	var touched []string
	err := s.store.InTx(ctx, func(tx Tx) error {
		orig, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		deltas := DeltasForEdit(orig.Items, revised)
		touched, err = s.ledger.Apply(ctx, tx, deltas)
		if err != nil {
			return err
		}

		subtotal, tax, total := Totals(kept)
		upd := *orig
		upd.Items = kept
		upd.SubtotalCents = subtotal
		upd.TaxCents = tax
		upd.TotalCents = total
		upd.UpdatedAt = s.now().UTC()
		if err := tx.UpdateOrder(ctx, &upd); err != nil {
			return err
		}
		out = &upd
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id":     out.ID,
		"order_number": out.OrderNumber,
		"total_cents":  out.TotalCents,
	}).Info("order edited")
	return &EditResult{Order: out, Touched: touched}, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.store.GetProduct(ctx, id)
}

type PageRequest struct {
	Direction Direction
	Token     string // CursorState opaque dari response sebelumnya
	Size      int
	SortKey   string
	Desc      bool
}

func (s *Service) PageProducts(ctx context.Context, req PageRequest) (Page[Product], error) {
	if req.SortKey == "" {
		req.SortKey = "name"
	}
	if req.SortKey != "name" {
		return Page[Product]{}, errors.Wrapf(ErrInvalidPage, "sort key %q", req.SortKey)
	}
	st, err := DecodeState(req.Token)
	if err != nil {
		return Page[Product]{}, errors.Wrap(ErrInvalidPage, err.Error())
	}
	p := &Paginator[Product]{
		Fetch:    s.store.PageProducts,
		CursorOf: func(pr Product) Cursor { return Cursor{Key: pr.Name, ID: pr.ID} },
		SortKey:  req.SortKey,
		Desc:     req.Desc,
		Size:     pageSize(req.Size),
	}
	return p.Page(ctx, req.Direction, st)
}

func (s *Service) PageOrders(ctx context.Context, req PageRequest) (Page[Order], error) {
	if req.SortKey == "" {
		req.SortKey = "order_date"
		req.Desc = true // default tampilan: terbaru dulu
	}
	if req.SortKey != "order_date" {
		return Page[Order]{}, errors.Wrapf(ErrInvalidPage, "sort key %q", req.SortKey)
	}
	st, err := DecodeState(req.Token)
	if err != nil {
		return Page[Order]{}, errors.Wrap(ErrInvalidPage, err.Error())
	}
	p := &Paginator[Order]{
		Fetch:    s.store.PageOrders,
		CursorOf: func(o Order) Cursor { return Cursor{Key: orderDateKey(o.OrderDate), ID: o.ID} },
		SortKey:  req.SortKey,
		Desc:     req.Desc,
		Size:     pageSize(req.Size),
	}
	return p.Page(ctx, req.Direction, st)
}

// duplicateLine balikin product id pertama yang muncul lebih dari sekali;
// skema order_items memang satu line per product (PK order_id+product_id).
func duplicateLine(items []OrderLine) string {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			return it.ProductID
		}
		seen[it.ProductID] = struct{}{}
	}
	return ""
}

func pageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	return n
}

func orderDateKey(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

// Nomor order diturunkan dari timestamp sampai milidetik; resolusi itu cukup
// bebas tabrakan pada rate normal. Tabrakan beneran kena unique index dan
// muncul sebagai ErrOrderNumberCollision (fatal, tanpa retry).
func orderNumber(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("ORD-%s-%03d", t.Format("20060102150405"), t.Nanosecond()/int(time.Millisecond))
}
