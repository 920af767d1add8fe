package pos

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// PGStore: implementasi Store di atas pgxpool. Semua mutasi di InTx; stok
// dibaca FOR UPDATE di transaksi yang sama dengan write order, jadi dua
// create/edit concurrent pada product yang sama ter-serialize oleh Postgres.
type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	txn, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storeErr(err, "begin tx")
	}
	defer func() { _ = txn.Rollback(ctx) }()

	if err := fn(&pgTx{tx: txn}); err != nil {
		return err
	}
	if err := txn.Commit(ctx); err != nil {
		return storeErr(err, "commit tx")
	}
	return nil
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) QuantitiesForUpdate(ctx context.Context, productIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(productIDs))
	for _, id := range productIDs {
		var qty int
		err := t.tx.QueryRow(ctx, `SELECT quantity FROM products WHERE id=$1 FOR UPDATE`, id).Scan(&qty)
		if errors.Is(err, pgx.ErrNoRows) {
			continue // product tidak ada; biar Ledger yang menolak
		}
		if err != nil {
			return nil, storeErr(err, "lock product")
		}
		out[id] = qty
	}
	return out, nil
}

func (t *pgTx) SetQuantity(ctx context.Context, productID string, qty int) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE products SET quantity=$2, updated_at=now() WHERE id=$1`, productID, qty)
	return storeErr(err, "set quantity")
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, order_number, customer_id, customer_name, customer_mobile,
		                   subtotal_cents, tax_cents, total_cents, order_date, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.OrderNumber, o.CustomerID, o.CustomerName, o.CustomerMobile,
		o.SubtotalCents, o.TaxCents, o.TotalCents, o.OrderDate, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return orderWriteErr(err)
	}
	return insertLines(ctx, t.tx, o.ID, o.Items)
}

func (t *pgTx) GetOrderForUpdate(ctx context.Context, id string) (*Order, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	o.Items, err = queryLines(ctx, t.tx, o.ID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (t *pgTx) UpdateOrder(ctx context.Context, o *Order) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE orders SET subtotal_cents=$2, tax_cents=$3, total_cents=$4, updated_at=$5
		WHERE id=$1`,
		o.ID, o.SubtotalCents, o.TaxCents, o.TotalCents, o.UpdatedAt,
	)
	if err != nil {
		return storeErr(err, "update order")
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, o.ID); err != nil {
		return storeErr(err, "clear order items")
	}
	return insertLines(ctx, t.tx, o.ID, o.Items)
}

func insertLines(ctx context.Context, tx pgx.Tx, orderID string, items []OrderLine) error {
	for _, it := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, name, price_cents, bill_quantity, serial_number, barcode)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			orderID, it.ProductID, it.Name, it.PriceCents, it.BillQuantity, it.SerialNumber, it.Barcode,
		)
		if err != nil {
			return storeErr(err, "insert order item")
		}
	}
	return nil
}

const orderCols = `id, order_number, customer_id, customer_name, customer_mobile,
	subtotal_cents, tax_cents, total_cents, order_date, created_at, updated_at`

const productCols = `id, name, price_cents, quantity, category_id, category_name,
	serial_number, barcode, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.CustomerMobile,
		&o.SubtotalCents, &o.TaxCents, &o.TotalCents, &o.OrderDate, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(ErrNotFound, "order")
	}
	if err != nil {
		return nil, storeErr(err, "scan order")
	}
	return &o, nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Quantity, &p.CategoryID, &p.CategoryName,
		&p.SerialNumber, &p.Barcode, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(ErrNotFound, "product")
	}
	if err != nil {
		return nil, storeErr(err, "scan product")
	}
	return &p, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q querier, orderID string) ([]OrderLine, error) {
	rows, err := q.Query(ctx, `
		SELECT product_id, name, price_cents, bill_quantity, serial_number, barcode
		FROM order_items WHERE order_id=$1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, storeErr(err, "query order items")
	}
	defer rows.Close()

	var out []OrderLine
	for rows.Next() {
		var it OrderLine
		if err := rows.Scan(&it.ProductID, &it.Name, &it.PriceCents, &it.BillQuantity,
			&it.SerialNumber, &it.Barcode); err != nil {
			return nil, storeErr(err, "scan order item")
		}
		out = append(out, it)
	}
	return out, storeErr(rows.Err(), "order items")
}

func (s *PGStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	o.Items, err = queryLines(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PGStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	return scanProduct(s.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
}

// PageProducts: keyset window di (name, id).
func (s *PGStore) PageProducts(ctx context.Context, q PageQuery) ([]Product, error) {
	where, order, args := keysetClause(q, "name", func(c *Cursor) any { return c.Key })
	rows, err := s.DB.Query(ctx,
		`SELECT `+productCols+` FROM products`+where+` ORDER BY `+order+
			fmt.Sprintf(" LIMIT $%d", len(args)+1),
		append(args, q.Limit)...)
	if err != nil {
		return nil, storeErr(err, "page products")
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, storeErr(rows.Err(), "page products")
}

// PageOrders: keyset window di (order_date, id); items di-load sekali untuk
// seluruh halaman.
func (s *PGStore) PageOrders(ctx context.Context, q PageQuery) ([]Order, error) {
	where, order, args := keysetClause(q, "order_date", func(c *Cursor) any {
		t, err := time.Parse(time.RFC3339Nano, c.Key)
		if err != nil {
			return c.Key
		}
		return t
	})
	rows, err := s.DB.Query(ctx,
		`SELECT `+orderCols+` FROM orders`+where+` ORDER BY `+order+
			fmt.Sprintf(" LIMIT $%d", len(args)+1),
		append(args, q.Limit)...)
	if err != nil {
		return nil, storeErr(err, "page orders")
	}
	defer rows.Close()

	var out []Order
	ids := make([]string, 0, q.Limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "page orders")
	}
	if len(out) == 0 {
		return out, nil
	}

	lrows, err := s.DB.Query(ctx, `
		SELECT order_id, product_id, name, price_cents, bill_quantity, serial_number, barcode
		FROM order_items WHERE order_id = ANY($1) ORDER BY product_id`, ids)
	if err != nil {
		return nil, storeErr(err, "page order items")
	}
	defer lrows.Close()

	byOrder := make(map[string][]OrderLine, len(ids))
	for lrows.Next() {
		var oid string
		var it OrderLine
		if err := lrows.Scan(&oid, &it.ProductID, &it.Name, &it.PriceCents, &it.BillQuantity,
			&it.SerialNumber, &it.Barcode); err != nil {
			return nil, storeErr(err, "scan order item")
		}
		byOrder[oid] = append(byOrder[oid], it)
	}
	if err := lrows.Err(); err != nil {
		return nil, storeErr(err, "page order items")
	}
	for i := range out {
		out[i].Items = byOrder[out[i].ID]
	}
	return out, nil
}

// keysetClause bangun WHERE + ORDER BY untuk satu window.
// After = maju di display order; Before = mundur dari cursor (caller yang
// membalik hasilnya ke display order).
func keysetClause(q PageQuery, col string, keyArg func(*Cursor) any) (where, order string, args []any) {
	asc := col + ", id"
	desc := col + " DESC, id DESC"

	forward := asc
	backward := desc
	gt, lt := ">", "<"
	if q.Desc {
		forward, backward = desc, asc
		gt, lt = "<", ">"
	}

	switch {
	case q.After != nil:
		where = ` WHERE (` + col + `, id) ` + gt + ` ($1, $2)`
		order = forward
		args = []any{keyArg(q.After), q.After.ID}
	case q.Before != nil:
		where = ` WHERE (` + col + `, id) ` + lt + ` ($1, $2)`
		order = backward
		args = []any{keyArg(q.Before), q.Before.ID}
	default:
		order = forward
	}
	return where, order, args
}

func orderWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "order_number") {
		return errors.Wrap(ErrOrderNumberCollision, pgErr.ConstraintName)
	}
	return storeErr(err, "insert order")
}

func storeErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || errors.As(err, &netErr) {
		return errors.Wrapf(ErrStoreUnavailable, "%s: %v", msg, err)
	}
	return errors.Wrap(err, msg)
}
