package pos

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

// Ledger: satu-satunya jalur yang boleh menulis Product.Quantity. Batch delta
// bertanda diterapkan all-or-nothing di dalam transaksi store milik caller.
type Ledger struct{}

// Apply membaca stok semua product yang direferensikan (dengan lock), hitung
// newQty = current + delta, dan kalau ADA SATU yang negatif seluruh batch
// gagal tanpa ada write. Delta 0 ikut batch (dan ikut lock) tapi tidak
// menulis apa-apa. Return daftar product id yang diterapkan.
func (l *Ledger) Apply(ctx context.Context, tx Tx, deltas map[string]int) ([]string, error) {
	if len(deltas) == 0 {
		return nil, nil
	}

	// urutan lock deterministik biar dua batch yang overlap tidak deadlock
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	current, err := tx.QuantitiesForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}

	// cek dulu semua, baru tulis
	for _, id := range ids {
		qty, ok := current[id]
		if !ok {
			return nil, errors.Wrapf(ErrNotFound, "product %s", id)
		}
		if next := qty + deltas[id]; next < 0 {
			return nil, &InsufficientStockError{
				ProductID: id,
				Requested: -deltas[id],
				Available: qty,
			}
		}
	}

	for _, id := range ids {
		if deltas[id] == 0 {
			continue
		}
		if err := tx.SetQuantity(ctx, id, current[id]+deltas[id]); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
