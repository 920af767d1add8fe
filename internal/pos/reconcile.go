package pos

// TaxRatePercent: pajak flat 18% dihitung saat commit, tidak disimpan per line.
const TaxRatePercent = 18

// Totals menghitung subtotal/tax/total dari line yang akan di-commit.
func Totals(items []OrderLine) (subtotal, tax, total int) {
	for _, it := range items {
		subtotal += it.PriceCents * it.BillQuantity
	}
	tax = taxCents(subtotal)
	return subtotal, tax, subtotal + tax
}

// round half-up di cent.
func taxCents(subtotal int) int {
	return (subtotal*TaxRatePercent + 50) / 100
}

// DropZeroLines buang line dengan BillQuantity == 0 (artinya "dihapus" dalam
// sesi edit); line begitu tidak boleh ada di order yang di-persist.
func DropZeroLines(items []OrderLine) []OrderLine {
	out := make([]OrderLine, 0, len(items))
	for _, it := range items {
		if it.BillQuantity == 0 {
			continue
		}
		out = append(out, it)
	}
	return out
}

// DeltasForCreate: setiap line mengkonsumsi stok sebesar BillQuantity.
func DeltasForCreate(items []OrderLine) map[string]int {
	deltas := make(map[string]int, len(items))
	for _, it := range items {
		deltas[it.ProductID] -= it.BillQuantity
	}
	return deltas
}

// DeltasForEdit: delta stok per product = original - revised di union kedua
// daftar. Positif berarti stok balik (release), negatif berarti ambil stok
// tambahan. Quantity original dihitung sebagai stok yang sudah di-reserve dan
// boleh dialokasi ulang, bukan inventory bebas.
//
// Line revised dengan quantity 0 menyumbang 0 (product dihapus, full release).
// Product yang quantity-nya tidak berubah tetap muncul dengan delta 0 supaya
// batch atomiknya well-defined dan edit identik berulang jadi no-op.
func DeltasForEdit(original, revised []OrderLine) map[string]int {
	origQty := make(map[string]int, len(original))
	for _, it := range original {
		origQty[it.ProductID] += it.BillQuantity
	}
	revQty := make(map[string]int, len(revised))
	for _, it := range revised {
		if it.BillQuantity == 0 {
			continue
		}
		revQty[it.ProductID] += it.BillQuantity
	}

	deltas := make(map[string]int, len(origQty)+len(revQty))
	for id, q := range origQty {
		deltas[id] = q - revQty[id]
	}
	for id, q := range revQty {
		if _, seen := origQty[id]; !seen {
			deltas[id] = -q
		}
	}
	return deltas
}
