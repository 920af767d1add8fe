package pos

import "time"

// WalkInCustomer dipakai kalau order tidak punya customer record.
const WalkInCustomer = "walk-in"

type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PriceCents   int       `json:"price_cents"`
	Quantity     int       `json:"quantity"` // stok tersedia; hanya ditulis lewat Ledger
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name,omitempty"` // denormalized, boleh stale
	SerialNumber string    `json:"serial_number,omitempty"`
	Barcode      string    `json:"barcode,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Order struct {
	ID             string      `json:"id"`
	OrderNumber    string      `json:"order_number"` // time-derived, di-set sekali saat create
	CustomerID     string      `json:"customer_id"`
	CustomerName   string      `json:"customer_name"` // denormalized, boleh stale
	CustomerMobile string      `json:"customer_mobile,omitempty"`
	Items          []OrderLine `json:"items"`
	SubtotalCents  int         `json:"subtotal_cents"`
	TaxCents       int         `json:"tax_cents"`
	TotalCents     int         `json:"total_cents"`
	OrderDate      time.Time   `json:"order_date"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// OrderLine snapshot harga saat jual; harga product boleh berubah belakangan,
// line tidak ikut berubah.
type OrderLine struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	PriceCents   int    `json:"price_cents"`
	BillQuantity int    `json:"bill_quantity"`
	SerialNumber string `json:"serial_number,omitempty"`
	Barcode      string `json:"barcode,omitempty"`
}

// Cart: isi order yang sudah divalidasi oleh billing UI (product sudah
// di-resolve dari barcode/serial number).
type Cart struct {
	CustomerID     string      `json:"customer_id"`
	CustomerName   string      `json:"customer_name"`
	CustomerMobile string      `json:"customer_mobile"`
	Items          []OrderLine `json:"items"`
	OrderDate      time.Time   `json:"order_date"`
}
