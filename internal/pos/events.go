package pos

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated = "OrderCreated"
	EventOrderEdited  = "OrderEdited"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type LinePayload struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	PriceCents   int    `json:"price_cents"`
	BillQuantity int    `json:"bill_quantity"`
}

type OrderCreatedPayload struct {
	OrderID       string        `json:"order_id"`
	OrderNumber   string        `json:"order_number"`
	CustomerID    string        `json:"customer_id"`
	Items         []LinePayload `json:"items"`
	SubtotalCents int           `json:"subtotal_cents"`
	TaxCents      int           `json:"tax_cents"`
	TotalCents    int           `json:"total_cents"`
}

type OrderEditedPayload struct {
	OrderID       string        `json:"order_id"`
	OrderNumber   string        `json:"order_number"`
	Items         []LinePayload `json:"items"`
	SubtotalCents int           `json:"subtotal_cents"`
	TaxCents      int           `json:"tax_cents"`
	TotalCents    int           `json:"total_cents"`
}

func ToLinePayloads(items []OrderLine) []LinePayload {
	out := make([]LinePayload, 0, len(items))
	for _, it := range items {
		out = append(out, LinePayload{
			ProductID:    it.ProductID,
			Name:         it.Name,
			PriceCents:   it.PriceCents,
			BillQuantity: it.BillQuantity,
		})
	}
	return out
}
