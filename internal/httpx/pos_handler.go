package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	kafkax "github.com/ariefcatur/go-retail-pos.git/internal/kafka"
	"github.com/ariefcatur/go-retail-pos.git/internal/pos"
	"github.com/ariefcatur/go-retail-pos.git/internal/redisx"
)

type OrderService interface {
	CreateOrder(ctx context.Context, cart pos.Cart) (*pos.Order, error)
	EditOrder(ctx context.Context, orderID string, revised []pos.OrderLine) (*pos.EditResult, error)
	GetOrder(ctx context.Context, id string) (*pos.Order, error)
	GetProduct(ctx context.Context, id string) (*pos.Product, error)
	PageProducts(ctx context.Context, req pos.PageRequest) (pos.Page[pos.Product], error)
	PageOrders(ctx context.Context, req pos.PageRequest) (pos.Page[pos.Order], error)
}

type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type POSHandler struct {
	Service  OrderService
	Redis    *redis.Client
	Created  EventPublisher // topic pos.order.created
	Edited   EventPublisher // topic pos.order.edited
	Log      *logrus.Logger
	Name     string // nama producer di envelope
	PageSize int
}

func (h *POSHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Put("/orders/{id}", h.editOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/products", h.listProducts)
}

type EditOrderReq struct {
	Items []pos.OrderLine `json:"items"`
}

type OrderResp struct {
	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	SubtotalCents int    `json:"subtotal_cents"`
	TaxCents      int    `json:"tax_cents"`
	TotalCents    int    `json:"total_cents"`
}

func (h *POSHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var cart pos.Cart
	if err := json.NewDecoder(r.Body).Decode(&cart); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Service.CreateOrder(ctx, cart)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	h.invalidateProducts(ctx, productIDs(o.Items))
	h.publish(h.Created, pos.EventOrderCreated, o.ID, r.Header.Get("X-Request-Id"),
		pos.OrderCreatedPayload{
			OrderID:       o.ID,
			OrderNumber:   o.OrderNumber,
			CustomerID:    o.CustomerID,
			Items:         pos.ToLinePayloads(o.Items),
			SubtotalCents: o.SubtotalCents,
			TaxCents:      o.TaxCents,
			TotalCents:    o.TotalCents,
		})

	writeJSON(w, http.StatusCreated, OrderResp{
		OrderID: o.ID, OrderNumber: o.OrderNumber,
		SubtotalCents: o.SubtotalCents, TaxCents: o.TaxCents, TotalCents: o.TotalCents,
	})
}

func (h *POSHandler) editOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req EditOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Service.EditOrder(ctx, orderID, req.Items)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	o := res.Order

	// cache order + semua product yang kena delta jadi stale
	keys := []string{fmt.Sprintf(redisx.KeyOrder, o.ID)}
	for _, pid := range res.Touched {
		keys = append(keys, fmt.Sprintf(redisx.KeyProduct, pid))
	}
	if err := redisx.Invalidate(ctx, h.Redis, keys...); err != nil {
		h.Log.WithError(err).Warn("cache invalidate")
	}

	h.publish(h.Edited, pos.EventOrderEdited, o.ID, r.Header.Get("X-Request-Id"),
		pos.OrderEditedPayload{
			OrderID:       o.ID,
			OrderNumber:   o.OrderNumber,
			Items:         pos.ToLinePayloads(o.Items),
			SubtotalCents: o.SubtotalCents,
			TaxCents:      o.TaxCents,
			TotalCents:    o.TotalCents,
		})

	writeJSON(w, http.StatusOK, OrderResp{
		OrderID: o.ID, OrderNumber: o.OrderNumber,
		SubtotalCents: o.SubtotalCents, TaxCents: o.TaxCents, TotalCents: o.TotalCents,
	})
}

func (h *POSHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyOrder, id)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	// 2) fallback store
	o, err := h.Service.GetOrder(ctx, id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	b, _ := json.Marshal(o)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLOrder).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *POSHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyProduct, id)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	p, err := h.Service.GetProduct(ctx, id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	b, _ := json.Marshal(p)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLProduct).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

type PageResp[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor"`
	HasNext bool   `json:"has_next"`
}

func (h *POSHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	page, err := h.Service.PageProducts(ctx, h.pageRequest(r))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageResp[pos.Product]{
		Items: page.Items, Cursor: pos.EncodeState(page.State), HasNext: page.HasNext,
	})
}

func (h *POSHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	page, err := h.Service.PageOrders(ctx, h.pageRequest(r))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageResp[pos.Order]{
		Items: page.Items, Cursor: pos.EncodeState(page.State), HasNext: page.HasNext,
	})
}

func (h *POSHandler) pageRequest(r *http.Request) pos.PageRequest {
	q := r.URL.Query()
	size := h.PageSize
	if n, err := strconv.Atoi(q.Get("page_size")); err == nil && n > 0 {
		size = n
	}
	return pos.PageRequest{
		Direction: pos.Direction(q.Get("dir")),
		Token:     q.Get("cursor"),
		Size:      size,
		SortKey:   q.Get("sort"),
		Desc:      q.Get("order") == "desc",
	}
}

func (h *POSHandler) invalidateProducts(ctx context.Context, ids []string) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, fmt.Sprintf(redisx.KeyProduct, id))
	}
	if err := redisx.Invalidate(ctx, h.Redis, keys...); err != nil {
		h.Log.WithError(err).Warn("cache invalidate")
	}
}

func (h *POSHandler) publish(p EventPublisher, eventType, orderID, traceID string, payload any) {
	ev := pos.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Name,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(pos.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// writeErr memetakan taxonomy error core ke status HTTP. Insufficient stock
// dikirim lengkap (product, requested, available) supaya UI bisa highlight
// line yang bermasalah; tidak pernah diringkas jadi "transaction failed".
func (h *POSHandler) writeErr(w http.ResponseWriter, err error) {
	var ise *pos.InsufficientStockError
	switch {
	case errors.As(err, &ise):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "insufficient stock",
			"product_id": ise.ProductID,
			"requested":  ise.Requested,
			"available":  ise.Available,
		})
	case errors.Is(err, pos.ErrEmptyOrder),
		errors.Is(err, pos.ErrInvalidQuantity),
		errors.Is(err, pos.ErrDuplicateLine),
		errors.Is(err, pos.ErrInvalidPage):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, pos.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, pos.ErrStoreUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store unavailable, retry later"})
	default:
		h.Log.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func productIDs(items []pos.OrderLine) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ProductID)
	}
	return out
}
