package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-retail-pos.git/internal/pos"
)

type stubService struct {
	createFn      func(ctx context.Context, cart pos.Cart) (*pos.Order, error)
	editFn        func(ctx context.Context, orderID string, revised []pos.OrderLine) (*pos.EditResult, error)
	getOrderFn    func(ctx context.Context, id string) (*pos.Order, error)
	getProductFn  func(ctx context.Context, id string) (*pos.Product, error)
	pageProductFn func(ctx context.Context, req pos.PageRequest) (pos.Page[pos.Product], error)
	pageOrderFn   func(ctx context.Context, req pos.PageRequest) (pos.Page[pos.Order], error)
}

func (s *stubService) CreateOrder(ctx context.Context, cart pos.Cart) (*pos.Order, error) {
	return s.createFn(ctx, cart)
}
func (s *stubService) EditOrder(ctx context.Context, orderID string, revised []pos.OrderLine) (*pos.EditResult, error) {
	return s.editFn(ctx, orderID, revised)
}
func (s *stubService) GetOrder(ctx context.Context, id string) (*pos.Order, error) {
	return s.getOrderFn(ctx, id)
}
func (s *stubService) GetProduct(ctx context.Context, id string) (*pos.Product, error) {
	return s.getProductFn(ctx, id)
}
func (s *stubService) PageProducts(ctx context.Context, req pos.PageRequest) (pos.Page[pos.Product], error) {
	return s.pageProductFn(ctx, req)
}
func (s *stubService) PageOrders(ctx context.Context, req pos.PageRequest) (pos.Page[pos.Order], error) {
	return s.pageOrderFn(ctx, req)
}

type recordedEvent struct {
	key   []byte
	value []byte
}

type fakePublisher struct{ events []recordedEvent }

func (f *fakePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	f.events = append(f.events, recordedEvent{key: key, value: value})
}

func newTestHandler(svc OrderService) (*POSHandler, *fakePublisher, *fakePublisher, http.Handler) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	created := &fakePublisher{}
	edited := &fakePublisher{}
	h := &POSHandler{
		Service: svc,
		// alamat mati: cache selalu miss dan degrade ke store
		Redis:    redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}),
		Created:  created,
		Edited:   edited,
		Log:      log,
		Name:     "pos-test",
		PageSize: 10,
	}
	r := NewRouter()
	h.Register(r)
	return h, created, edited, r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateOrderHandler(t *testing.T) {
	order := &pos.Order{
		ID: "o1", OrderNumber: "ORD-20260831143055-123",
		Items:         []pos.OrderLine{{ProductID: "p1", BillQuantity: 2, PriceCents: 500}},
		SubtotalCents: 1000, TaxCents: 180, TotalCents: 1180,
	}
	svc := &stubService{createFn: func(ctx context.Context, cart pos.Cart) (*pos.Order, error) {
		assert.Len(t, cart.Items, 1)
		return order, nil
	}}
	_, created, _, r := newTestHandler(svc)

	w := doJSON(t, r, http.MethodPost, "/orders", pos.Cart{
		Items: []pos.OrderLine{{ProductID: "p1", BillQuantity: 2, PriceCents: 500}},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp OrderResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "o1", resp.OrderID)
	assert.Equal(t, 1180, resp.TotalCents)

	require.Len(t, created.events, 1)
	assert.Equal(t, []byte("o1"), created.events[0].key)
	var env pos.Envelope
	require.NoError(t, json.Unmarshal(created.events[0].value, &env))
	assert.Equal(t, pos.EventOrderCreated, env.EventType)
	assert.Equal(t, "o1", env.CorrelationID)
}

func TestCreateOrderHandlerInsufficientStock(t *testing.T) {
	svc := &stubService{createFn: func(ctx context.Context, cart pos.Cart) (*pos.Order, error) {
		return nil, &pos.InsufficientStockError{ProductID: "p1", Requested: 3, Available: 1}
	}}
	_, created, _, r := newTestHandler(svc)

	w := doJSON(t, r, http.MethodPost, "/orders", pos.Cart{
		Items: []pos.OrderLine{{ProductID: "p1", BillQuantity: 3}},
	})

	require.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "p1", resp["product_id"])
	assert.Equal(t, float64(3), resp["requested"])
	assert.Equal(t, float64(1), resp["available"])
	assert.Empty(t, created.events)
}

func TestCreateOrderHandlerEmptyCart(t *testing.T) {
	svc := &stubService{createFn: func(ctx context.Context, cart pos.Cart) (*pos.Order, error) {
		return nil, pos.ErrEmptyOrder
	}}
	_, _, _, r := newTestHandler(svc)

	w := doJSON(t, r, http.MethodPost, "/orders", pos.Cart{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEditOrderHandler(t *testing.T) {
	order := &pos.Order{ID: "o1", OrderNumber: "ORD-1", TotalCents: 590}
	svc := &stubService{editFn: func(ctx context.Context, orderID string, revised []pos.OrderLine) (*pos.EditResult, error) {
		assert.Equal(t, "o1", orderID)
		return &pos.EditResult{Order: order, Touched: []string{"p1", "p2"}}, nil
	}}
	_, _, edited, r := newTestHandler(svc)

	w := doJSON(t, r, http.MethodPut, "/orders/o1", EditOrderReq{
		Items: []pos.OrderLine{{ProductID: "p1", BillQuantity: 1, PriceCents: 500}},
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, edited.events, 1)
	var env pos.Envelope
	require.NoError(t, json.Unmarshal(edited.events[0].value, &env))
	assert.Equal(t, pos.EventOrderEdited, env.EventType)
}

func TestEditOrderHandlerNotFound(t *testing.T) {
	svc := &stubService{editFn: func(ctx context.Context, orderID string, revised []pos.OrderLine) (*pos.EditResult, error) {
		return nil, pos.ErrNotFound
	}}
	_, _, edited, r := newTestHandler(svc)

	w := doJSON(t, r, http.MethodPut, "/orders/ghost", EditOrderReq{
		Items: []pos.OrderLine{{ProductID: "p1", BillQuantity: 1}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, edited.events)
}

func TestGetOrderHandler(t *testing.T) {
	svc := &stubService{getOrderFn: func(ctx context.Context, id string) (*pos.Order, error) {
		return &pos.Order{ID: id, OrderNumber: "ORD-1"}, nil
	}}
	_, _, _, r := newTestHandler(svc)

	w := doJSON(t, r, http.MethodGet, "/orders/o1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var o pos.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.Equal(t, "o1", o.ID)
}

func TestGetOrderHandlerStoreUnavailable(t *testing.T) {
	svc := &stubService{getOrderFn: func(ctx context.Context, id string) (*pos.Order, error) {
		return nil, pos.ErrStoreUnavailable
	}}
	_, _, _, r := newTestHandler(svc)

	w := doJSON(t, r, http.MethodGet, "/orders/o1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListProductsHandler(t *testing.T) {
	svc := &stubService{pageProductFn: func(ctx context.Context, req pos.PageRequest) (pos.Page[pos.Product], error) {
		assert.Equal(t, pos.DirNext, req.Direction)
		assert.Equal(t, 5, req.Size)
		return pos.Page[pos.Product]{
			Items:   []pos.Product{{ID: "p1", Name: "Kopi"}},
			State:   pos.CursorState{First: &pos.Cursor{Key: "Kopi", ID: "p1"}},
			HasNext: true,
		}, nil
	}}
	_, _, _, r := newTestHandler(svc)

	w := doJSON(t, r, http.MethodGet, "/products?dir=next&page_size=5", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp PageResp[pos.Product]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.True(t, resp.HasNext)

	st, err := pos.DecodeState(resp.Cursor)
	require.NoError(t, err)
	require.NotNil(t, st.First)
	assert.Equal(t, "Kopi", st.First.Key)
}

func TestListOrdersHandlerBadCursor(t *testing.T) {
	svc := &stubService{pageOrderFn: func(ctx context.Context, req pos.PageRequest) (pos.Page[pos.Order], error) {
		return pos.Page[pos.Order]{}, pos.ErrInvalidPage
	}}
	_, _, _, r := newTestHandler(svc)

	w := doJSON(t, r, http.MethodGet, "/orders?cursor=%25%25", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
