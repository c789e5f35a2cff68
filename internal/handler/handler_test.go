package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/repairdesk/internal/artifact"
	"github.com/xenking/repairdesk/internal/domain/auth"
	"github.com/xenking/repairdesk/internal/domain/client"
	"github.com/xenking/repairdesk/internal/domain/cost"
	"github.com/xenking/repairdesk/internal/domain/coupon"
	"github.com/xenking/repairdesk/internal/domain/order"
	"github.com/xenking/repairdesk/internal/domain/receipt"
	"github.com/xenking/repairdesk/pkg/httpmiddleware"
)

const (
	testKey    = "test-key"
	testPepper = "pepper"
)

// --- Mock implementations ---

type stubClients struct {
	createFn func(context.Context, client.Client) (*client.Client, error)
	getFn    func(context.Context, int64) (*client.Client, error)
	listFn   func(context.Context) ([]client.Client, error)
	deleteFn func(context.Context, int64) error
}

func (s *stubClients) Create(ctx context.Context, c client.Client) (*client.Client, error) {
	return s.createFn(ctx, c)
}

func (s *stubClients) Get(ctx context.Context, id int64) (*client.Client, error) {
	return s.getFn(ctx, id)
}

func (s *stubClients) List(ctx context.Context) ([]client.Client, error) {
	return s.listFn(ctx)
}

func (s *stubClients) Delete(ctx context.Context, id int64) error {
	return s.deleteFn(ctx, id)
}

type stubOrders struct {
	createFn     func(context.Context, order.CreateRequest) (*order.CreateResult, error)
	editFn       func(context.Context, int64, order.Details) (*order.EditResult, error)
	deleteFn     func(context.Context, int64) (*order.DeleteResult, error)
	regenerateFn func(context.Context, int64) (*order.Order, error)
	getFn        func(context.Context, int64) (*order.Order, error)
	listFn       func(context.Context, order.Filter) ([]order.Order, error)
	summaryFn    func(context.Context) (*order.Summary, error)
}

func (s *stubOrders) CreateOrder(ctx context.Context, req order.CreateRequest) (*order.CreateResult, error) {
	if s.createFn != nil {
		return s.createFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (s *stubOrders) EditOrder(ctx context.Context, id int64, d order.Details) (*order.EditResult, error) {
	if s.editFn != nil {
		return s.editFn(ctx, id, d)
	}
	return nil, errors.New("not implemented")
}

func (s *stubOrders) DeleteOrder(ctx context.Context, id int64) (*order.DeleteResult, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (s *stubOrders) RegenerateDocument(ctx context.Context, id int64) (*order.Order, error) {
	if s.regenerateFn != nil {
		return s.regenerateFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (s *stubOrders) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, order.ErrNotFound
}

func (s *stubOrders) ListOrders(ctx context.Context, f order.Filter) ([]order.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, f)
	}
	return nil, nil
}

func (s *stubOrders) Summary(ctx context.Context) (*order.Summary, error) {
	if s.summaryFn != nil {
		return s.summaryFn(ctx)
	}
	return nil, errors.New("not implemented")
}

type stubCoupons struct {
	issueFn  func(context.Context, int64, decimal.Decimal) (*coupon.Coupon, error)
	getFn    func(context.Context, int64) (*coupon.Coupon, error)
	updateFn func(context.Context, int64, decimal.Decimal) (*coupon.Coupon, error)
	deleteFn func(context.Context, int64) error
	redeemFn func(context.Context, int64, int64, int64) (decimal.Decimal, error)
	revertFn func(context.Context, int64, int64) error
	listFn   func(context.Context, int64) ([]coupon.Coupon, error)
}

func (s *stubCoupons) Issue(ctx context.Context, clientID int64, pct decimal.Decimal) (*coupon.Coupon, error) {
	return s.issueFn(ctx, clientID, pct)
}

func (s *stubCoupons) Get(ctx context.Context, id int64) (*coupon.Coupon, error) {
	return s.getFn(ctx, id)
}

func (s *stubCoupons) UpdateDiscount(ctx context.Context, id int64, pct decimal.Decimal) (*coupon.Coupon, error) {
	return s.updateFn(ctx, id, pct)
}

func (s *stubCoupons) Delete(ctx context.Context, id int64) error {
	return s.deleteFn(ctx, id)
}

func (s *stubCoupons) Redeem(ctx context.Context, couponID, clientID, orderID int64) (decimal.Decimal, error) {
	return s.redeemFn(ctx, couponID, clientID, orderID)
}

func (s *stubCoupons) Revert(ctx context.Context, couponID, orderID int64) error {
	return s.revertFn(ctx, couponID, orderID)
}

func (s *stubCoupons) ListAvailable(ctx context.Context, clientID int64) ([]coupon.Coupon, error) {
	return s.listFn(ctx, clientID)
}

type stubReceipts struct {
	issueFn func(context.Context, receipt.IssueRequest) (*receipt.Result, error)
	getFn   func(context.Context, int64) (*receipt.Receipt, error)
}

func (s *stubReceipts) Issue(ctx context.Context, req receipt.IssueRequest) (*receipt.Result, error) {
	return s.issueFn(ctx, req)
}

func (s *stubReceipts) Edit(context.Context, int64, receipt.EditRequest) (*receipt.Result, error) {
	return nil, errors.New("not implemented")
}

func (s *stubReceipts) Delete(context.Context, int64) error { return receipt.ErrNotFound }

func (s *stubReceipts) Get(ctx context.Context, id int64) (*receipt.Receipt, error) {
	return s.getFn(ctx, id)
}

func (s *stubReceipts) ListByClient(context.Context, int64) ([]receipt.Receipt, error) {
	return []receipt.Receipt{}, nil
}

type stubDocuments map[string]*artifact.Artifact

func (s stubDocuments) Open(_ context.Context, ref string) (*artifact.Artifact, error) {
	a, ok := s[ref]
	if !ok {
		return nil, artifact.ErrNotFound
	}
	return a, nil
}

type stubKeys struct{ err error }

func (s stubKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	if hash != auth.HashKey([]byte(testPepper), testKey) {
		return nil, auth.ErrNotFound
	}
	return &auth.APIKeyInfo{ID: "admin", KeyHash: hash, Name: "Admin"}, nil
}

// --- Helpers ---

type fixture struct {
	clients  *stubClients
	orders   *stubOrders
	coupons  *stubCoupons
	receipts *stubReceipts
	docs     stubDocuments
	keys     stubKeys
}

func newFixture() *fixture {
	return &fixture{
		clients:  &stubClients{},
		orders:   &stubOrders{},
		coupons:  &stubCoupons{},
		receipts: &stubReceipts{},
		docs:     stubDocuments{},
	}
}

func (f *fixture) router() http.Handler {
	h := New(Config{RequestTimeout: time.Second}, f.clients, f.orders, f.coupons, f.receipts, f.docs,
		NewAuthenticator(f.keys, []byte(testPepper)))
	r := chi.NewRouter()
	r.Route("/api", h.Routes)
	return r
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(APIKeyHeader, testKey)
	w := httptest.NewRecorder()
	f.router().ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func sampleOrder() *order.Order {
	ref := "orders/482913/01J.pdf"
	couponID := int64(3)
	return &order.Order{
		ID:       1,
		Number:   482913,
		ClientID: 7,
		Details: order.Details{
			Service:   "Troca de tela",
			Parts:     []cost.PartCost{{Name: "Tela", Cost: decimal.RequireFromString("150")}},
			LaborCost: decimal.RequireFromString("50"),
			Status:    order.StatusPending,
		},
		PartsSubtotal:   decimal.RequireFromString("150"),
		Subtotal:        decimal.RequireFromString("200"),
		DiscountPercent: decimal.NewFromInt(10),
		DiscountAmount:  decimal.NewFromInt(20),
		CouponID:        &couponID,
		Total:           decimal.NewFromInt(180),
		CreatedAt:       time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		ArtifactRef:     &ref,
	}
}

// --- Tests ---

func TestAuthentication(t *testing.T) {
	tests := []struct {
		name string
		key  string
		keys stubKeys
		want int
	}{
		{name: "missing key", key: "", want: http.StatusUnauthorized},
		{name: "wrong key", key: "nope", want: http.StatusUnauthorized},
		{name: "valid key", key: testKey, want: http.StatusOK},
		{name: "repository down", key: testKey, keys: stubKeys{err: errors.New("db down")}, want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.keys = tt.keys
			f.orders.getFn = func(context.Context, int64) (*order.Order, error) { return sampleOrder(), nil }

			req := httptest.NewRequest(http.MethodGet, "/api/orders/1", nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			w := httptest.NewRecorder()
			f.router().ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestCreateOrder(t *testing.T) {
	f := newFixture()
	var got order.CreateRequest
	f.orders.createFn = func(_ context.Context, req order.CreateRequest) (*order.CreateResult, error) {
		got = req
		return &order.CreateResult{Order: sampleOrder()}, nil
	}

	w := f.do(t, http.MethodPost, "/api/orders", `{
		"clientId": 7,
		"couponId": 3,
		"service": "<b>Troca</b> de tela",
		"device": {"brand": "Samsung", "model": "A52"},
		"parts": [{"name": "Tela", "cost": "150,00"}, {"name": " ", "cost": 99}, {"name": "Cola", "cost": 12.5}],
		"laborCost": 50
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	assert.Equal(t, int64(7), got.ClientID)
	require.NotNil(t, got.CouponID)
	assert.Equal(t, int64(3), *got.CouponID)
	assert.Equal(t, "Troca de tela", got.Details.Service)
	assert.Equal(t, "Samsung", got.Details.Device.Brand)
	require.Len(t, got.Details.Parts, 2)
	assert.True(t, decimal.NewFromInt(150).Equal(got.Details.Parts[0].Cost))
	assert.True(t, decimal.RequireFromString("12.5").Equal(got.Details.Parts[1].Cost))
	assert.True(t, decimal.NewFromInt(50).Equal(got.Details.LaborCost))

	resp := decodeBody[map[string]any](t, w)
	assert.Equal(t, float64(482913), resp["number"])
	assert.Equal(t, "180", resp["total"])
	assert.Equal(t, "20", resp["discountAmount"])
	assert.Equal(t, float64(3), resp["couponId"])
	assert.NotContains(t, resp, "documentError")
}

func TestCreateOrder_DocumentFailureStillCreated(t *testing.T) {
	f := newFixture()
	f.orders.createFn = func(context.Context, order.CreateRequest) (*order.CreateResult, error) {
		o := sampleOrder()
		o.ArtifactRef = nil
		return &order.CreateResult{
			Order:       o,
			DocumentErr: &order.DocumentError{OrderID: o.ID, Err: errors.New("disk full")},
		}, nil
	}

	w := f.do(t, http.MethodPost, "/api/orders", map[string]any{"clientId": 7})
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decodeBody[map[string]any](t, w)
	assert.Equal(t, order.ErrArtifactGenerationFailed.Error(), resp["documentError"])
	assert.NotContains(t, resp, "artifactRef")
}

func TestCreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "empty body", body: "", wantCode: http.StatusBadRequest, wantErr: "bad_request"},
		{name: "unknown field", body: `{"clientId":7,"total":1}`, wantCode: http.StatusBadRequest, wantErr: "bad_request"},
		{name: "missing client", body: `{}`, wantCode: http.StatusBadRequest, wantErr: "bad_request"},
		{name: "client not found", body: `{"clientId":9}`, err: client.ErrNotFound, wantCode: http.StatusNotFound, wantErr: "client_not_found"},
		{name: "coupon not found", body: `{"clientId":7}`, err: errors.Wrap(coupon.ErrCouponNotFound, "redeem"), wantCode: http.StatusNotFound, wantErr: "coupon_not_found"},
		{name: "coupon used", body: `{"clientId":7}`, err: coupon.ErrCouponAlreadyUsed, wantCode: http.StatusConflict, wantErr: "coupon_already_used"},
		{name: "coupon not owned", body: `{"clientId":7}`, err: coupon.ErrCouponNotOwned, wantCode: http.StatusUnprocessableEntity, wantErr: "coupon_not_owned"},
		{name: "invalid status", body: `{"clientId":7,"status":"lost"}`, err: order.ErrInvalidStatus, wantCode: http.StatusUnprocessableEntity, wantErr: "invalid_status"},
		{name: "conflicts", body: `{"clientId":7}`, err: order.ErrConflictRetriesExceeded, wantCode: http.StatusConflict, wantErr: "order_number_conflict"},
		{name: "internal", body: `{"clientId":7}`, err: errors.New("db down"), wantCode: http.StatusInternalServerError, wantErr: "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.orders.createFn = func(context.Context, order.CreateRequest) (*order.CreateResult, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return &order.CreateResult{Order: sampleOrder()}, nil
			}

			w := f.do(t, http.MethodPost, "/api/orders", tt.body)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			body := decodeBody[httpmiddleware.ErrorBody](t, w)
			assert.Equal(t, tt.wantErr, body.Error)
		})
	}
}

func TestListOrders(t *testing.T) {
	f := newFixture()
	var got order.Filter
	f.orders.listFn = func(_ context.Context, flt order.Filter) ([]order.Order, error) {
		got = flt
		return []order.Order{*sampleOrder()}, nil
	}

	w := f.do(t, http.MethodGet, "/api/orders?clientId=7&status=paid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.Filter{ClientID: 7, Status: order.StatusPaid}, got)
	assert.Len(t, decodeBody[[]orderResponse](t, w), 1)

	w = f.do(t, http.MethodGet, "/api/orders?clientId=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEditOrder(t *testing.T) {
	f := newFixture()
	f.orders.editFn = func(_ context.Context, id int64, d order.Details) (*order.EditResult, error) {
		assert.Equal(t, int64(1), id)
		assert.Equal(t, order.StatusReady, d.Status)
		o := sampleOrder()
		o.Details = d
		return &order.EditResult{Order: o}, nil
	}

	w := f.do(t, http.MethodPut, "/api/orders/1", map[string]any{"status": "ready", "laborCost": "80"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ready", decodeBody[map[string]any](t, w)["status"])

	w = f.do(t, http.MethodPut, "/api/orders/0", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture()
	f.orders.deleteFn = func(context.Context, int64) (*order.DeleteResult, error) {
		return &order.DeleteResult{Compensations: []error{
			&order.CompensationError{Step: order.StepReleaseArtifact, Err: errors.New("bucket gone")},
		}}, nil
	}

	w := f.do(t, http.MethodDelete, "/api/orders/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[deleteOrderResponse](t, w)
	require.Len(t, resp.Compensations, 1)
	assert.Equal(t, order.StepReleaseArtifact, resp.Compensations[0].Step)

	f.orders.deleteFn = func(context.Context, int64) (*order.DeleteResult, error) {
		return nil, order.ErrNotFound
	}
	w = f.do(t, http.MethodDelete, "/api/orders/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderDocument(t *testing.T) {
	f := newFixture()
	o := sampleOrder()
	f.docs[*o.ArtifactRef] = &artifact.Artifact{Ref: *o.ArtifactRef, MIMEType: artifact.MIMETypePDF, Data: []byte("%PDF-1.3")}
	f.orders.getFn = func(_ context.Context, id int64) (*order.Order, error) {
		if id == 2 {
			bare := sampleOrder()
			bare.ArtifactRef = nil
			return bare, nil
		}
		return o, nil
	}

	w := f.do(t, http.MethodGet, "/api/orders/1/document", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, artifact.MIMETypePDF, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "01J.pdf")
	assert.Equal(t, "%PDF-1.3", w.Body.String())

	w = f.do(t, http.MethodGet, "/api/orders/2/document", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.orders.regenerateFn = func(_ context.Context, id int64) (*order.Order, error) {
		return nil, &order.DocumentError{OrderID: id, Err: errors.New("render")}
	}
	w = f.do(t, http.MethodPost, "/api/orders/1/document", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSummary(t *testing.T) {
	f := newFixture()
	f.orders.summaryFn = func(context.Context) (*order.Summary, error) {
		return &order.Summary{
			Balance:    decimal.RequireFromString("350.5"),
			Receivable: decimal.NewFromInt(120),
			Orders:     3,
			ByStatus:   map[order.Status]int{order.StatusPaid: 2, order.StatusCompleted: 1},
		}, nil
	}

	w := f.do(t, http.MethodGet, "/api/orders/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[map[string]any](t, w)
	assert.Equal(t, "350.5", resp["balance"])
	assert.Equal(t, float64(3), resp["orders"])
}

func TestCoupons(t *testing.T) {
	issued := &coupon.Coupon{ID: 3, ClientID: 7, DiscountPercent: decimal.NewFromInt(10), IssuedAt: time.Now()}

	t.Run("issue", func(t *testing.T) {
		f := newFixture()
		f.coupons.issueFn = func(_ context.Context, clientID int64, pct decimal.Decimal) (*coupon.Coupon, error) {
			if !coupon.ValidPercent(pct) {
				return nil, coupon.ErrInvalidDiscount
			}
			return issued, nil
		}

		w := f.do(t, http.MethodPost, "/api/coupons", `{"clientId":7,"discountPercent":"10"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, int64(3), decodeBody[couponResponse](t, w).ID)

		w = f.do(t, http.MethodPost, "/api/coupons", `{"clientId":7,"discountPercent":"150"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("redeem", func(t *testing.T) {
		f := newFixture()
		f.coupons.redeemFn = func(_ context.Context, couponID, clientID, orderID int64) (decimal.Decimal, error) {
			if clientID != 7 {
				return decimal.Zero, coupon.ErrCouponNotOwned
			}
			return decimal.NewFromInt(10), nil
		}

		w := f.do(t, http.MethodPost, "/api/coupons/3/redeem", map[string]any{"clientId": 7, "orderId": 1})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "10", decodeBody[map[string]any](t, w)["discountPercent"])

		w = f.do(t, http.MethodPost, "/api/coupons/3/redeem", map[string]any{"clientId": 8, "orderId": 1})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		w = f.do(t, http.MethodPost, "/api/coupons/3/redeem", map[string]any{"clientId": 7})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("revert", func(t *testing.T) {
		f := newFixture()
		f.coupons.revertFn = func(context.Context, int64, int64) error { return nil }
		w := f.do(t, http.MethodPost, "/api/coupons/3/revert", map[string]any{"orderId": 1})
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("update and delete locked", func(t *testing.T) {
		f := newFixture()
		f.coupons.updateFn = func(context.Context, int64, decimal.Decimal) (*coupon.Coupon, error) {
			return nil, coupon.ErrCouponLocked
		}
		f.coupons.deleteFn = func(context.Context, int64) error { return coupon.ErrCouponLocked }

		w := f.do(t, http.MethodPatch, "/api/coupons/3", `{"discountPercent":"20"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
		w = f.do(t, http.MethodDelete, "/api/coupons/3", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("list available", func(t *testing.T) {
		f := newFixture()
		f.coupons.listFn = func(_ context.Context, clientID int64) ([]coupon.Coupon, error) {
			assert.Equal(t, int64(7), clientID)
			return []coupon.Coupon{*issued}, nil
		}
		w := f.do(t, http.MethodGet, "/api/clients/7/coupons", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decodeBody[[]couponResponse](t, w), 1)
	})
}

func TestReceipts(t *testing.T) {
	f := newFixture()
	var got receipt.IssueRequest
	f.receipts.issueFn = func(_ context.Context, req receipt.IssueRequest) (*receipt.Result, error) {
		got = req
		if !req.Method.Valid() {
			return nil, receipt.ErrInvalidPaymentMethod
		}
		return &receipt.Result{Receipt: &receipt.Receipt{
			ID:            5,
			ClientID:      req.ClientID,
			OrderID:       req.OrderID,
			OrderNumber:   482913,
			OrderTotal:    decimal.NewFromInt(180),
			AmountPaid:    req.AmountPaid,
			PaymentMethod: req.Method,
			Installments:  req.Installments,
		}}, nil
	}
	f.receipts.getFn = func(context.Context, int64) (*receipt.Receipt, error) { return nil, receipt.ErrNotFound }

	w := f.do(t, http.MethodPost, "/api/receipts", `{"clientId":7,"orderId":1,"amountPaid":"180,00","paymentMethod":"credit_card","installments":3}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, decimal.NewFromInt(180).Equal(got.AmountPaid))
	assert.Equal(t, receipt.MethodCreditCard, got.Method)
	assert.Equal(t, 3, decodeBody[receiptResponse](t, w).Installments)

	w = f.do(t, http.MethodPost, "/api/receipts", `{"clientId":7,"orderId":1,"amountPaid":10,"paymentMethod":"barter"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(t, http.MethodGet, "/api/receipts/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodDelete, "/api/receipts/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/clients/7/receipts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody[[]receiptResponse](t, w))
}

func TestClients(t *testing.T) {
	maria := client.Client{ID: 7, Name: "Maria Silva", Phone: "11987654321", Document: "52998224725"}

	t.Run("create", func(t *testing.T) {
		f := newFixture()
		var got client.Client
		f.clients.createFn = func(_ context.Context, c client.Client) (*client.Client, error) {
			got = c
			if c.Name == "" {
				return nil, client.ErrInvalidName
			}
			c.ID = 7
			return &c, nil
		}

		w := f.do(t, http.MethodPost, "/api/clients",
			`{"name":"<b>Maria</b> Silva","phone":"11987654321","address":"Rua A & B"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "Maria Silva", got.Name)
		assert.Equal(t, "Rua A & B", got.Address)
		resp := decodeBody[clientResponse](t, w)
		assert.Equal(t, int64(7), resp.ID)
		assert.Equal(t, "Maria Silva", resp.Name)

		w = f.do(t, http.MethodPost, "/api/clients", `{"name":"<script>x</script>"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "invalid_client", decodeBody[httpmiddleware.ErrorBody](t, w).Error)

		w = f.do(t, http.MethodPost, "/api/clients", `{"name":"Maria","role":"admin"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list", func(t *testing.T) {
		f := newFixture()
		f.clients.listFn = func(context.Context) ([]client.Client, error) {
			return []client.Client{maria, {ID: 8, Name: "João Souza"}}, nil
		}

		w := f.do(t, http.MethodGet, "/api/clients", nil)
		require.Equal(t, http.StatusOK, w.Code)
		list := decodeBody[[]clientResponse](t, w)
		require.Len(t, list, 2)
		assert.Equal(t, int64(7), list[0].ID)
		assert.Equal(t, "João Souza", list[1].Name)
	})

	t.Run("get", func(t *testing.T) {
		f := newFixture()
		f.clients.getFn = func(_ context.Context, id int64) (*client.Client, error) {
			if id != 7 {
				return nil, client.ErrNotFound
			}
			return &maria, nil
		}

		w := f.do(t, http.MethodGet, "/api/clients/7", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "52998224725", decodeBody[clientResponse](t, w).Document)

		w = f.do(t, http.MethodGet, "/api/clients/9", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "client_not_found", decodeBody[httpmiddleware.ErrorBody](t, w).Error)

		w = f.do(t, http.MethodGet, "/api/clients/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		tests := []struct {
			name     string
			err      error
			wantCode int
			wantErr  string
		}{
			{name: "removed", wantCode: http.StatusNoContent},
			{name: "has dependents", err: client.ErrHasDependents, wantCode: http.StatusConflict, wantErr: "client_has_dependents"},
			{name: "not found", err: client.ErrNotFound, wantCode: http.StatusNotFound, wantErr: "client_not_found"},
			{name: "internal", err: errors.New("db down"), wantCode: http.StatusInternalServerError, wantErr: "internal"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture()
				f.clients.deleteFn = func(_ context.Context, id int64) error {
					assert.Equal(t, int64(7), id)
					return tt.err
				}

				w := f.do(t, http.MethodDelete, "/api/clients/7", nil)
				require.Equal(t, tt.wantCode, w.Code)
				if tt.wantErr != "" {
					assert.Equal(t, tt.wantErr, decodeBody[httpmiddleware.ErrorBody](t, w).Error)
				}
			})
		}
	})
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodGet, "/api/nothing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "route_not_found", decodeBody[httpmiddleware.ErrorBody](t, w).Error)
}

func TestAmount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `"150,50"`, want: "150.5"},
		{in: `150.5`, want: "150.5"},
		{in: `"abc"`, want: "0"},
		{in: `"-5"`, want: "0"},
		{in: `null`, want: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var a amount
			require.NoError(t, json.Unmarshal([]byte(tt.in), &a))
			assert.Equal(t, tt.want, a.decimal().String())
		})
	}
}
