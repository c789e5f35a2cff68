// Package handler exposes the client, order, coupon and receipt services
// over a JSON HTTP API.
package handler

import (
	"context"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/xenking/repairdesk/internal/artifact"
	"github.com/xenking/repairdesk/internal/domain/client"
	"github.com/xenking/repairdesk/internal/domain/coupon"
	"github.com/xenking/repairdesk/internal/domain/order"
	"github.com/xenking/repairdesk/internal/domain/receipt"
	"github.com/xenking/repairdesk/pkg/httpmiddleware"
)

// ClientService manages the client directory.
type ClientService interface {
	Create(ctx context.Context, c client.Client) (*client.Client, error)
	Get(ctx context.Context, id int64) (*client.Client, error)
	List(ctx context.Context) ([]client.Client, error)
	Delete(ctx context.Context, id int64) error
}

// OrderService is the order orchestrator used by the handlers.
type OrderService interface {
	CreateOrder(ctx context.Context, req order.CreateRequest) (*order.CreateResult, error)
	EditOrder(ctx context.Context, id int64, details order.Details) (*order.EditResult, error)
	DeleteOrder(ctx context.Context, id int64) (*order.DeleteResult, error)
	RegenerateDocument(ctx context.Context, id int64) (*order.Order, error)
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
	ListOrders(ctx context.Context, f order.Filter) ([]order.Order, error)
	Summary(ctx context.Context) (*order.Summary, error)
}

// CouponLedger is the coupon state owner used by the handlers.
type CouponLedger interface {
	Issue(ctx context.Context, clientID int64, percent decimal.Decimal) (*coupon.Coupon, error)
	Get(ctx context.Context, couponID int64) (*coupon.Coupon, error)
	UpdateDiscount(ctx context.Context, couponID int64, percent decimal.Decimal) (*coupon.Coupon, error)
	Delete(ctx context.Context, couponID int64) error
	Redeem(ctx context.Context, couponID, clientID, orderID int64) (decimal.Decimal, error)
	Revert(ctx context.Context, couponID, orderID int64) error
	ListAvailable(ctx context.Context, clientID int64) ([]coupon.Coupon, error)
}

// ReceiptService issues and manages payment receipts.
type ReceiptService interface {
	Issue(ctx context.Context, req receipt.IssueRequest) (*receipt.Result, error)
	Edit(ctx context.Context, id int64, req receipt.EditRequest) (*receipt.Result, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*receipt.Receipt, error)
	ListByClient(ctx context.Context, clientID int64) ([]receipt.Receipt, error)
}

// Documents opens stored artifacts for download.
type Documents interface {
	Open(ctx context.Context, ref string) (*artifact.Artifact, error)
}

// Config holds non-dependency settings.
type Config struct {
	// RequestTimeout bounds every API call. Zero disables the limit.
	RequestTimeout time.Duration
}

// Handler serves the /api routes.
type Handler struct {
	clients   ClientService
	orders    OrderService
	coupons   CouponLedger
	receipts  ReceiptService
	documents Documents
	auth      *Authenticator
	timeout   time.Duration
	text      *bluemonday.Policy
}

// New constructs a Handler.
func New(
	cfg Config,
	clients ClientService,
	orders OrderService,
	coupons CouponLedger,
	receipts ReceiptService,
	documents Documents,
	auth *Authenticator,
) *Handler {
	return &Handler{
		clients:   clients,
		orders:    orders,
		coupons:   coupons,
		receipts:  receipts,
		documents: documents,
		auth:      auth,
		timeout:   cfg.RequestTimeout,
		text:      bluemonday.StrictPolicy(),
	}
}

// Routes registers the API on r. Every route requires an API key.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.auth.Middleware())
		if h.timeout > 0 {
			r.Use(timeout(h.timeout))
		}

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Get("/", h.listOrders)
			r.Get("/summary", h.summary)
			r.Get("/{id}", h.getOrder)
			r.Put("/{id}", h.editOrder)
			r.Delete("/{id}", h.deleteOrder)
			r.Post("/{id}/document", h.regenerateOrderDocument)
			r.Get("/{id}/document", h.downloadOrderDocument)
		})
		r.Route("/coupons", func(r chi.Router) {
			r.Post("/", h.issueCoupon)
			r.Get("/{id}", h.getCoupon)
			r.Patch("/{id}", h.updateCoupon)
			r.Delete("/{id}", h.deleteCoupon)
			r.Post("/{id}/redeem", h.redeemCoupon)
			r.Post("/{id}/revert", h.revertCoupon)
		})
		r.Route("/receipts", func(r chi.Router) {
			r.Post("/", h.issueReceipt)
			r.Get("/{id}", h.getReceipt)
			r.Put("/{id}", h.editReceipt)
			r.Delete("/{id}", h.deleteReceipt)
			r.Get("/{id}/document", h.downloadReceiptDocument)
		})
		r.Route("/clients", func(r chi.Router) {
			r.Post("/", h.createClient)
			r.Get("/", h.listClients)
			r.Get("/{id}", h.getClient)
			r.Delete("/{id}", h.deleteClient)
			r.Get("/{id}/coupons", h.listClientCoupons)
			r.Get("/{id}/receipts", h.listClientReceipts)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpmiddleware.WriteError(w, http.StatusNotFound, "route_not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpmiddleware.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
}

func timeout(d time.Duration) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clean strips markup from free text. The policy escapes what it keeps, so
// entities are decoded again for plain-text storage.
func (h *Handler) clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(h.text.Sanitize(s)))
}
