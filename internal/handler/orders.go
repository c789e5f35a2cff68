package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/repairdesk/internal/domain/cost"
	"github.com/xenking/repairdesk/internal/domain/order"
)

// amount accepts a JSON number or string and parses it leniently, so
// "150,50" and 150.5 both work and garbage becomes zero.
type amount string

func (a *amount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		*a = amount(s)
		return nil
	}
	*a = amount(data)
	return nil
}

func (a amount) decimal() decimal.Decimal {
	return cost.ParseCostLenient(string(a))
}

type deviceJSON struct {
	Type   string `json:"type"`
	Brand  string `json:"brand"`
	Model  string `json:"model"`
	Serial string `json:"serial"`
}

type partRequest struct {
	Name string `json:"name"`
	Cost amount `json:"cost"`
}

type detailsRequest struct {
	Service           string        `json:"service"`
	Device            deviceJSON    `json:"device"`
	ReportedDefects   string        `json:"reportedDefects"`
	Diagnosis         string        `json:"diagnosis"`
	Parts             []partRequest `json:"parts"`
	LaborCost         amount        `json:"laborCost"`
	Status            string        `json:"status"`
	EstimatedDeadline *time.Time    `json:"estimatedDeadline"`
}

type createOrderRequest struct {
	ClientID int64  `json:"clientId"`
	CouponID *int64 `json:"couponId"`
	detailsRequest
}

// details converts the request into sanitized domain details. Parts without
// a name are dropped.
func (h *Handler) details(req detailsRequest) order.Details {
	parts := make([]cost.PartCost, 0, len(req.Parts))
	for _, p := range req.Parts {
		if part, ok := cost.ParseLine(h.clean(p.Name), string(p.Cost)); ok {
			parts = append(parts, part)
		}
	}
	return order.Details{
		Service: h.clean(req.Service),
		Device: order.Device{
			Type:   h.clean(req.Device.Type),
			Brand:  h.clean(req.Device.Brand),
			Model:  h.clean(req.Device.Model),
			Serial: h.clean(req.Device.Serial),
		},
		ReportedDefects:   h.clean(req.ReportedDefects),
		Diagnosis:         h.clean(req.Diagnosis),
		Parts:             parts,
		LaborCost:         req.LaborCost.decimal(),
		Status:            order.Status(req.Status),
		EstimatedDeadline: req.EstimatedDeadline,
	}
}

type partResponse struct {
	Name string          `json:"name"`
	Cost decimal.Decimal `json:"cost"`
}

type orderResponse struct {
	ID                int64           `json:"id"`
	Number            int             `json:"number"`
	ClientID          int64           `json:"clientId"`
	Status            order.Status    `json:"status"`
	Service           string          `json:"service"`
	Device            deviceJSON      `json:"device"`
	ReportedDefects   string          `json:"reportedDefects"`
	Diagnosis         string          `json:"diagnosis"`
	Parts             []partResponse  `json:"parts"`
	LaborCost         decimal.Decimal `json:"laborCost"`
	PartsSubtotal     decimal.Decimal `json:"partsSubtotal"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	DiscountPercent   decimal.Decimal `json:"discountPercent"`
	DiscountAmount    decimal.Decimal `json:"discountAmount"`
	CouponID          *int64          `json:"couponId,omitempty"`
	Total             decimal.Decimal `json:"total"`
	EstimatedDeadline *time.Time      `json:"estimatedDeadline,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	ArtifactRef       *string         `json:"artifactRef,omitempty"`
	DocumentError     string          `json:"documentError,omitempty"`
}

func toOrderResponse(o *order.Order, docErr error) orderResponse {
	parts := make([]partResponse, len(o.Parts))
	for i, p := range o.Parts {
		parts[i] = partResponse{Name: p.Name, Cost: p.Cost}
	}
	resp := orderResponse{
		ID:       o.ID,
		Number:   o.Number,
		ClientID: o.ClientID,
		Status:   o.Status,
		Service:  o.Service,
		Device: deviceJSON{
			Type:   o.Device.Type,
			Brand:  o.Device.Brand,
			Model:  o.Device.Model,
			Serial: o.Device.Serial,
		},
		ReportedDefects:   o.ReportedDefects,
		Diagnosis:         o.Diagnosis,
		Parts:             parts,
		LaborCost:         o.LaborCost,
		PartsSubtotal:     o.PartsSubtotal,
		Subtotal:          o.Subtotal,
		DiscountPercent:   o.DiscountPercent,
		DiscountAmount:    o.DiscountAmount,
		CouponID:          o.CouponID,
		Total:             o.Total,
		EstimatedDeadline: o.EstimatedDeadline,
		CreatedAt:         o.CreatedAt,
		ArtifactRef:       o.ArtifactRef,
	}
	if docErr != nil {
		resp.DocumentError = order.ErrArtifactGenerationFailed.Error()
	}
	return resp
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createOrderRequest
	if err := decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.ClientID <= 0 {
		writeError(ctx, w, badRequest("clientId is required"))
		return
	}

	res, err := h.orders.CreateOrder(ctx, order.CreateRequest{
		ClientID: req.ClientID,
		CouponID: req.CouponID,
		Details:  h.details(req.detailsRequest),
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(res.Order, res.DocumentErr))
}

func (h *Handler) editOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req detailsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := h.orders.EditOrder(ctx, id, h.details(req))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(res.Order, res.DocumentErr))
}

type compensationResponse struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}

type deleteOrderResponse struct {
	ID            int64                  `json:"id"`
	Compensations []compensationResponse `json:"compensations"`
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := h.orders.DeleteOrder(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	resp := deleteOrderResponse{ID: id, Compensations: []compensationResponse{}}
	for _, c := range res.Compensations {
		entry := compensationResponse{Error: c.Error()}
		var ce *order.CompensationError
		if errors.As(c, &ce) {
			entry.Step = ce.Step
		}
		resp.Compensations = append(resp.Compensations, entry)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	o, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o, nil))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := queryID(r, "clientId")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	orders, err := h.orders.ListOrders(ctx, order.Filter{
		ClientID: clientID,
		Status:   order.Status(r.URL.Query().Get("status")),
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i], nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) regenerateOrderDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	o, err := h.orders.RegenerateDocument(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o, nil))
}

func (h *Handler) downloadOrderDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	o, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	h.serveArtifact(w, r, o.ArtifactRef)
}

type summaryResponse struct {
	Balance    decimal.Decimal      `json:"balance"`
	Receivable decimal.Decimal      `json:"receivable"`
	Orders     int                  `json:"orders"`
	ByStatus   map[order.Status]int `json:"byStatus"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.orders.Summary(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Balance:    s.Balance,
		Receivable: s.Receivable,
		Orders:     s.Orders,
		ByStatus:   s.ByStatus,
	})
}
