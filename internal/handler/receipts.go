package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/repairdesk/internal/domain/receipt"
)

type paymentRequest struct {
	AmountPaid    amount `json:"amountPaid"`
	PaymentMethod string `json:"paymentMethod"`
	Installments  int    `json:"installments"`
}

type issueReceiptRequest struct {
	ClientID int64 `json:"clientId"`
	OrderID  int64 `json:"orderId"`
	paymentRequest
}

type receiptResponse struct {
	ID            int64           `json:"id"`
	ClientID      int64           `json:"clientId"`
	OrderID       int64           `json:"orderId"`
	OrderNumber   int             `json:"orderNumber"`
	OrderTotal    decimal.Decimal `json:"orderTotal"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	PaymentMethod receipt.Method  `json:"paymentMethod"`
	Installments  int             `json:"installments"`
	CreatedAt     time.Time       `json:"createdAt"`
	ArtifactRef   *string         `json:"artifactRef,omitempty"`
	DocumentError string          `json:"documentError,omitempty"`
}

func toReceiptResponse(rc *receipt.Receipt, docErr error) receiptResponse {
	resp := receiptResponse{
		ID:            rc.ID,
		ClientID:      rc.ClientID,
		OrderID:       rc.OrderID,
		OrderNumber:   rc.OrderNumber,
		OrderTotal:    rc.OrderTotal,
		AmountPaid:    rc.AmountPaid,
		PaymentMethod: rc.PaymentMethod,
		Installments:  rc.Installments,
		CreatedAt:     rc.CreatedAt,
		ArtifactRef:   rc.ArtifactRef,
	}
	if docErr != nil {
		resp.DocumentError = "receipt document generation failed"
	}
	return resp
}

func (h *Handler) issueReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req issueReceiptRequest
	if err := decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.ClientID <= 0 || req.OrderID <= 0 {
		writeError(ctx, w, badRequest("clientId and orderId are required"))
		return
	}

	res, err := h.receipts.Issue(ctx, receipt.IssueRequest{
		ClientID:     req.ClientID,
		OrderID:      req.OrderID,
		AmountPaid:   req.AmountPaid.decimal(),
		Method:       receipt.Method(req.PaymentMethod),
		Installments: req.Installments,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReceiptResponse(res.Receipt, res.DocumentErr))
}

func (h *Handler) editReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	var req paymentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := h.receipts.Edit(ctx, id, receipt.EditRequest{
		AmountPaid:   req.AmountPaid.decimal(),
		Method:       receipt.Method(req.PaymentMethod),
		Installments: req.Installments,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptResponse(res.Receipt, res.DocumentErr))
}

func (h *Handler) deleteReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.receipts.Delete(ctx, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	rc, err := h.receipts.Get(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptResponse(rc, nil))
}

func (h *Handler) downloadReceiptDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	rc, err := h.receipts.Get(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	h.serveArtifact(w, r, rc.ArtifactRef)
}

func (h *Handler) listClientReceipts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	receipts, err := h.receipts.ListByClient(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	resp := make([]receiptResponse, len(receipts))
	for i := range receipts {
		resp[i] = toReceiptResponse(&receipts[i], nil)
	}
	writeJSON(w, http.StatusOK, resp)
}
