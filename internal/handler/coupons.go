package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/repairdesk/internal/domain/coupon"
)

type issueCouponRequest struct {
	ClientID        int64           `json:"clientId"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

type updateCouponRequest struct {
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

type redeemCouponRequest struct {
	ClientID int64 `json:"clientId"`
	OrderID  int64 `json:"orderId"`
}

type revertCouponRequest struct {
	OrderID int64 `json:"orderId"`
}

type couponResponse struct {
	ID              int64           `json:"id"`
	ClientID        int64           `json:"clientId"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Used            bool            `json:"used"`
	OrderID         *int64          `json:"orderId,omitempty"`
	IssuedAt        time.Time       `json:"issuedAt"`
	UsedAt          *time.Time      `json:"usedAt,omitempty"`
}

func toCouponResponse(c *coupon.Coupon) couponResponse {
	return couponResponse{
		ID:              c.ID,
		ClientID:        c.ClientID,
		DiscountPercent: c.DiscountPercent,
		Used:            c.Used,
		OrderID:         c.OrderID,
		IssuedAt:        c.IssuedAt,
		UsedAt:          c.UsedAt,
	}
}

func (h *Handler) issueCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req issueCouponRequest
	if err := decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.ClientID <= 0 {
		writeError(ctx, w, badRequest("clientId is required"))
		return
	}

	c, err := h.coupons.Issue(ctx, req.ClientID, req.DiscountPercent)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCouponResponse(c))
}

func (h *Handler) getCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	c, err := h.coupons.Get(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponResponse(c))
}

func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	var req updateCouponRequest
	if err := decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	c, err := h.coupons.UpdateDiscount(ctx, id, req.DiscountPercent)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponResponse(c))
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.coupons.Delete(ctx, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type redeemCouponResponse struct {
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

func (h *Handler) redeemCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	var req redeemCouponRequest
	if err := decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.ClientID <= 0 || req.OrderID <= 0 {
		writeError(ctx, w, badRequest("clientId and orderId are required"))
		return
	}

	pct, err := h.coupons.Redeem(ctx, id, req.ClientID, req.OrderID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, redeemCouponResponse{DiscountPercent: pct})
}

func (h *Handler) revertCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	var req revertCouponRequest
	if err := decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.OrderID <= 0 {
		writeError(ctx, w, badRequest("orderId is required"))
		return
	}

	if err := h.coupons.Revert(ctx, id, req.OrderID); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listClientCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	coupons, err := h.coupons.ListAvailable(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	resp := make([]couponResponse, len(coupons))
	for i := range coupons {
		resp[i] = toCouponResponse(&coupons[i])
	}
	writeJSON(w, http.StatusOK, resp)
}
