package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/repairdesk/internal/artifact"
	"github.com/xenking/repairdesk/internal/domain/client"
	"github.com/xenking/repairdesk/internal/domain/coupon"
	"github.com/xenking/repairdesk/internal/domain/order"
	"github.com/xenking/repairdesk/internal/domain/ordernumber"
	"github.com/xenking/repairdesk/internal/domain/receipt"
	"github.com/xenking/repairdesk/pkg/httpmiddleware"
)

const maxBodyBytes = 1 << 20

// badRequestError reports a malformed request.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

type errorKind struct {
	status int
	code   string
}

// errorKinds maps domain errors to responses. Order matters only for errors
// matching more than one entry.
var errorKinds = []struct {
	err  error
	kind errorKind
}{
	{order.ErrNotFound, errorKind{http.StatusNotFound, "order_not_found"}},
	{client.ErrNotFound, errorKind{http.StatusNotFound, "client_not_found"}},
	{coupon.ErrCouponNotFound, errorKind{http.StatusNotFound, "coupon_not_found"}},
	{receipt.ErrNotFound, errorKind{http.StatusNotFound, "receipt_not_found"}},
	{artifact.ErrNotFound, errorKind{http.StatusNotFound, "document_not_found"}},

	{coupon.ErrCouponAlreadyUsed, errorKind{http.StatusConflict, "coupon_already_used"}},
	{coupon.ErrCouponLocked, errorKind{http.StatusConflict, "coupon_locked"}},
	{order.ErrConflictRetriesExceeded, errorKind{http.StatusConflict, "order_number_conflict"}},
	{ordernumber.ErrExhausted, errorKind{http.StatusConflict, "order_numbers_exhausted"}},
	{client.ErrHasDependents, errorKind{http.StatusConflict, "client_has_dependents"}},

	{client.ErrInvalidName, errorKind{http.StatusUnprocessableEntity, "invalid_client"}},
	{coupon.ErrCouponNotOwned, errorKind{http.StatusUnprocessableEntity, "coupon_not_owned"}},
	{coupon.ErrInvalidDiscount, errorKind{http.StatusUnprocessableEntity, "invalid_discount"}},
	{order.ErrInvalidStatus, errorKind{http.StatusUnprocessableEntity, "invalid_status"}},
	{receipt.ErrInvalidPaymentMethod, errorKind{http.StatusUnprocessableEntity, "invalid_payment_method"}},
	{receipt.ErrInvalidAmount, errorKind{http.StatusUnprocessableEntity, "invalid_amount"}},
	{receipt.ErrInvalidInstallments, errorKind{http.StatusUnprocessableEntity, "invalid_installments"}},
	{receipt.ErrOrderMismatch, errorKind{http.StatusUnprocessableEntity, "order_mismatch"}},

	{order.ErrArtifactGenerationFailed, errorKind{http.StatusBadGateway, "document_generation_failed"}},
	{context.DeadlineExceeded, errorKind{http.StatusGatewayTimeout, "timeout"}},
}

// writeError is the single place that turns errors into HTTP responses.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var br *badRequestError
	if errors.As(err, &br) {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "bad_request", br.msg)
		return
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			if k.kind.status >= http.StatusInternalServerError {
				zctx.From(ctx).Error("Request failed", zap.Error(err))
			}
			httpmiddleware.WriteError(w, k.kind.status, k.kind.code, k.err.Error())
			return
		}
	}
	zctx.From(ctx).Error("Internal error", zap.Error(err))
	httpmiddleware.WriteError(w, http.StatusInternalServerError, "internal", "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a single JSON object into dst, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", raw)
	}
	return id, nil
}

func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

func (h *Handler) serveArtifact(w http.ResponseWriter, r *http.Request, ref *string) {
	ctx := r.Context()
	if ref == nil {
		writeError(ctx, w, artifact.ErrNotFound)
		return
	}
	a, err := h.documents.Open(ctx, *ref)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	w.Header().Set("Content-Type", a.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", path.Base(a.Ref)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Data)
}
