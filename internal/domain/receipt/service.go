package receipt

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/repairdesk/internal/document"
	"github.com/xenking/repairdesk/internal/domain/client"
	"github.com/xenking/repairdesk/internal/domain/order"
)

// cleanupTimeout bounds document releases, which run detached from the
// caller's cancellation.
const cleanupTimeout = 10 * time.Second

func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}

// OrderReader loads orders.
type OrderReader interface {
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
}

// DocumentGenerator produces and releases receipt documents.
type DocumentGenerator interface {
	GenerateReceipt(ctx context.Context, data document.ReceiptData) (string, error)
	Release(ctx context.Context, ref string) error
}

// IssueRequest holds the input for issuing a receipt.
type IssueRequest struct {
	ClientID     int64
	OrderID      int64
	AmountPaid   decimal.Decimal
	Method       Method
	Installments int
}

// EditRequest holds the editable fields of a receipt.
type EditRequest struct {
	AmountPaid   decimal.Decimal
	Method       Method
	Installments int
}

// Result is the outcome of Issue and Edit. DocumentErr is set when the
// receipt was saved but its document could not be produced.
type Result struct {
	Receipt     *Receipt
	DocumentErr error
}

// DocumentError reports a document failure for a saved receipt. It matches
// order.ErrArtifactGenerationFailed.
type DocumentError struct {
	ReceiptID int64
	Err       error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("receipt %d: document: %v", e.ReceiptID, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

func (e *DocumentError) Is(target error) bool {
	return target == order.ErrArtifactGenerationFailed
}

// Service issues and maintains payment receipts.
type Service struct {
	repo      Repository
	orders    OrderReader
	clients   client.Repository
	documents DocumentGenerator
	now       func() time.Time
}

// NewService creates a receipt Service.
func NewService(repo Repository, orders OrderReader, clients client.Repository, documents DocumentGenerator) *Service {
	return &Service{
		repo:      repo,
		orders:    orders,
		clients:   clients,
		documents: documents,
		now:       time.Now,
	}
}

// normalizePayment validates the payment fields and returns the installment
// count to store. Only credit card payments keep more than one installment.
func normalizePayment(amount decimal.Decimal, m Method, installments int) (int, error) {
	if !m.Valid() {
		return 0, ErrInvalidPaymentMethod
	}
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}
	if m != MethodCreditCard {
		return 1, nil
	}
	if installments == 0 {
		installments = 1
	}
	if installments < 1 || installments > MaxInstallments {
		return 0, ErrInvalidInstallments
	}
	return installments, nil
}

// Issue records a payment for an order of the client and produces its
// document.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*Result, error) {
	installments, err := normalizePayment(req.AmountPaid, req.Method, req.Installments)
	if err != nil {
		return nil, err
	}

	c, err := s.getClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	o, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if o.ClientID != req.ClientID {
		return nil, ErrOrderMismatch
	}

	r := &Receipt{
		ClientID:      req.ClientID,
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		OrderTotal:    o.Total,
		AmountPaid:    req.AmountPaid,
		PaymentMethod: req.Method,
		Installments:  installments,
		CreatedAt:     s.now(),
	}
	if err := s.repo.Insert(ctx, r); err != nil {
		return nil, errors.Wrap(err, "insert receipt")
	}

	zctx.From(ctx).Info("Receipt issued",
		zap.Int64("receipt_id", r.ID),
		zap.Int("order_number", r.OrderNumber),
		zap.String("method", string(r.PaymentMethod)),
	)

	res := &Result{Receipt: r}
	if err := s.attachDocument(ctx, r, c); err != nil {
		res.DocumentErr = err
	}
	return res, nil
}

// Edit changes the payment fields of a receipt and regenerates its document.
func (s *Service) Edit(ctx context.Context, id int64, req EditRequest) (*Result, error) {
	installments, err := normalizePayment(req.AmountPaid, req.Method, req.Installments)
	if err != nil {
		return nil, err
	}

	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := s.getClient(ctx, r.ClientID)
	if err != nil {
		return nil, err
	}

	r.AmountPaid = req.AmountPaid
	r.PaymentMethod = req.Method
	r.Installments = installments
	if err := s.repo.Update(ctx, r); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "update receipt")
	}

	res := &Result{Receipt: r}
	if err := s.attachDocument(ctx, r, c); err != nil {
		res.DocumentErr = err
	}
	return res, nil
}

// Delete removes a receipt. Its document is released on a best-effort basis.
func (s *Service) Delete(ctx context.Context, id int64) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	ctx, cancel := detached(ctx)
	defer cancel()

	if r.ArtifactRef != nil {
		if err := s.documents.Release(ctx, *r.ArtifactRef); err != nil {
			zctx.From(ctx).Warn("Release receipt document",
				zap.Int64("receipt_id", id),
				zap.String("ref", *r.ArtifactRef),
				zap.Error(err),
			)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return errors.Wrap(err, "delete receipt")
	}
	return nil
}

// Get returns a receipt by id.
func (s *Service) Get(ctx context.Context, id int64) (*Receipt, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "get receipt %d", id)
	}
	return r, nil
}

// ListByClient returns the receipts of a client, newest first.
func (s *Service) ListByClient(ctx context.Context, clientID int64) ([]Receipt, error) {
	if _, err := s.getClient(ctx, clientID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, errors.Wrap(err, "list receipts")
	}
	return list, nil
}

func (s *Service) attachDocument(ctx context.Context, r *Receipt, c *client.Client) error {
	lg := zctx.From(ctx)
	previous := r.ArtifactRef

	ref, err := s.documents.GenerateReceipt(ctx, document.ReceiptData{
		ID:          r.ID,
		IssuedAt:    r.CreatedAt,
		OrderNumber: r.OrderNumber,
		Client: document.Party{
			Name:     c.Name,
			Email:    c.Email,
			Phone:    c.Phone,
			Document: c.Document,
			Address:  c.Address,
		},
		OrderTotal:    r.OrderTotal,
		AmountPaid:    r.AmountPaid,
		PaymentMethod: string(r.PaymentMethod),
		Installments:  r.Installments,
	})
	if err != nil {
		lg.Error("Generate receipt document", zap.Int64("receipt_id", r.ID), zap.Error(err))
		return &DocumentError{ReceiptID: r.ID, Err: err}
	}

	if err := s.repo.SetArtifact(ctx, r.ID, &ref); err != nil {
		cctx, cancel := detached(ctx)
		defer cancel()
		if rerr := s.documents.Release(cctx, ref); rerr != nil {
			lg.Warn("Release unbound receipt document", zap.String("ref", ref), zap.Error(rerr))
		}
		return &DocumentError{ReceiptID: r.ID, Err: errors.Wrap(err, "set artifact")}
	}
	r.ArtifactRef = &ref

	if previous != nil && *previous != ref {
		cctx, cancel := detached(ctx)
		defer cancel()
		if err := s.documents.Release(cctx, *previous); err != nil {
			lg.Warn("Release superseded receipt document", zap.String("ref", *previous), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) getClient(ctx context.Context, id int64) (*client.Client, error) {
	c, err := s.clients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "get client")
	}
	return c, nil
}
