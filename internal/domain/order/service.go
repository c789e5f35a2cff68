package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/repairdesk/internal/document"
	"github.com/xenking/repairdesk/internal/domain/client"
	"github.com/xenking/repairdesk/internal/domain/cost"
	"github.com/xenking/repairdesk/internal/domain/ordernumber"
)

// DefaultConflictRetries is how many numbers are tried before CreateOrder
// gives up on uniqueness conflicts.
const DefaultConflictRetries = 5

// compensationTimeout bounds cleanup steps, which run detached from the
// caller's cancellation.
const compensationTimeout = 10 * time.Second

// detached returns a context that keeps ctx values but not its deadline, so
// compensations still run after the request timed out.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
}

// CouponLedger is the part of the coupon ledger the orchestrator needs.
type CouponLedger interface {
	Redeem(ctx context.Context, couponID, clientID, orderID int64) (decimal.Decimal, error)
	Revert(ctx context.Context, couponID, orderID int64) error
}

// DocumentGenerator produces and releases order documents.
type DocumentGenerator interface {
	GenerateOrder(ctx context.Context, data document.OrderData) (string, error)
	Release(ctx context.Context, ref string) error
}

// NumberAllocator picks a public order number.
type NumberAllocator interface {
	Allocate(existing ordernumber.Set) (int, error)
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	ClientID int64
	Details  Details
	CouponID *int64
}

// CreateResult is the outcome of CreateOrder. DocumentErr is set when the
// order was saved but its document could not be produced; it matches
// ErrArtifactGenerationFailed and RegenerateDocument can be used to retry.
type CreateResult struct {
	Order       *Order
	DocumentErr error
}

// EditResult is the outcome of EditOrder.
type EditResult struct {
	Order       *Order
	DocumentErr error
}

// DeleteResult lists cleanup steps that failed while deleting an order.
type DeleteResult struct {
	Compensations []error
}

// Service coordinates order creation, edits and deletion across the order
// repository, the coupon ledger and the document store.
type Service struct {
	orders    Repository
	clients   client.Repository
	coupons   CouponLedger
	documents DocumentGenerator
	allocator NumberAllocator
	retries   int
	now       func() time.Time

	tracer  trace.Tracer
	created metric.Int64Counter
	redeems metric.Int64Counter
	retried metric.Int64Counter
	docFail metric.Int64Counter
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	allocator      NumberAllocator
	retries        int
	now            func() time.Time
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithAllocator overrides the order number allocator.
func WithAllocator(a NumberAllocator) Option {
	return func(o *serviceOptions) { o.allocator = a }
}

// WithConflictRetries sets the number of insert attempts per order.
func WithConflictRetries(n int) Option {
	return func(o *serviceOptions) {
		if n > 0 {
			o.retries = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) { o.now = now }
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *serviceOptions) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *serviceOptions) { o.meterProvider = mp }
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	orders Repository,
	clients client.Repository,
	coupons CouponLedger,
	documents DocumentGenerator,
	opts ...Option,
) (*Service, error) {
	so := serviceOptions{
		allocator:      ordernumber.New(),
		retries:        DefaultConflictRetries,
		now:            time.Now,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, o := range opts {
		o(&so)
	}

	const scope = "github.com/xenking/repairdesk/internal/domain/order"
	meter := so.meterProvider.Meter(scope)

	s := &Service{
		orders:    orders,
		clients:   clients,
		coupons:   coupons,
		documents: documents,
		allocator: so.allocator,
		retries:   so.retries,
		now:       so.now,
		tracer:    so.tracerProvider.Tracer(scope),
	}

	var err error
	if s.created, err = meter.Int64Counter("orders.created",
		metric.WithDescription("Orders persisted")); err != nil {
		return nil, errors.Wrap(err, "orders.created")
	}
	if s.redeems, err = meter.Int64Counter("orders.coupon_redemptions",
		metric.WithDescription("Coupons redeemed by new orders")); err != nil {
		return nil, errors.Wrap(err, "orders.coupon_redemptions")
	}
	if s.retried, err = meter.Int64Counter("orders.number_conflicts",
		metric.WithDescription("Order number uniqueness conflicts")); err != nil {
		return nil, errors.Wrap(err, "orders.number_conflicts")
	}
	if s.docFail, err = meter.Int64Counter("orders.document_failures",
		metric.WithDescription("Order documents that could not be produced")); err != nil {
		return nil, errors.Wrap(err, "orders.document_failures")
	}

	return s, nil
}

// CreateOrder validates the request, redeems the coupon if one is given,
// persists the order under a fresh number and produces its document.
//
// A failure after the coupon was redeemed but before the order was stored
// reverts the coupon. A document failure does not undo the order; it is
// reported in CreateResult.DocumentErr.
func (s *Service) CreateOrder(ctx context.Context, req CreateRequest) (_ *CreateResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Create",
		trace.WithAttributes(attribute.Int64("client.id", req.ClientID)),
	)
	defer func() { endSpan(span, rerr) }()

	lg := zctx.From(ctx)

	c, err := s.getClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	details := req.Details
	if details.Status == "" {
		details.Status = StatusPending
	}
	if !details.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	o := &Order{
		ClientID:  req.ClientID,
		Details:   details,
		CreatedAt: s.now(),
	}

	id, err := s.orders.NextID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reserve order id")
	}
	o.ID = id

	percent := decimal.Zero
	if req.CouponID != nil {
		percent, err = s.coupons.Redeem(ctx, *req.CouponID, req.ClientID, id)
		if err != nil {
			return nil, errors.Wrap(err, "redeem coupon")
		}
		s.redeems.Add(ctx, 1)
		o.CouponID = req.CouponID
	}
	o.DiscountPercent = percent
	o.applyBreakdown(cost.Compute(o.Parts, o.LaborCost, percent))

	if err := s.insertWithNumber(ctx, o); err != nil {
		if o.CouponID != nil {
			cctx, cancel := detached(ctx)
			defer cancel()
			if revertErr := s.coupons.Revert(cctx, *o.CouponID, id); revertErr != nil {
				lg.Error("Revert coupon after failed insert",
					zap.Int64("coupon_id", *o.CouponID),
					zap.Int64("order_id", id),
					zap.Error(revertErr),
				)
			}
		}
		return nil, err
	}
	s.created.Add(ctx, 1)
	span.SetAttributes(attribute.Int("order.number", o.Number))

	lg.Info("Order created",
		zap.Int64("order_id", o.ID),
		zap.Int("number", o.Number),
		zap.String("total", o.Total.StringFixed(2)),
	)

	res := &CreateResult{Order: o}
	if err := s.attachDocument(ctx, o, c); err != nil {
		res.DocumentErr = err
	}
	return res, nil
}

// insertWithNumber allocates a number and inserts o, retrying on conflicts.
func (s *Service) insertWithNumber(ctx context.Context, o *Order) error {
	for attempt := 0; attempt < s.retries; attempt++ {
		numbers, err := s.orders.ListExistingNumbers(ctx)
		if err != nil {
			return errors.Wrap(err, "list order numbers")
		}

		n, err := s.allocator.Allocate(ordernumber.NewSet(numbers))
		if err != nil {
			return errors.Wrap(err, "allocate order number")
		}
		o.Number = n

		err = s.orders.Insert(ctx, o)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrConflict):
			s.retried.Add(ctx, 1)
			zctx.From(ctx).Debug("Order number taken, retrying",
				zap.Int("number", n),
				zap.Int("attempt", attempt+1),
			)
			continue
		default:
			return errors.Wrap(err, "insert order")
		}
	}
	return ErrConflictRetriesExceeded
}

// EditOrder replaces the editable details of an order. The number, coupon,
// discount percent and creation time are preserved and amounts are
// recomputed. The document is regenerated; a document failure keeps the
// previous document and is reported in EditResult.DocumentErr.
func (s *Service) EditOrder(ctx context.Context, id int64, details Details) (_ *EditResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Edit",
		trace.WithAttributes(attribute.Int64("order.id", id)),
	)
	defer func() { endSpan(span, rerr) }()

	if details.Status == "" {
		details.Status = StatusPending
	}
	if !details.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := s.getClient(ctx, o.ClientID)
	if err != nil {
		return nil, err
	}

	o.Details = details
	o.applyBreakdown(cost.Compute(o.Parts, o.LaborCost, o.DiscountPercent))

	if err := s.orders.Update(ctx, o); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "update order")
	}

	res := &EditResult{Order: o}
	if err := s.attachDocument(ctx, o, c); err != nil {
		res.DocumentErr = err
	}
	return res, nil
}

// RegenerateDocument produces a fresh document for an order and releases the
// one it replaces.
func (s *Service) RegenerateDocument(ctx context.Context, id int64) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.RegenerateDocument",
		trace.WithAttributes(attribute.Int64("order.id", id)),
	)
	defer func() { endSpan(span, rerr) }()

	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := s.getClient(ctx, o.ClientID)
	if err != nil {
		return nil, err
	}
	if err := s.attachDocument(ctx, o, c); err != nil {
		return nil, err
	}
	return o, nil
}

// attachDocument generates a document for o, binds it and releases the
// superseded one. On failure the previous reference stays in place.
func (s *Service) attachDocument(ctx context.Context, o *Order, c *client.Client) error {
	lg := zctx.From(ctx)
	previous := o.ArtifactRef

	ref, err := s.documents.GenerateOrder(ctx, snapshot(o, c))
	if err != nil {
		s.docFail.Add(ctx, 1)
		lg.Error("Generate order document", zap.Int64("order_id", o.ID), zap.Error(err))
		return &DocumentError{OrderID: o.ID, Err: err}
	}

	if err := s.orders.SetArtifact(ctx, o.ID, &ref); err != nil {
		s.docFail.Add(ctx, 1)
		lg.Error("Bind order document", zap.Int64("order_id", o.ID), zap.Error(err))
		cctx, cancel := detached(ctx)
		defer cancel()
		if rerr := s.documents.Release(cctx, ref); rerr != nil {
			lg.Warn("Release unbound document", zap.String("ref", ref), zap.Error(rerr))
		}
		return &DocumentError{OrderID: o.ID, Err: errors.Wrap(err, "set artifact")}
	}
	o.ArtifactRef = &ref

	if previous != nil && *previous != ref {
		cctx, cancel := detached(ctx)
		defer cancel()
		if err := s.documents.Release(cctx, *previous); err != nil {
			lg.Warn("Release superseded document", zap.String("ref", *previous), zap.Error(err))
		}
	}
	return nil
}

// DeleteOrder removes an order after reverting its coupon and releasing its
// document. Both cleanup steps are always attempted; their failures are
// logged and returned in DeleteResult rather than as an error. Only a
// failure to delete the record itself is returned as an error.
func (s *Service) DeleteOrder(ctx context.Context, id int64) (_ *DeleteResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Delete",
		trace.WithAttributes(attribute.Int64("order.id", id)),
	)
	defer func() { endSpan(span, rerr) }()

	lg := zctx.From(ctx)

	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	// Cleanup and the record deletion share one detached context: a coupon is
	// never reverted for an order that survives a cancelled request.
	ctx, cancel := detached(ctx)
	defer cancel()

	res := &DeleteResult{}
	if o.CouponID != nil {
		if err := s.coupons.Revert(ctx, *o.CouponID, o.ID); err != nil {
			lg.Error("Revert coupon on delete",
				zap.Int64("order_id", o.ID),
				zap.Int64("coupon_id", *o.CouponID),
				zap.Error(err),
			)
			res.Compensations = append(res.Compensations, &CompensationError{Step: StepRevertCoupon, Err: err})
		}
	}
	if o.ArtifactRef != nil {
		if err := s.documents.Release(ctx, *o.ArtifactRef); err != nil {
			lg.Error("Release document on delete",
				zap.Int64("order_id", o.ID),
				zap.String("ref", *o.ArtifactRef),
				zap.Error(err),
			)
			res.Compensations = append(res.Compensations, &CompensationError{Step: StepReleaseArtifact, Err: err})
		}
	}

	if err := s.orders.Delete(ctx, o.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return res, err
		}
		return res, errors.Wrap(err, "delete order")
	}

	lg.Info("Order deleted", zap.Int64("order_id", o.ID), zap.Int("number", o.Number))
	return res, nil
}

// GetOrder returns an order by id.
func (s *Service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	return o, nil
}

// ListOrders returns orders matching f, newest first.
func (s *Service) ListOrders(ctx context.Context, f Filter) ([]Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
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

func snapshot(o *Order, c *client.Client) document.OrderData {
	return document.OrderData{
		Number:   o.Number,
		IssuedAt: o.CreatedAt,
		Status:   string(o.Status),
		Client: document.Party{
			Name:     c.Name,
			Email:    c.Email,
			Phone:    c.Phone,
			Document: c.Document,
			Address:  c.Address,
		},
		Service:           o.Service,
		DeviceType:        o.Device.Type,
		Brand:             o.Device.Brand,
		Model:             o.Device.Model,
		Serial:            o.Device.Serial,
		Defects:           o.ReportedDefects,
		Diagnosis:         o.Diagnosis,
		EstimatedDeadline: o.EstimatedDeadline,
		Parts:             o.Parts,
		LaborCost:         o.LaborCost,
		PartsSubtotal:     o.PartsSubtotal,
		Subtotal:          o.Subtotal,
		DiscountPercent:   o.DiscountPercent,
		DiscountAmount:    o.DiscountAmount,
		Total:             o.Total,
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
