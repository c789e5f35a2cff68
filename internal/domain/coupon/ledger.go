package coupon

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/repairdesk/internal/domain/client"
)

var hundred = decimal.NewFromInt(100)

// ValidPercent reports whether p is in (0, 100].
func ValidPercent(p decimal.Decimal) bool {
	return p.IsPositive() && p.LessThanOrEqual(hundred)
}

// Ledger owns coupon state transitions. Every mutation goes through
// Repository.Update so two redemptions of one coupon cannot both succeed.
type Ledger struct {
	repo    Repository
	clients client.Repository
	now     func() time.Time
}

// NewLedger creates a Ledger backed by the given repositories.
func NewLedger(repo Repository, clients client.Repository) *Ledger {
	return &Ledger{repo: repo, clients: clients, now: time.Now}
}

// Redeem marks the coupon as consumed by orderID and returns its discount
// percent.
func (l *Ledger) Redeem(ctx context.Context, couponID, clientID, orderID int64) (decimal.Decimal, error) {
	c, err := l.repo.Update(ctx, couponID, func(c *Coupon) error {
		if c.ClientID != clientID {
			return ErrCouponNotOwned
		}
		if c.Used {
			return ErrCouponAlreadyUsed
		}
		usedAt := l.now()
		c.Used = true
		c.OrderID = &orderID
		c.UsedAt = &usedAt
		return nil
	})
	if err != nil {
		if isLedgerError(err) {
			return decimal.Zero, err
		}
		return decimal.Zero, errors.Wrapf(err, "redeem coupon %d", couponID)
	}
	return c.DiscountPercent, nil
}

// Revert releases a coupon consumed by orderID. A missing coupon or one
// consumed by a different order is left untouched; only repository failures
// are reported.
func (l *Ledger) Revert(ctx context.Context, couponID, orderID int64) error {
	lg := zctx.From(ctx)

	var mismatch bool
	_, err := l.repo.Update(ctx, couponID, func(c *Coupon) error {
		if c.OrderID == nil || *c.OrderID != orderID {
			mismatch = true
			return errSkip
		}
		c.Used = false
		c.OrderID = nil
		c.UsedAt = nil
		return nil
	})
	switch {
	case errors.Is(err, ErrCouponNotFound):
		lg.Debug("Coupon to revert not found", zap.Int64("coupon_id", couponID))
		return nil
	case errors.Is(err, errSkip):
		if mismatch {
			lg.Warn("Coupon not consumed by order, skipping revert",
				zap.Int64("coupon_id", couponID),
				zap.Int64("order_id", orderID),
			)
		}
		return nil
	case err != nil:
		return errors.Wrapf(err, "revert coupon %d", couponID)
	}
	return nil
}

// Issue grants a new coupon to a client.
func (l *Ledger) Issue(ctx context.Context, clientID int64, percent decimal.Decimal) (*Coupon, error) {
	if !ValidPercent(percent) {
		return nil, ErrInvalidDiscount
	}
	if _, err := l.clients.GetByID(ctx, clientID); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "get client")
	}

	c := &Coupon{
		ClientID:        clientID,
		DiscountPercent: percent,
		IssuedAt:        l.now(),
	}
	if err := l.repo.Insert(ctx, c); err != nil {
		return nil, errors.Wrap(err, "insert coupon")
	}
	return c, nil
}

// UpdateDiscount changes the percent of an unused coupon.
func (l *Ledger) UpdateDiscount(ctx context.Context, couponID int64, percent decimal.Decimal) (*Coupon, error) {
	if !ValidPercent(percent) {
		return nil, ErrInvalidDiscount
	}
	c, err := l.repo.Update(ctx, couponID, func(c *Coupon) error {
		if c.Used {
			return ErrCouponLocked
		}
		c.DiscountPercent = percent
		return nil
	})
	if err != nil {
		if isLedgerError(err) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "update coupon %d", couponID)
	}
	return c, nil
}

// Delete removes an unused coupon.
func (l *Ledger) Delete(ctx context.Context, couponID int64) error {
	err := l.repo.Delete(ctx, couponID, func(c *Coupon) error {
		if c.Used {
			return ErrCouponLocked
		}
		return nil
	})
	if err != nil {
		if isLedgerError(err) {
			return err
		}
		return errors.Wrapf(err, "delete coupon %d", couponID)
	}
	return nil
}

// Get returns a coupon by id.
func (l *Ledger) Get(ctx context.Context, couponID int64) (*Coupon, error) {
	c, err := l.repo.GetByID(ctx, couponID)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "get coupon %d", couponID)
	}
	return c, nil
}

// ListAvailable returns the unused coupons of a client, newest first.
func (l *Ledger) ListAvailable(ctx context.Context, clientID int64) ([]Coupon, error) {
	all, err := l.repo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}

	available := make([]Coupon, 0, len(all))
	for _, c := range all {
		if !c.Used {
			available = append(available, c)
		}
	}
	sort.SliceStable(available, func(i, j int) bool {
		if available[i].IssuedAt.Equal(available[j].IssuedAt) {
			return available[i].ID > available[j].ID
		}
		return available[i].IssuedAt.After(available[j].IssuedAt)
	})
	return available, nil
}

// errSkip aborts an Update without writing.
var errSkip = errors.New("skip")

func isLedgerError(err error) bool {
	return errors.Is(err, ErrCouponNotFound) ||
		errors.Is(err, ErrCouponNotOwned) ||
		errors.Is(err, ErrCouponAlreadyUsed) ||
		errors.Is(err, ErrCouponLocked)
}
