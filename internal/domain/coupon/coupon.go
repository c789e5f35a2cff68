package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrCouponNotFound is returned when no coupon has the requested id.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrCouponNotOwned is returned when a coupon is redeemed for another client.
	ErrCouponNotOwned = errors.New("coupon does not belong to client")
	// ErrCouponAlreadyUsed is returned when a consumed coupon is redeemed again.
	ErrCouponAlreadyUsed = errors.New("coupon already used")
	// ErrCouponLocked is returned when a used coupon is edited or deleted.
	ErrCouponLocked = errors.New("coupon is used and cannot be changed")
	// ErrInvalidDiscount is returned for a percent outside (0, 100].
	ErrInvalidDiscount = errors.New("discount percent must be greater than 0 and at most 100")
)

// Coupon is a single-use percentage discount granted to a client.
//
// Used is true exactly when OrderID is set.
type Coupon struct {
	ID              int64
	ClientID        int64
	DiscountPercent decimal.Decimal
	Used            bool
	OrderID         *int64
	IssuedAt        time.Time
	UsedAt          *time.Time
}

// Repository provides persistence for coupons.
//
// Update loads the coupon, passes it to fn and saves the result, all while
// holding a lock on that coupon. If fn returns an error nothing is written
// and the error is returned unchanged. A missing coupon yields
// ErrCouponNotFound without calling fn. Delete follows the same contract
// and removes the coupon only when check returns nil.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Coupon, error)
	Insert(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, id int64, fn func(c *Coupon) error) (*Coupon, error)
	Delete(ctx context.Context, id int64, check func(c *Coupon) error) error
	ListByClient(ctx context.Context, clientID int64) ([]Coupon, error)
}
