// Package receipt issues payment receipts for service orders.
package receipt

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no receipt has the requested id.
	ErrNotFound = errors.New("receipt not found")
	// ErrInvalidPaymentMethod is returned for an unknown payment method.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	// ErrInvalidAmount is returned when the amount paid is not positive.
	ErrInvalidAmount = errors.New("amount paid must be greater than 0")
	// ErrInvalidInstallments is returned for an installment count outside
	// [1, MaxInstallments].
	ErrInvalidInstallments = errors.New("invalid installment count")
	// ErrOrderMismatch is returned when the order belongs to another client.
	ErrOrderMismatch = errors.New("order belongs to another client")
)

// MaxInstallments caps credit card installments.
const MaxInstallments = 24

// Method is how a receipt was paid.
type Method string

const (
	MethodCash       Method = "cash"
	MethodDebitCard  Method = "debit_card"
	MethodCreditCard Method = "credit_card"
	MethodPix        Method = "pix"
)

// Valid reports whether m is a known payment method.
func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodDebitCard, MethodCreditCard, MethodPix:
		return true
	default:
		return false
	}
}

// Receipt records a payment against an order. OrderNumber and OrderTotal are
// copied from the order when the receipt is issued.
type Receipt struct {
	ID            int64
	ClientID      int64
	OrderID       int64
	OrderNumber   int
	OrderTotal    decimal.Decimal
	AmountPaid    decimal.Decimal
	PaymentMethod Method
	Installments  int
	CreatedAt     time.Time
	ArtifactRef   *string
}

// Repository defines persistence operations for receipts. Insert assigns
// the id. Update, Delete, GetByID and SetArtifact return ErrNotFound for
// unknown ids.
type Repository interface {
	Insert(ctx context.Context, r *Receipt) error
	Update(ctx context.Context, r *Receipt) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Receipt, error)
	ListByClient(ctx context.Context, clientID int64) ([]Receipt, error)
	SetArtifact(ctx context.Context, id int64, ref *string) error
}
