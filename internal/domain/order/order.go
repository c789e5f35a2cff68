package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/repairdesk/internal/domain/cost"
)

// Status is the workflow state of a service order. Transitions between
// states are not restricted.
type Status string

const (
	StatusPending       Status = "pending"
	StatusInProgress    Status = "in_progress"
	StatusAwaitingParts Status = "awaiting_parts"
	StatusReady         Status = "ready"
	StatusPaid          Status = "paid"
	StatusCompleted     Status = "completed"
	StatusDelivered     Status = "delivered"
	StatusCancelled     Status = "cancelled"
)

// Statuses lists every known status in workflow order.
var Statuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusAwaitingParts,
	StatusReady,
	StatusPaid,
	StatusCompleted,
	StatusDelivered,
	StatusCancelled,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Device describes the equipment left for repair.
type Device struct {
	Type   string
	Brand  string
	Model  string
	Serial string
}

// Details holds the caller-editable part of an order.
type Details struct {
	Service           string
	Device            Device
	ReportedDefects   string
	Diagnosis         string
	Parts             []cost.PartCost
	LaborCost         decimal.Decimal
	Status            Status
	EstimatedDeadline *time.Time
}

// Order is a persisted service order.
//
// ID is assigned by the repository and never shown to customers; Number is
// the public six-digit order number printed on documents.
type Order struct {
	ID       int64
	Number   int
	ClientID int64
	Details

	PartsSubtotal   decimal.Decimal
	Subtotal        decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	CouponID        *int64
	Total           decimal.Decimal

	CreatedAt   time.Time
	ArtifactRef *string
}

// applyBreakdown copies computed amounts onto the order.
func (o *Order) applyBreakdown(b cost.Breakdown) {
	o.PartsSubtotal = b.PartsSubtotal
	o.Subtotal = b.Subtotal
	o.DiscountAmount = b.DiscountAmount
	o.Total = b.Total
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	ClientID int64
	Status   Status
}

// Repository defines persistence operations for orders.
//
// NextID reserves an id before the order exists so a coupon can be bound to
// it. Insert returns ErrConflict when Number is already taken. Update,
// Delete, GetByID and SetArtifact return ErrNotFound for unknown ids.
type Repository interface {
	NextID(ctx context.Context) (int64, error)
	Insert(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	ListExistingNumbers(ctx context.Context) ([]int, error)
	SetArtifact(ctx context.Context, id int64, ref *string) error
}
