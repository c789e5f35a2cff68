package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when no order has the requested id.
	ErrNotFound = errors.New("order not found")
	// ErrConflict is returned by Repository.Insert when the order number is
	// already taken.
	ErrConflict = errors.New("order number already in use")
	// ErrConflictRetriesExceeded is returned when every insert attempt hit
	// ErrConflict.
	ErrConflictRetriesExceeded = errors.New("order number conflict retries exceeded")
	// ErrInvalidStatus is returned for an unknown status value.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrArtifactGenerationFailed marks a failure to produce or bind the
	// order document.
	ErrArtifactGenerationFailed = errors.New("order document generation failed")
)

// DocumentError reports a document failure for an order that was otherwise
// saved. It matches ErrArtifactGenerationFailed.
type DocumentError struct {
	OrderID int64
	Err     error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("order %d: document: %v", e.OrderID, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

func (e *DocumentError) Is(target error) bool {
	return target == ErrArtifactGenerationFailed
}

// Compensation steps reported by DeleteOrder.
const (
	StepRevertCoupon    = "revert_coupon"
	StepReleaseArtifact = "release_artifact"
)

// CompensationError is a failed cleanup step during order deletion.
type CompensationError struct {
	Step string
	Err  error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation %s: %v", e.Step, e.Err)
}

func (e *CompensationError) Unwrap() error { return e.Err }
