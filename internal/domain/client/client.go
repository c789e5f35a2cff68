package client

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a client does not exist.
	ErrNotFound = errors.New("client not found")
	// ErrHasDependents is returned when deleting a client that still owns
	// orders, coupons or receipts.
	ErrHasDependents = errors.New("client has orders or coupons")
	// ErrInvalidName is returned for a client without a name.
	ErrInvalidName = errors.New("client name is required")
)

// Client is a customer of the shop. Document is the tax id, stored as digits.
type Client struct {
	ID       int64
	Name     string
	Email    string
	Phone    string
	Document string
	Address  string
}

// Repository provides read access to clients. The order, coupon and receipt
// services only need this much.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Client, error)
}

// Store is the full client directory.
type Store interface {
	Repository
	Create(ctx context.Context, c *Client) error
	// List returns all clients ordered by id.
	List(ctx context.Context) ([]Client, error)
	// Delete removes a client. It returns ErrHasDependents while any order,
	// coupon or receipt references the client, checked atomically with the
	// removal.
	Delete(ctx context.Context, id int64) error
}
