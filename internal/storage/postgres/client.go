package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/repairdesk/internal/domain/client"
)

const (
	getClientByIDSQL = `SELECT id, name, email, phone, document, address FROM clients WHERE id = $1`

	insertClientSQL = `INSERT INTO clients (name, email, phone, document, address)
	VALUES ($1, $2, $3, $4, $5) RETURNING id`

	listClientsSQL = `SELECT id, name, email, phone, document, address FROM clients ORDER BY id`

	deleteClientSQL = `DELETE FROM clients WHERE id = $1`
)

var _ client.Store = (*ClientRepository)(nil)

// ClientRepository implements client.Store backed by PostgreSQL. Orders,
// coupons and receipts reference clients by foreign key, so a client with
// dependents cannot be deleted.
type ClientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository returns a ClientRepository that uses the given pool.
func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

// GetByID returns a client or client.ErrNotFound.
func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*client.Client, error) {
	rows, err := r.pool.Query(ctx, getClientByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting client %d: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanClient)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, client.ErrNotFound
		}
		return nil, fmt.Errorf("getting client %d: %w", id, err)
	}
	return &c, nil
}

// Create inserts a client and sets its id.
func (r *ClientRepository) Create(ctx context.Context, c *client.Client) error {
	err := r.pool.QueryRow(ctx, insertClientSQL, c.Name, c.Email, c.Phone, c.Document, c.Address).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("creating client %q: %w", c.Name, err)
	}
	return nil
}

// List returns all clients ordered by id.
func (r *ClientRepository) List(ctx context.Context) ([]client.Client, error) {
	rows, err := r.pool.Query(ctx, listClientsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanClient)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	return list, nil
}

// Delete removes a client. A foreign key violation means the client still
// has orders, coupons or receipts.
func (r *ClientRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteClientSQL, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return client.ErrHasDependents
		}
		return fmt.Errorf("deleting client %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return client.ErrNotFound
	}
	return nil
}

func scanClient(row pgx.CollectableRow) (client.Client, error) {
	var c client.Client
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Document, &c.Address)
	return c, err
}
