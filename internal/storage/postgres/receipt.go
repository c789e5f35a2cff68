package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/repairdesk/internal/domain/receipt"
)

const receiptColumns = `id, client_id, order_id, order_number, order_total, amount_paid,
	payment_method, installments, artifact_ref, created_at`

const (
	insertReceiptSQL = `INSERT INTO receipts (client_id, order_id, order_number, order_total, amount_paid,
		payment_method, installments, artifact_ref, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`

	updateReceiptSQL = `UPDATE receipts
	SET amount_paid = $2, payment_method = $3, installments = $4
	WHERE id = $1`

	deleteReceiptSQL = `DELETE FROM receipts WHERE id = $1`

	getReceiptByIDSQL = `SELECT ` + receiptColumns + ` FROM receipts WHERE id = $1`

	listReceiptsByClientSQL = `SELECT ` + receiptColumns + ` FROM receipts
	WHERE client_id = $1 ORDER BY created_at DESC, id DESC`

	setReceiptArtifactSQL = `UPDATE receipts SET artifact_ref = $2 WHERE id = $1`
)

var _ receipt.Repository = (*ReceiptRepository)(nil)

// ReceiptRepository implements receipt.Repository backed by PostgreSQL.
type ReceiptRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptRepository returns a ReceiptRepository that uses the given pool.
func NewReceiptRepository(pool *pgxpool.Pool) *ReceiptRepository {
	return &ReceiptRepository{pool: pool}
}

// Insert persists a receipt and sets its id.
func (r *ReceiptRepository) Insert(ctx context.Context, rc *receipt.Receipt) error {
	err := r.pool.QueryRow(ctx, insertReceiptSQL,
		rc.ClientID, rc.OrderID, rc.OrderNumber, rc.OrderTotal, rc.AmountPaid,
		string(rc.PaymentMethod), rc.Installments, rc.ArtifactRef, rc.CreatedAt,
	).Scan(&rc.ID)
	if err != nil {
		return fmt.Errorf("creating receipt for order %d: %w", rc.OrderID, err)
	}
	return nil
}

// Update saves the payment fields of a receipt.
func (r *ReceiptRepository) Update(ctx context.Context, rc *receipt.Receipt) error {
	tag, err := r.pool.Exec(ctx, updateReceiptSQL, rc.ID, rc.AmountPaid, string(rc.PaymentMethod), rc.Installments)
	if err != nil {
		return fmt.Errorf("updating receipt %d: %w", rc.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return receipt.ErrNotFound
	}
	return nil
}

// Delete removes a receipt.
func (r *ReceiptRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteReceiptSQL, id)
	if err != nil {
		return fmt.Errorf("deleting receipt %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return receipt.ErrNotFound
	}
	return nil
}

// GetByID returns a single receipt.
func (r *ReceiptRepository) GetByID(ctx context.Context, id int64) (*receipt.Receipt, error) {
	rows, err := r.pool.Query(ctx, getReceiptByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt %d: %w", id, err)
	}

	rc, err := pgx.CollectExactlyOneRow(rows, scanReceipt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, receipt.ErrNotFound
		}
		return nil, fmt.Errorf("getting receipt %d: %w", id, err)
	}
	return &rc, nil
}

// ListByClient returns the receipts of a client, newest first.
func (r *ReceiptRepository) ListByClient(ctx context.Context, clientID int64) ([]receipt.Receipt, error) {
	rows, err := r.pool.Query(ctx, listReceiptsByClientSQL, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing receipts of client %d: %w", clientID, err)
	}
	return pgx.CollectRows(rows, scanReceipt)
}

// SetArtifact binds a document reference to a receipt.
func (r *ReceiptRepository) SetArtifact(ctx context.Context, id int64, ref *string) error {
	tag, err := r.pool.Exec(ctx, setReceiptArtifactSQL, id, ref)
	if err != nil {
		return fmt.Errorf("setting artifact of receipt %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return receipt.ErrNotFound
	}
	return nil
}

func scanReceipt(row pgx.CollectableRow) (receipt.Receipt, error) {
	var (
		rc     receipt.Receipt
		method string
	)
	err := row.Scan(
		&rc.ID, &rc.ClientID, &rc.OrderID, &rc.OrderNumber, &rc.OrderTotal, &rc.AmountPaid,
		&method, &rc.Installments, &rc.ArtifactRef, &rc.CreatedAt,
	)
	rc.PaymentMethod = receipt.Method(method)
	return rc, err
}
