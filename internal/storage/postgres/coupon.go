package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/repairdesk/internal/domain/coupon"
)

const couponColumns = `id, client_id, discount_percent, used, order_id, issued_at, used_at`

const (
	getCouponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	lockCouponSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1 FOR UPDATE`

	insertCouponSQL = `INSERT INTO coupons (client_id, discount_percent, used, order_id, issued_at, used_at)
	VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	updateCouponSQL = `UPDATE coupons
	SET discount_percent = $2, used = $3, order_id = $4, used_at = $5
	WHERE id = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`

	listCouponsByClientSQL = `SELECT ` + couponColumns + ` FROM coupons
	WHERE client_id = $1 ORDER BY issued_at DESC, id DESC`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// Read-modify-write operations lock the coupon row for the duration of a
// transaction.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// GetByID returns a coupon or coupon.ErrCouponNotFound.
func (r *CouponRepository) GetByID(ctx context.Context, id int64) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %d: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, fmt.Errorf("getting coupon %d: %w", id, err)
	}
	return &c, nil
}

// Insert persists a new coupon and sets its id.
func (r *CouponRepository) Insert(ctx context.Context, c *coupon.Coupon) error {
	err := r.pool.QueryRow(ctx, insertCouponSQL,
		c.ClientID, c.DiscountPercent, c.Used, c.OrderID, c.IssuedAt, c.UsedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("creating coupon for client %d: %w", c.ClientID, err)
	}
	return nil
}

// Update applies fn to the coupon under SELECT ... FOR UPDATE.
func (r *CouponRepository) Update(ctx context.Context, id int64, fn func(c *coupon.Coupon) error) (*coupon.Coupon, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning coupon transaction: %w", err)
	}
	defer rollback(ctx, tx)

	c, err := lockCoupon(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, updateCouponSQL, c.ID, c.DiscountPercent, c.Used, c.OrderID, c.UsedAt); err != nil {
		return nil, fmt.Errorf("updating coupon %d: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing coupon %d: %w", id, err)
	}
	return c, nil
}

// Delete removes the coupon if check accepts it, under the same row lock
// as Update.
func (r *CouponRepository) Delete(ctx context.Context, id int64, check func(c *coupon.Coupon) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning coupon transaction: %w", err)
	}
	defer rollback(ctx, tx)

	c, err := lockCoupon(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := check(c); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, deleteCouponSQL, id); err != nil {
		return fmt.Errorf("deleting coupon %d: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing coupon %d: %w", id, err)
	}
	return nil
}

// ListByClient returns every coupon of a client, newest first.
func (r *CouponRepository) ListByClient(ctx context.Context, clientID int64) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsByClientSQL, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing coupons of client %d: %w", clientID, err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

func lockCoupon(ctx context.Context, tx pgx.Tx, id int64) (*coupon.Coupon, error) {
	rows, err := tx.Query(ctx, lockCouponSQL, id)
	if err != nil {
		return nil, fmt.Errorf("locking coupon %d: %w", id, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, fmt.Errorf("locking coupon %d: %w", id, err)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(&c.ID, &c.ClientID, &c.DiscountPercent, &c.Used, &c.OrderID, &c.IssuedAt, &c.UsedAt)
	return c, err
}
