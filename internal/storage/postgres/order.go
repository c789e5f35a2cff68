package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/repairdesk/internal/domain/cost"
	"github.com/xenking/repairdesk/internal/domain/order"
)

const orderColumns = `id, number, client_id, service,
	device_type, device_brand, device_model, device_serial,
	reported_defects, diagnosis, parts, labor_cost, parts_subtotal, subtotal,
	discount_percent, discount_amount, coupon_id, total, status,
	estimated_deadline, artifact_ref, created_at`

const (
	nextOrderIDSQL = `SELECT nextval('orders_id_seq')`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	updateOrderSQL = `UPDATE orders SET
		service = $2, device_type = $3, device_brand = $4, device_model = $5, device_serial = $6,
		reported_defects = $7, diagnosis = $8, parts = $9, labor_cost = $10,
		parts_subtotal = $11, subtotal = $12, discount_percent = $13, discount_amount = $14,
		total = $15, status = $16, estimated_deadline = $17
	WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
	WHERE ($1::BIGINT = 0 OR client_id = $1) AND ($2::TEXT = '' OR status = $2)
	ORDER BY created_at DESC, id DESC`

	listOrderNumbersSQL = `SELECT number FROM orders`

	setOrderArtifactSQL = `UPDATE orders SET artifact_ref = $2 WHERE id = $1`

	orderNumberConstraint = "orders_number_key"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// NextID reserves an order id from the sequence.
func (r *OrderRepository) NextID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, nextOrderIDSQL).Scan(&id); err != nil {
		return 0, fmt.Errorf("reserving order id: %w", err)
	}
	return id, nil
}

// Insert persists a new order. The unique index on number turns a
// concurrent duplicate into order.ErrConflict.
func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	partsJSON, err := json.Marshal(nonNilParts(o.Parts))
	if err != nil {
		return fmt.Errorf("marshaling order parts: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertOrderSQL,
		o.ID, o.Number, o.ClientID, o.Service,
		o.Device.Type, o.Device.Brand, o.Device.Model, o.Device.Serial,
		o.ReportedDefects, o.Diagnosis, partsJSON, o.LaborCost, o.PartsSubtotal, o.Subtotal,
		o.DiscountPercent, o.DiscountAmount, o.CouponID, o.Total, string(o.Status),
		o.EstimatedDeadline, o.ArtifactRef, o.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, orderNumberConstraint) {
			return order.ErrConflict
		}
		return fmt.Errorf("creating order %d: %w", o.ID, err)
	}
	return nil
}

// Update saves the editable fields and amounts of an order.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	partsJSON, err := json.Marshal(nonNilParts(o.Parts))
	if err != nil {
		return fmt.Errorf("marshaling order parts: %w", err)
	}

	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, o.Service, o.Device.Type, o.Device.Brand, o.Device.Model, o.Device.Serial,
		o.ReportedDefects, o.Diagnosis, partsJSON, o.LaborCost,
		o.PartsSubtotal, o.Subtotal, o.DiscountPercent, o.DiscountAmount,
		o.Total, string(o.Status), o.EstimatedDeadline,
	)
	if err != nil {
		return fmt.Errorf("updating order %d: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Delete removes an order.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// GetByID returns a single order.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	return &o, nil
}

// List returns orders matching f, newest first.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, f.ClientID, string(f.Status))
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListExistingNumbers returns every issued order number.
func (r *OrderRepository) ListExistingNumbers(ctx context.Context) ([]int, error) {
	rows, err := r.pool.Query(ctx, listOrderNumbersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing order numbers: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

// SetArtifact binds a document reference to an order.
func (r *OrderRepository) SetArtifact(ctx context.Context, id int64, ref *string) error {
	tag, err := r.pool.Exec(ctx, setOrderArtifactSQL, id, ref)
	if err != nil {
		return fmt.Errorf("setting artifact of order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		status    string
		partsJSON []byte
		deadline  *time.Time
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.ClientID, &o.Service,
		&o.Device.Type, &o.Device.Brand, &o.Device.Model, &o.Device.Serial,
		&o.ReportedDefects, &o.Diagnosis, &partsJSON, &o.LaborCost, &o.PartsSubtotal, &o.Subtotal,
		&o.DiscountPercent, &o.DiscountAmount, &o.CouponID, &o.Total, &status,
		&deadline, &o.ArtifactRef, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	o.EstimatedDeadline = deadline
	if err := json.Unmarshal(partsJSON, &o.Parts); err != nil {
		return o, fmt.Errorf("unmarshaling parts of order %d: %w", o.ID, err)
	}
	return o, nil
}

func nonNilParts(p []cost.PartCost) []cost.PartCost {
	if p == nil {
		return []cost.PartCost{}
	}
	return p
}
