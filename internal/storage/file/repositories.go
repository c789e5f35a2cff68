package file

import (
	"context"
	"slices"
	"sort"

	"github.com/xenking/repairdesk/internal/domain/auth"
	"github.com/xenking/repairdesk/internal/domain/client"
	"github.com/xenking/repairdesk/internal/domain/coupon"
	"github.com/xenking/repairdesk/internal/domain/order"
	"github.com/xenking/repairdesk/internal/domain/receipt"
)

var (
	_ client.Store       = (*ClientRepository)(nil)
	_ order.Repository   = (*OrderRepository)(nil)
	_ coupon.Repository  = (*CouponRepository)(nil)
	_ receipt.Repository = (*ReceiptRepository)(nil)
	_ auth.Repository    = (*APIKeyRepository)(nil)
)

// ClientRepository implements client.Store on a Store.
type ClientRepository struct{ s *Store }

// NewClientRepository returns a ClientRepository backed by s.
func NewClientRepository(s *Store) *ClientRepository { return &ClientRepository{s: s} }

// GetByID returns a client or client.ErrNotFound.
func (r *ClientRepository) GetByID(_ context.Context, id int64) (*client.Client, error) {
	var out *client.Client
	err := r.s.view(func(d *document) error {
		c, ok := d.Clients[id]
		if !ok {
			return client.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

// Create inserts a client and sets its id.
func (r *ClientRepository) Create(_ context.Context, c *client.Client) error {
	return r.s.update(func(d *document) error {
		d.Seq.Client++
		c.ID = d.Seq.Client
		d.Clients[c.ID] = *c
		return nil
	})
}

// List returns all clients ordered by id.
func (r *ClientRepository) List(_ context.Context) ([]client.Client, error) {
	var out []client.Client
	err := r.s.view(func(d *document) error {
		out = make([]client.Client, 0, len(d.Clients))
		for _, c := range d.Clients {
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// Delete removes a client unless an order, coupon or receipt refers to it.
func (r *ClientRepository) Delete(_ context.Context, id int64) error {
	return r.s.update(func(d *document) error {
		if _, ok := d.Clients[id]; !ok {
			return client.ErrNotFound
		}
		for _, o := range d.Orders {
			if o.ClientID == id {
				return client.ErrHasDependents
			}
		}
		for _, c := range d.Coupons {
			if c.ClientID == id {
				return client.ErrHasDependents
			}
		}
		for _, rc := range d.Receipts {
			if rc.ClientID == id {
				return client.ErrHasDependents
			}
		}
		delete(d.Clients, id)
		return nil
	})
}

// OrderRepository implements order.Repository on a Store. The number
// uniqueness check and the insert happen under the same lock.
type OrderRepository struct{ s *Store }

// NewOrderRepository returns an OrderRepository backed by s.
func NewOrderRepository(s *Store) *OrderRepository { return &OrderRepository{s: s} }

// NextID reserves an order id.
func (r *OrderRepository) NextID(_ context.Context) (int64, error) {
	var id int64
	err := r.s.update(func(d *document) error {
		d.Seq.Order++
		id = d.Seq.Order
		return nil
	})
	return id, err
}

// Insert persists a new order or returns order.ErrConflict when its number
// is taken.
func (r *OrderRepository) Insert(_ context.Context, o *order.Order) error {
	return r.s.update(func(d *document) error {
		for _, existing := range d.Orders {
			if existing.Number == o.Number {
				return order.ErrConflict
			}
		}
		d.Orders[o.ID] = cloneOrder(*o)
		return nil
	})
}

// Update replaces the editable fields of the stored order. Number, client,
// coupon, creation time and document reference keep their stored values.
func (r *OrderRepository) Update(_ context.Context, o *order.Order) error {
	return r.s.update(func(d *document) error {
		stored, ok := d.Orders[o.ID]
		if !ok {
			return order.ErrNotFound
		}
		next := cloneOrder(*o)
		next.Number = stored.Number
		next.ClientID = stored.ClientID
		next.CouponID = stored.CouponID
		next.CreatedAt = stored.CreatedAt
		next.ArtifactRef = stored.ArtifactRef
		d.Orders[o.ID] = next
		return nil
	})
}

// Delete removes an order.
func (r *OrderRepository) Delete(_ context.Context, id int64) error {
	return r.s.update(func(d *document) error {
		if _, ok := d.Orders[id]; !ok {
			return order.ErrNotFound
		}
		delete(d.Orders, id)
		return nil
	})
}

// GetByID returns a single order.
func (r *OrderRepository) GetByID(_ context.Context, id int64) (*order.Order, error) {
	var out *order.Order
	err := r.s.view(func(d *document) error {
		o, ok := d.Orders[id]
		if !ok {
			return order.ErrNotFound
		}
		o = cloneOrder(o)
		out = &o
		return nil
	})
	return out, err
}

// List returns orders matching f, newest first.
func (r *OrderRepository) List(_ context.Context, f order.Filter) ([]order.Order, error) {
	var out []order.Order
	err := r.s.view(func(d *document) error {
		for _, o := range d.Orders {
			if f.ClientID != 0 && o.ClientID != f.ClientID {
				continue
			}
			if f.Status != "" && o.Status != f.Status {
				continue
			}
			out = append(out, cloneOrder(o))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, err
}

// ListExistingNumbers returns every issued order number.
func (r *OrderRepository) ListExistingNumbers(_ context.Context) ([]int, error) {
	var out []int
	err := r.s.view(func(d *document) error {
		out = make([]int, 0, len(d.Orders))
		for _, o := range d.Orders {
			out = append(out, o.Number)
		}
		return nil
	})
	return out, err
}

// SetArtifact binds a document reference to an order.
func (r *OrderRepository) SetArtifact(_ context.Context, id int64, ref *string) error {
	return r.s.update(func(d *document) error {
		o, ok := d.Orders[id]
		if !ok {
			return order.ErrNotFound
		}
		o.ArtifactRef = clonePtr(ref)
		d.Orders[id] = o
		return nil
	})
}

func cloneOrder(o order.Order) order.Order {
	o.Parts = slices.Clone(o.Parts)
	o.CouponID = clonePtr(o.CouponID)
	o.ArtifactRef = clonePtr(o.ArtifactRef)
	o.EstimatedDeadline = clonePtr(o.EstimatedDeadline)
	return o
}

// CouponRepository implements coupon.Repository on a Store. The store lock
// serializes every read-modify-write.
type CouponRepository struct{ s *Store }

// NewCouponRepository returns a CouponRepository backed by s.
func NewCouponRepository(s *Store) *CouponRepository { return &CouponRepository{s: s} }

// GetByID returns a coupon or coupon.ErrCouponNotFound.
func (r *CouponRepository) GetByID(_ context.Context, id int64) (*coupon.Coupon, error) {
	var out *coupon.Coupon
	err := r.s.view(func(d *document) error {
		c, ok := d.Coupons[id]
		if !ok {
			return coupon.ErrCouponNotFound
		}
		c = cloneCoupon(c)
		out = &c
		return nil
	})
	return out, err
}

// Insert persists a new coupon and sets its id.
func (r *CouponRepository) Insert(_ context.Context, c *coupon.Coupon) error {
	return r.s.update(func(d *document) error {
		d.Seq.Coupon++
		c.ID = d.Seq.Coupon
		d.Coupons[c.ID] = cloneCoupon(*c)
		return nil
	})
}

// Update applies fn to a copy of the coupon and stores it if fn succeeds.
func (r *CouponRepository) Update(_ context.Context, id int64, fn func(c *coupon.Coupon) error) (*coupon.Coupon, error) {
	var out *coupon.Coupon
	err := r.s.update(func(d *document) error {
		c, ok := d.Coupons[id]
		if !ok {
			return coupon.ErrCouponNotFound
		}
		c = cloneCoupon(c)
		if err := fn(&c); err != nil {
			return err
		}
		d.Coupons[id] = c
		res := cloneCoupon(c)
		out = &res
		return nil
	})
	return out, err
}

// Delete removes the coupon if check accepts it.
func (r *CouponRepository) Delete(_ context.Context, id int64, check func(c *coupon.Coupon) error) error {
	return r.s.update(func(d *document) error {
		c, ok := d.Coupons[id]
		if !ok {
			return coupon.ErrCouponNotFound
		}
		c = cloneCoupon(c)
		if err := check(&c); err != nil {
			return err
		}
		delete(d.Coupons, id)
		return nil
	})
}

// ListByClient returns every coupon of a client, newest first.
func (r *CouponRepository) ListByClient(_ context.Context, clientID int64) ([]coupon.Coupon, error) {
	var out []coupon.Coupon
	err := r.s.view(func(d *document) error {
		for _, c := range d.Coupons {
			if c.ClientID == clientID {
				out = append(out, cloneCoupon(c))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})
	return out, err
}

func cloneCoupon(c coupon.Coupon) coupon.Coupon {
	c.OrderID = clonePtr(c.OrderID)
	c.UsedAt = clonePtr(c.UsedAt)
	return c
}

// ReceiptRepository implements receipt.Repository on a Store.
type ReceiptRepository struct{ s *Store }

// NewReceiptRepository returns a ReceiptRepository backed by s.
func NewReceiptRepository(s *Store) *ReceiptRepository { return &ReceiptRepository{s: s} }

// Insert persists a receipt and sets its id.
func (r *ReceiptRepository) Insert(_ context.Context, rc *receipt.Receipt) error {
	return r.s.update(func(d *document) error {
		d.Seq.Receipt++
		rc.ID = d.Seq.Receipt
		c := *rc
		c.ArtifactRef = clonePtr(rc.ArtifactRef)
		d.Receipts[rc.ID] = c
		return nil
	})
}

// Update saves the payment fields of a receipt.
func (r *ReceiptRepository) Update(_ context.Context, rc *receipt.Receipt) error {
	return r.s.update(func(d *document) error {
		stored, ok := d.Receipts[rc.ID]
		if !ok {
			return receipt.ErrNotFound
		}
		stored.AmountPaid = rc.AmountPaid
		stored.PaymentMethod = rc.PaymentMethod
		stored.Installments = rc.Installments
		d.Receipts[rc.ID] = stored
		return nil
	})
}

// Delete removes a receipt.
func (r *ReceiptRepository) Delete(_ context.Context, id int64) error {
	return r.s.update(func(d *document) error {
		if _, ok := d.Receipts[id]; !ok {
			return receipt.ErrNotFound
		}
		delete(d.Receipts, id)
		return nil
	})
}

// GetByID returns a single receipt.
func (r *ReceiptRepository) GetByID(_ context.Context, id int64) (*receipt.Receipt, error) {
	var out *receipt.Receipt
	err := r.s.view(func(d *document) error {
		rc, ok := d.Receipts[id]
		if !ok {
			return receipt.ErrNotFound
		}
		rc.ArtifactRef = clonePtr(rc.ArtifactRef)
		out = &rc
		return nil
	})
	return out, err
}

// ListByClient returns the receipts of a client, newest first.
func (r *ReceiptRepository) ListByClient(_ context.Context, clientID int64) ([]receipt.Receipt, error) {
	var out []receipt.Receipt
	err := r.s.view(func(d *document) error {
		for _, rc := range d.Receipts {
			if rc.ClientID == clientID {
				rc.ArtifactRef = clonePtr(rc.ArtifactRef)
				out = append(out, rc)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, err
}

// SetArtifact binds a document reference to a receipt.
func (r *ReceiptRepository) SetArtifact(_ context.Context, id int64, ref *string) error {
	return r.s.update(func(d *document) error {
		rc, ok := d.Receipts[id]
		if !ok {
			return receipt.ErrNotFound
		}
		rc.ArtifactRef = clonePtr(ref)
		d.Receipts[id] = rc
		return nil
	})
}

// APIKeyRepository implements auth.Repository on a Store.
type APIKeyRepository struct{ s *Store }

// NewAPIKeyRepository returns an APIKeyRepository backed by s.
func NewAPIKeyRepository(s *Store) *APIKeyRepository { return &APIKeyRepository{s: s} }

// FindByHash looks up an API key by its HMAC-SHA256 hash.
func (r *APIKeyRepository) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	var out *auth.APIKeyInfo
	err := r.s.view(func(d *document) error {
		info, ok := d.APIKeys[hash]
		if !ok {
			return auth.ErrNotFound
		}
		info.Scopes = slices.Clone(info.Scopes)
		out = &info
		return nil
	})
	return out, err
}

// Save creates or replaces an API key record. Older records with the same
// id are removed.
func (r *APIKeyRepository) Save(_ context.Context, info auth.APIKeyInfo) error {
	return r.s.update(func(d *document) error {
		for hash, existing := range d.APIKeys {
			if existing.ID == info.ID {
				delete(d.APIKeys, hash)
			}
		}
		info.Scopes = slices.Clone(info.Scopes)
		d.APIKeys[info.KeyHash] = info
		return nil
	})
}
