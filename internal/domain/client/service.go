package client

import (
	"context"
	"strings"
	"unicode"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Service manages the client directory.
type Service struct {
	store Store
}

// NewService creates a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates and stores a new client. The tax id keeps only digits.
func (s *Service) Create(ctx context.Context, c Client) (*Client, error) {
	c.ID = 0
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.Document = strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, c.Document)
	if c.Name == "" {
		return nil, ErrInvalidName
	}

	if err := s.store.Create(ctx, &c); err != nil {
		return nil, errors.Wrap(err, "create client")
	}
	zctx.From(ctx).Info("Client created", zap.Int64("client_id", c.ID))
	return &c, nil
}

// Get returns a client by id.
func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "get client %d", id)
	}
	return c, nil
}

// List returns every client ordered by id.
func (s *Service) List(ctx context.Context) ([]Client, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list clients")
	}
	return list, nil
}

// Delete removes a client that owns no orders, coupons or receipts.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrHasDependents) {
			return err
		}
		return errors.Wrapf(err, "delete client %d", id)
	}
	zctx.From(ctx).Info("Client deleted", zap.Int64("client_id", id))
	return nil
}
