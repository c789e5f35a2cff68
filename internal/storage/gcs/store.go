// Package gcs keeps generated documents in a Cloud Storage bucket.
package gcs

import (
	"context"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/go-faster/errors"
	"google.golang.org/api/option"

	"github.com/xenking/repairdesk/internal/artifact"
)

var _ artifact.Store = (*Store)(nil)

// Config selects the bucket and an optional emulator endpoint.
type Config struct {
	Bucket   string
	Prefix   string
	Endpoint string
}

// Store implements artifact.Store on a single bucket. References map to
// object names below Prefix.
type Store struct {
	client *gcs.Client
	bucket string
	prefix string
	owned  bool
}

// NewClient creates a Cloud Storage client for cfg. A non-empty Endpoint
// targets an emulator without authentication.
func NewClient(ctx context.Context, cfg Config) (*gcs.Client, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create storage client")
	}
	return client, nil
}

// Open creates a client from cfg and returns a Store that closes it.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s, err := New(client, cfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an existing client.
func New(client *gcs.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, errors.New("storage client is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	prefix := strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}, nil
}

// Close releases the client if the Store created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

func (s *Store) object(ref string) (*gcs.ObjectHandle, error) {
	if !artifact.ValidRef(ref) {
		return nil, errors.Errorf("invalid artifact ref %q", ref)
	}
	return s.client.Bucket(s.bucket).Object(s.prefix + ref), nil
}

// Put uploads the artifact.
func (s *Store) Put(ctx context.Context, a *artifact.Artifact) error {
	obj, err := s.object(a.Ref)
	if err != nil {
		return err
	}

	w := obj.NewWriter(ctx)
	w.ContentType = a.MIMEType
	if _, err := w.Write(a.Data); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "write object %s", a.Ref)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "close object %s", a.Ref)
	}
	return nil
}

// Get downloads the artifact or returns artifact.ErrNotFound.
func (s *Store) Get(ctx context.Context, ref string) (*artifact.Artifact, error) {
	obj, err := s.object(ref)
	if err != nil {
		return nil, err
	}

	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, artifact.ErrNotFound
		}
		return nil, errors.Wrapf(err, "open object %s", ref)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read object %s", ref)
	}
	mime := r.Attrs.ContentType
	if mime == "" {
		mime = artifact.MIMETypePDF
	}
	return &artifact.Artifact{
		Ref:       ref,
		MIMEType:  mime,
		Data:      data,
		CreatedAt: r.Attrs.LastModified,
	}, nil
}

// Delete removes the object. Missing objects are ignored.
func (s *Store) Delete(ctx context.Context, ref string) error {
	obj, err := s.object(ref)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return errors.Wrapf(err, "delete object %s", ref)
	}
	return nil
}
