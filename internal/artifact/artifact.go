// Package artifact produces rendered documents and keeps them in a Store
// under opaque references.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/oklog/ulid/v2"

	"github.com/xenking/repairdesk/internal/document"
)

// MIMETypePDF is the content type of every generated document.
const MIMETypePDF = "application/pdf"

// ErrNotFound is returned by Store.Get for an unknown reference.
var ErrNotFound = errors.New("artifact not found")

// Artifact is a stored document.
type Artifact struct {
	Ref       string
	MIMEType  string
	Data      []byte
	CreatedAt time.Time
}

// Store persists artifacts. Delete of an unknown reference is not an error.
type Store interface {
	Put(ctx context.Context, a *Artifact) error
	Get(ctx context.Context, ref string) (*Artifact, error)
	Delete(ctx context.Context, ref string) error
}

// Renderer turns document data into bytes.
type Renderer interface {
	RenderOrder(w io.Writer, data document.OrderData) error
	RenderReceipt(w io.Writer, data document.ReceiptData) error
}

// Generator renders documents and stores them.
type Generator struct {
	store    Store
	renderer Renderer
	now      func() time.Time
	idGen    func() string
}

// NewGenerator creates a Generator.
func NewGenerator(store Store, renderer Renderer) *Generator {
	return &Generator{
		store:    store,
		renderer: renderer,
		now:      time.Now,
		idGen:    func() string { return ulid.Make().String() },
	}
}

// GenerateOrder renders an order document and returns its reference.
func (g *Generator) GenerateOrder(ctx context.Context, data document.OrderData) (string, error) {
	var buf bytes.Buffer
	if err := g.renderer.RenderOrder(&buf, data); err != nil {
		return "", errors.Wrap(err, "render order")
	}
	return g.put(ctx, fmt.Sprintf("orders/%d", data.Number), buf.Bytes())
}

// GenerateReceipt renders a receipt document and returns its reference.
func (g *Generator) GenerateReceipt(ctx context.Context, data document.ReceiptData) (string, error) {
	var buf bytes.Buffer
	if err := g.renderer.RenderReceipt(&buf, data); err != nil {
		return "", errors.Wrap(err, "render receipt")
	}
	return g.put(ctx, fmt.Sprintf("receipts/%d", data.ID), buf.Bytes())
}

// Release deletes the artifact behind ref. Releasing an empty or unknown
// reference is a no-op.
func (g *Generator) Release(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	if err := g.store.Delete(ctx, ref); err != nil {
		return errors.Wrapf(err, "delete %s", ref)
	}
	return nil
}

// Open returns the artifact behind ref.
func (g *Generator) Open(ctx context.Context, ref string) (*Artifact, error) {
	a, err := g.store.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "get %s", ref)
	}
	return a, nil
}

func (g *Generator) put(ctx context.Context, prefix string, data []byte) (string, error) {
	ref := fmt.Sprintf("%s/%s.pdf", prefix, g.idGen())

	a := &Artifact{
		Ref:       ref,
		MIMEType:  MIMETypePDF,
		Data:      data,
		CreatedAt: g.now(),
	}
	if err := g.store.Put(ctx, a); err != nil {
		return "", errors.Wrapf(err, "put %s", ref)
	}
	return ref, nil
}

// ValidRef reports whether ref is safe to use as a relative storage key.
func ValidRef(ref string) bool {
	if ref == "" || ref[0] == '/' {
		return false
	}
	for i := 0; i+1 < len(ref); i++ {
		if ref[i] == '.' && ref[i+1] == '.' {
			return false
		}
	}
	return true
}
