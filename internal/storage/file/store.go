// Package file implements the repositories on a single JSON document and
// the artifact store on a directory tree. It suits a single-process
// deployment; every operation holds one process-wide lock.
package file

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/repairdesk/internal/domain/auth"
	"github.com/xenking/repairdesk/internal/domain/client"
	"github.com/xenking/repairdesk/internal/domain/coupon"
	"github.com/xenking/repairdesk/internal/domain/order"
	"github.com/xenking/repairdesk/internal/domain/receipt"
)

// DataFile is the name of the document inside the data directory.
const DataFile = "repairdesk.json"

type sequences struct {
	Client  int64 `json:"client"`
	Order   int64 `json:"order"`
	Coupon  int64 `json:"coupon"`
	Receipt int64 `json:"receipt"`
}

type document struct {
	Seq      sequences                  `json:"seq"`
	Clients  map[int64]client.Client    `json:"clients"`
	Orders   map[int64]order.Order      `json:"orders"`
	Coupons  map[int64]coupon.Coupon    `json:"coupons"`
	Receipts map[int64]receipt.Receipt  `json:"receipts"`
	APIKeys  map[string]auth.APIKeyInfo `json:"api_keys"`
}

func newDocument() *document {
	return &document{
		Clients:  map[int64]client.Client{},
		Orders:   map[int64]order.Order{},
		Coupons:  map[int64]coupon.Coupon{},
		Receipts: map[int64]receipt.Receipt{},
		APIKeys:  map[string]auth.APIKeyInfo{},
	}
}

// Store is the shared JSON document behind all file repositories.
type Store struct {
	mu   sync.Mutex
	path string
	doc  *document
}

// Open loads or creates the document in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	s := &Store{path: filepath.Join(dir, DataFile)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	doc := newDocument()
	raw, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return errors.Wrap(err, "read data file")
	default:
		if err := json.Unmarshal(raw, doc); err != nil {
			return errors.Wrapf(err, "decode %s", s.path)
		}
	}
	// Maps absent from older files decode as nil.
	fresh := newDocument()
	if doc.Clients == nil {
		doc.Clients = fresh.Clients
	}
	if doc.Orders == nil {
		doc.Orders = fresh.Orders
	}
	if doc.Coupons == nil {
		doc.Coupons = fresh.Coupons
	}
	if doc.Receipts == nil {
		doc.Receipts = fresh.Receipts
	}
	if doc.APIKeys == nil {
		doc.APIKeys = fresh.APIKeys
	}
	s.doc = doc
	return nil
}

// view runs fn under the lock without persisting.
func (s *Store) view(fn func(d *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.doc)
}

// update runs fn under the lock and persists the document if fn succeeds.
// fn must not modify d before it knows it will return nil. If the write
// fails the in-memory state is reloaded from disk.
func (s *Store) update(fn func(d *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.doc); err != nil {
		return err
	}
	if err := s.persist(); err != nil {
		if lerr := s.load(); lerr != nil {
			return errors.Wrap(lerr, "reload after failed write")
		}
		return err
	}
	return nil
}

// persist writes the document to a temp file and renames it into place.
func (s *Store) persist() error {
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode data file")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), DataFile+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrapf(err, "replace %s", s.path)
	}
	return nil
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
