package file

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/xenking/repairdesk/internal/artifact"
)

var _ artifact.Store = (*ArtifactStore)(nil)

// ArtifactStore keeps documents as files below a root directory. The
// reference is the path relative to the root.
type ArtifactStore struct {
	root string
}

// NewArtifactStore creates root if needed and returns a store on it.
func NewArtifactStore(root string) (*ArtifactStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, errors.Wrap(err, "create artifact dir")
	}
	return &ArtifactStore{root: root}, nil
}

func (s *ArtifactStore) path(ref string) (string, error) {
	if !artifact.ValidRef(ref) {
		return "", errors.Errorf("invalid artifact ref %q", ref)
	}
	return filepath.Join(s.root, filepath.FromSlash(ref)), nil
}

// Put writes the artifact atomically.
func (s *ArtifactStore) Put(_ context.Context, a *artifact.Artifact) error {
	p, err := s.path(a.Ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return errors.Wrap(err, "create artifact parent")
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), filepath.Base(p)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp artifact")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(a.Data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write artifact")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close artifact")
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return errors.Wrap(err, "rename artifact")
	}
	return nil
}

// Get reads the artifact or returns artifact.ErrNotFound.
func (s *ArtifactStore) Get(_ context.Context, ref string) (*artifact.Artifact, error) {
	p, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, artifact.ErrNotFound
		}
		return nil, errors.Wrap(err, "stat artifact")
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Wrap(err, "read artifact")
	}
	return &artifact.Artifact{
		Ref:       ref,
		MIMEType:  artifact.MIMETypePDF,
		Data:      data,
		CreatedAt: info.ModTime(),
	}, nil
}

// Delete removes the artifact. Missing files are ignored.
func (s *ArtifactStore) Delete(_ context.Context, ref string) error {
	p, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove artifact")
	}
	return nil
}
