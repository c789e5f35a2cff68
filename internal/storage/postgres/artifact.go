package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/repairdesk/internal/artifact"
)

const (
	putArtifactSQL = `INSERT INTO artifacts (ref, mime_type, data, created_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (ref) DO UPDATE SET mime_type = EXCLUDED.mime_type, data = EXCLUDED.data`

	getArtifactSQL = `SELECT ref, mime_type, data, created_at FROM artifacts WHERE ref = $1`

	deleteArtifactSQL = `DELETE FROM artifacts WHERE ref = $1`
)

var _ artifact.Store = (*ArtifactStore)(nil)

// ArtifactStore keeps documents in a bytea table.
type ArtifactStore struct {
	pool *pgxpool.Pool
}

// NewArtifactStore returns an ArtifactStore that uses the given pool.
func NewArtifactStore(pool *pgxpool.Pool) *ArtifactStore {
	return &ArtifactStore{pool: pool}
}

// Put stores a, replacing any artifact with the same reference.
func (s *ArtifactStore) Put(ctx context.Context, a *artifact.Artifact) error {
	_, err := s.pool.Exec(ctx, putArtifactSQL, a.Ref, a.MIMEType, a.Data, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("storing artifact %q: %w", a.Ref, err)
	}
	return nil
}

// Get returns the artifact or artifact.ErrNotFound.
func (s *ArtifactStore) Get(ctx context.Context, ref string) (*artifact.Artifact, error) {
	rows, err := s.pool.Query(ctx, getArtifactSQL, ref)
	if err != nil {
		return nil, fmt.Errorf("getting artifact %q: %w", ref, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (artifact.Artifact, error) {
		var a artifact.Artifact
		err := row.Scan(&a.Ref, &a.MIMEType, &a.Data, &a.CreatedAt)
		return a, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, artifact.ErrNotFound
		}
		return nil, fmt.Errorf("getting artifact %q: %w", ref, err)
	}
	return &a, nil
}

// Delete removes an artifact. Unknown references are ignored.
func (s *ArtifactStore) Delete(ctx context.Context, ref string) error {
	if _, err := s.pool.Exec(ctx, deleteArtifactSQL, ref); err != nil {
		return fmt.Errorf("deleting artifact %q: %w", ref, err)
	}
	return nil
}
