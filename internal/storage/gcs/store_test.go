package gcs

import (
	"context"
	"testing"

	gcs "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/xenking/repairdesk/internal/artifact"
)

func newTestClient(t *testing.T) *gcs.Client {
	t.Helper()
	client, err := gcs.NewClient(context.Background(),
		option.WithEndpoint("http://127.0.0.1:1/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNew(t *testing.T) {
	client := newTestClient(t)

	tests := []struct {
		name    string
		cfg     Config
		prefix  string
		wantErr bool
	}{
		{name: "bucket required", cfg: Config{Bucket: "  "}, wantErr: true},
		{name: "no prefix", cfg: Config{Bucket: "docs"}, prefix: ""},
		{name: "prefix normalized", cfg: Config{Bucket: "docs", Prefix: "/repairdesk/"}, prefix: "repairdesk/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(client, tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.prefix, s.prefix)
			require.NoError(t, s.Close())
		})
	}

	_, err := New(nil, Config{Bucket: "docs"})
	require.Error(t, err)
}

func TestStore_RejectsUnsafeRefs(t *testing.T) {
	s, err := New(newTestClient(t), Config{Bucket: "docs"})
	require.NoError(t, err)
	ctx := context.Background()

	for _, ref := range []string{"", "/abs.pdf", "orders/../x.pdf"} {
		require.Error(t, s.Put(ctx, &artifact.Artifact{Ref: ref}), ref)
		_, err := s.Get(ctx, ref)
		require.Error(t, err, ref)
		require.Error(t, s.Delete(ctx, ref), ref)
	}
}
