package handler

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/repairdesk/internal/domain/auth"
	"github.com/xenking/repairdesk/pkg/httpmiddleware"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "X-API-Key"

var errUnauthorized = errors.New("unauthorized")

type apiKeyCtxKey struct{}

// APIKeyFromContext returns the key that authenticated the request.
func APIKeyFromContext(ctx context.Context) (*auth.APIKeyInfo, bool) {
	info, ok := ctx.Value(apiKeyCtxKey{}).(*auth.APIKeyInfo)
	return info, ok
}

// Authenticator checks API keys against their stored HMAC-SHA256 hashes.
type Authenticator struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(apikeys auth.Repository, pepper []byte) *Authenticator {
	return &Authenticator{apikeys: apikeys, pepper: pepper}
}

// Authenticate resolves key to its record. Any failure is errUnauthorized
// except repository errors, which are wrapped.
func (a *Authenticator) Authenticate(ctx context.Context, key string) (*auth.APIKeyInfo, error) {
	if key == "" {
		return nil, errUnauthorized
	}
	hash := auth.HashKey(a.pepper, key)

	info, err := a.apikeys.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, errUnauthorized
		}
		return nil, errors.Wrap(err, "find api key")
	}

	want, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, errUnauthorized
	}
	got, _ := hex.DecodeString(hash)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return nil, errUnauthorized
	}
	return info, nil
}

// Middleware rejects requests without a valid key with 401.
func (a *Authenticator) Middleware() httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			info, err := a.Authenticate(ctx, r.Header.Get(APIKeyHeader))
			if err != nil {
				if !errors.Is(err, errUnauthorized) {
					zctx.From(ctx).Error("Authenticate", zap.Error(err))
					httpmiddleware.WriteError(w, http.StatusInternalServerError, "internal", "internal server error")
					return
				}
				httpmiddleware.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid API key")
				return
			}
			ctx = context.WithValue(ctx, apiKeyCtxKey{}, info)
			ctx = zctx.With(ctx, zap.String("api_key_id", info.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
