package domain

import (
	"context"
	"time"

	pkgError "github.com/lhudash/chisa-api/pkg/error"
)

var (
	ErrInvalidToolToken = pkgError.UnauthorizedError("access token is invalid or expired")
	ErrNonceRevoked     = pkgError.UnauthorizedError("access token has been revoked")
)

// NonceStore tracks single-session nonces bound to tool tokens.
type NonceStore interface {
	// Create issues a fresh nonce that lives for ttl.
	Create(ctx context.Context, ttl time.Duration) (string, error)
	// Check reports whether the nonce is still live without consuming it.
	Check(ctx context.Context, nonce string) (bool, error)
	// Consume atomically checks and removes the nonce.
	Consume(ctx context.Context, nonce string) (bool, error)
	Revoke(ctx context.Context, nonce string) error
}
