package application

import (
	"context"
	"testing"
	"time"

	"github.com/lhudash/chisa-api/auth/domain"
	"github.com/lhudash/chisa-api/auth/repository"
	"github.com/lhudash/chisa-api/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newService(t *testing.T) *TokenService {
	t.Helper()
	sealer, err := crypto.NewSealer(testKey)
	require.NoError(t, err)
	nonces := repository.NewMemoryNonceStore()
	t.Cleanup(nonces.Close)
	return NewTokenService(sealer, nonces, time.Minute)
}

func TestIssueAndResolve(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tok, err := svc.Issue(ctx, "upstream-token")
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Value)
	assert.NotEmpty(t, tok.Nonce)

	for i := 0; i < 3; i++ {
		got, err := svc.Resolve(ctx, tok.Value)
		require.NoError(t, err)
		assert.Equal(t, "upstream-token", got, "a token serves every tool call of the turn")
	}

	svc.Revoke(ctx, tok)
	_, err = svc.Resolve(ctx, tok.Value)
	assert.ErrorIs(t, err, domain.ErrNonceRevoked)
}

func TestResolveRejectsGarbage(t *testing.T) {
	svc := newService(t)

	_, err := svc.Resolve(context.Background(), "garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidToolToken)
}

func TestIssueRejectsEmptyToken(t *testing.T) {
	svc := newService(t)

	_, err := svc.Issue(context.Background(), "")
	assert.ErrorIs(t, err, crypto.ErrMissingToken)
}
