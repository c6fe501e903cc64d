package application

import (
	"context"
	"time"

	"github.com/lhudash/chisa-api/auth/domain"
	"github.com/lhudash/chisa-api/pkg/crypto"
	"github.com/sirupsen/logrus"
)

// ToolToken is a sealed upstream access token handed to the model.
type ToolToken struct {
	Value string
	Nonce string
}

// TokenService issues and resolves tool tokens.
type TokenService struct {
	sealer *crypto.Sealer
	nonces domain.NonceStore
	ttl    time.Duration
}

func NewTokenService(sealer *crypto.Sealer, nonces domain.NonceStore, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TokenService{sealer: sealer, nonces: nonces, ttl: ttl}
}

// Issue seals accessToken bound to a fresh nonce.
func (s *TokenService) Issue(ctx context.Context, accessToken string) (ToolToken, error) {
	nonce, err := s.nonces.Create(ctx, s.ttl)
	if err != nil {
		return ToolToken{}, err
	}
	sealed, err := s.sealer.SealLoginData(accessToken, nonce, s.ttl)
	if err != nil {
		_ = s.nonces.Revoke(ctx, nonce)
		return ToolToken{}, err
	}
	return ToolToken{Value: sealed, Nonce: nonce}, nil
}

// Resolve returns the upstream access token inside a live tool token.
func (s *TokenService) Resolve(ctx context.Context, sealed string) (string, error) {
	data, err := s.sealer.OpenLoginData(sealed)
	if err != nil {
		logrus.WithError(err).Debug("[AUTH] Rejected tool token")
		return "", domain.ErrInvalidToolToken
	}

	live, err := s.nonces.Check(ctx, data.Nonce)
	if err != nil {
		return "", err
	}
	if !live {
		return "", domain.ErrNonceRevoked
	}
	return data.AccessToken, nil
}

// Revoke ends the tool token's session.
func (s *TokenService) Revoke(ctx context.Context, t ToolToken) {
	if t.Nonce == "" {
		return
	}
	if err := s.nonces.Revoke(ctx, t.Nonce); err != nil {
		logrus.WithError(err).Warn("[AUTH] Failed to revoke nonce")
	}
}
