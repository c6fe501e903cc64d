package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lhudash/chisa-api/infrastructure/valkey"
	valkeylib "github.com/valkey-io/valkey-go"
)

// ValkeyNonceStore shares nonces between API replicas.
type ValkeyNonceStore struct {
	client *valkey.Client
	prefix string
}

func NewValkeyNonceStore(client *valkey.Client) *ValkeyNonceStore {
	return &ValkeyNonceStore{
		client: client,
		prefix: client.Key("nonce") + ":",
	}
}

func (s *ValkeyNonceStore) inner() valkeylib.Client {
	return s.client.Inner()
}

func (s *ValkeyNonceStore) Create(ctx context.Context, ttl time.Duration) (string, error) {
	nonce := uuid.NewString()
	cmd := s.inner().B().Set().
		Key(s.prefix + nonce).
		Value("1").
		Nx().
		Ex(ttl).
		Build()

	if err := s.inner().Do(ctx, cmd).Error(); err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}
	return nonce, nil
}

func (s *ValkeyNonceStore) Check(ctx context.Context, nonce string) (bool, error) {
	cmd := s.inner().B().Exists().Key(s.prefix + nonce).Build()
	n, err := s.inner().Do(ctx, cmd).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to check nonce: %w", err)
	}
	return n > 0, nil
}

func (s *ValkeyNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	cmd := s.inner().B().Getdel().Key(s.prefix + nonce).Build()
	err := s.inner().Do(ctx, cmd).Error()
	if err != nil {
		if valkey.IsNil(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}
	return true, nil
}

func (s *ValkeyNonceStore) Revoke(ctx context.Context, nonce string) error {
	cmd := s.inner().B().Del().Key(s.prefix + nonce).Build()
	if err := s.inner().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to revoke nonce: %w", err)
	}
	return nil
}
