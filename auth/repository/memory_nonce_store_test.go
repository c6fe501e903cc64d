package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryNonceStore(t *testing.T) {
	s := NewMemoryNonceStore()
	defer s.Close()
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	n, err := s.Create(ctx, time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, n)

	ok, err := s.Check(ctx, n)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = s.Check(ctx, n)
	assert.True(t, ok, "check does not consume")

	ok, _ = s.Consume(ctx, n)
	assert.True(t, ok)
	ok, _ = s.Consume(ctx, n)
	assert.False(t, ok, "consume is single use")
}

func TestMemoryNonceStoreExpiry(t *testing.T) {
	s := NewMemoryNonceStore()
	defer s.Close()
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	a, _ := s.Create(ctx, time.Minute)
	b, _ := s.Create(ctx, time.Hour)

	now = now.Add(time.Minute)
	ok, _ := s.Check(ctx, a)
	assert.False(t, ok)

	s.cleanup()
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Revoke(ctx, b))
	ok, _ = s.Check(ctx, b)
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}
