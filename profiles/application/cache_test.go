package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lhudash/chisa-api/pkg/metrics"
	"github.com/lhudash/chisa-api/profiles/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	rows      map[string]domain.Profile
	fetchErr  error
	upsertErr error
	fetches   int
	upserts   int
	panicOn   string
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]domain.Profile{}}
}

func (s *fakeStore) FetchByID(_ context.Context, id string) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if id == s.panicOn {
		panic("boom")
	}
	if s.fetchErr != nil {
		return domain.Profile{}, s.fetchErr
	}
	p, ok := s.rows[id]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return p, nil
}

func (s *fakeStore) Upsert(_ context.Context, p domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.rows[p.UserID] = p
	return nil
}

func (s *fakeStore) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func TestGetUserData_MissFillsFromStore(t *testing.T) {
	store := newFakeStore()
	store.rows["u1"] = domain.Profile{UserID: "u1", FullName: "A"}
	c := NewProfileCache(store, 10, 0)
	ctx := context.Background()

	p, ok := c.GetUserData(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, "A", p.FullName)

	p, ok = c.GetUserData(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, "A", p.FullName)
	assert.Equal(t, 1, store.fetchCount(), "second lookup is served from memory")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRatio)
}

func TestGetUserData_NotFoundIsAbsent(t *testing.T) {
	c := NewProfileCache(newFakeStore(), 10, 0)

	_, ok := c.GetUserData(context.Background(), "nobody")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Size)
}

func TestGetUserData_StoreFailureIsAbsent(t *testing.T) {
	store := newFakeStore()
	store.fetchErr = errors.New("db down")
	c := NewProfileCache(store, 10, 0)

	_, ok := c.GetUserData(context.Background(), "u1")
	assert.False(t, ok)

	store.fetchErr = nil
	store.rows["u1"] = domain.Profile{UserID: "u1", FullName: "A"}
	p, ok := c.GetUserData(context.Background(), "u1")
	require.True(t, ok, "a failed fetch leaves the cache usable")
	assert.Equal(t, "A", p.FullName)
}

func TestGetUserData_StorePanicReleasesLock(t *testing.T) {
	store := newFakeStore()
	store.panicOn = "bad"
	c := NewProfileCache(store, 10, 0)

	_, ok := c.GetUserData(context.Background(), "bad")
	assert.False(t, ok)

	done := make(chan struct{})
	go func() {
		c.SetUserData(context.Background(), "u2", domain.Profile{FullName: "B"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock was not released after a store panic")
	}
}

func TestSetUserData_WritesThrough(t *testing.T) {
	store := newFakeStore()
	c := NewProfileCache(store, 10, 0)
	ctx := context.Background()

	c.SetUserData(ctx, "u1", domain.Profile{FullName: "A", Class: "21CT111"})

	assert.Equal(t, "u1", store.rows["u1"].UserID)
	p, ok := c.GetUserData(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, "21CT111", p.Class)
	assert.Equal(t, 0, store.fetchCount())
}

func TestSetUserData_StoreErrorStillCaches(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = errors.New("write failed")
	c := NewProfileCache(store, 10, 0)

	c.SetUserData(context.Background(), "u1", domain.Profile{FullName: "A"})

	p, ok := c.GetUserData(context.Background(), "u1")
	require.True(t, ok)
	assert.Equal(t, "A", p.FullName)
}

func TestConcurrentFillsForSameKey(t *testing.T) {
	store := newFakeStore()
	c := NewProfileCache(store, 10, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, name := range []string{"first", "second"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if _, ok := c.GetUserData(ctx, "u1"); !ok {
				c.SetUserData(ctx, "u1", domain.Profile{FullName: name})
			}
		}(name)
	}
	wg.Wait()

	p, ok := c.GetUserData(ctx, "u1")
	require.True(t, ok)
	assert.Contains(t, []string{"first", "second"}, p.FullName)
	assert.Equal(t, 1, c.Stats().Size)
}

func TestTTLExpiryRefetches(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	store := newFakeStore()
	store.rows["u1"] = domain.Profile{UserID: "u1"}
	m := metrics.New()
	c := NewProfileCache(store, 10, time.Hour, WithClock(clock), WithMetrics(m))
	ctx := context.Background()

	_, ok := c.GetUserData(ctx, "u1")
	require.True(t, ok)

	now = now.Add(time.Hour)
	_, ok = c.GetUserData(ctx, "u1")
	require.True(t, ok)

	assert.Equal(t, 2, store.fetchCount())
	assert.Equal(t, int64(1), c.Stats().Evictions)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProfileCacheEvictions.WithLabelValues("expired")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProfileCacheRequests.WithLabelValues("miss")))
}

func TestInvalidate(t *testing.T) {
	store := newFakeStore()
	store.rows["u1"] = domain.Profile{UserID: "u1"}
	c := NewProfileCache(store, 10, 0)
	ctx := context.Background()

	c.GetUserData(ctx, "u1")
	c.Invalidate("u1")
	c.GetUserData(ctx, "u1")

	assert.Equal(t, 2, store.fetchCount())
}
