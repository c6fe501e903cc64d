package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryNonceStore keeps nonces in process. Used when Valkey is disabled.
type MemoryNonceStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

func NewMemoryNonceStore() *MemoryNonceStore {
	s := &MemoryNonceStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go s.cleanupLoop(time.Minute)
	return s
}

func (s *MemoryNonceStore) Create(_ context.Context, ttl time.Duration) (string, error) {
	nonce := uuid.NewString()
	s.mu.Lock()
	s.entries[nonce] = s.now().Add(ttl)
	s.mu.Unlock()
	return nonce, nil
}

func (s *MemoryNonceStore) Check(_ context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.entries[nonce]
	if !ok {
		return false, nil
	}
	if !s.now().Before(exp) {
		delete(s.entries, nonce)
		return false, nil
	}
	return true, nil
}

func (s *MemoryNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.entries[nonce]
	if !ok {
		return false, nil
	}
	delete(s.entries, nonce)
	return s.now().Before(exp), nil
}

func (s *MemoryNonceStore) Revoke(_ context.Context, nonce string) error {
	s.mu.Lock()
	delete(s.entries, nonce)
	s.mu.Unlock()
	return nil
}

// Len is the number of stored nonces, expired ones included.
func (s *MemoryNonceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryNonceStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryNonceStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, exp := range s.entries {
		if !now.Before(exp) {
			delete(s.entries, k)
		}
	}
}

func (s *MemoryNonceStore) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}
