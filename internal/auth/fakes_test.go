package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/orderme/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memoryEntry struct {
	status    domain.TokenStatus
	expiresAt time.Time
}

// memoryStore mimics Redis SET/GET with TTLs driven by the fake clock.
type memoryStore struct {
	mu      sync.Mutex
	clock   *fakeClock
	entries map[string]memoryEntry
	ttls    map[string]time.Duration
	fail    error
	gets    int
}

func newMemoryStore(clock *fakeClock) *memoryStore {
	return &memoryStore{
		clock:   clock,
		entries: make(map[string]memoryEntry),
		ttls:    make(map[string]time.Duration),
	}
}

func (s *memoryStore) Put(_ context.Context, key string, status domain.TokenStatus, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.entries[key] = memoryEntry{status: status, expiresAt: s.clock.Now().Add(ttl)}
	s.ttls[key] = ttl
	return nil
}

func (s *memoryStore) Get(_ context.Context, key string) (domain.TokenStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.fail != nil {
		return domain.TokenStatusAbsent, s.fail
	}
	entry, ok := s.live(key)
	if !ok {
		return domain.TokenStatusAbsent, nil
	}
	return entry.status, nil
}

func (s *memoryStore) Invalidate(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	entry, ok := s.live(key)
	if !ok {
		return nil
	}
	entry.status = domain.TokenStatusInvalid
	s.entries[key] = entry
	return nil
}

func (s *memoryStore) setFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *memoryStore) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

func (s *memoryStore) live(key string) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.clock.Now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

type authorityFixture struct {
	clock     *fakeClock
	store     *memoryStore
	signer    *Signer
	authority *Authority
}

func newAuthorityFixture(t *testing.T) *authorityFixture {
	t.Helper()
	clock := newFakeClock()
	signer, err := NewSigner("test-secret", clock.Now)
	require.NoError(t, err)
	store := newMemoryStore(clock)
	authority := NewAuthority(AuthorityDependencies{
		Signer:    signer,
		Store:     store,
		Lifetimes: DefaultLifetimes(),
		Clock:     clock.Now,
	})
	return &authorityFixture{clock: clock, store: store, signer: signer, authority: authority}
}
