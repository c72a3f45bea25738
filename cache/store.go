// Package cache is a read-through cache in front of a TemplateResolver with
// explicit, EHC scoped invalidation.
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store is the key/value contract the template cache needs. Get reports a
// miss with found=false and a nil error. DeletePrefix removes every key that
// MatchesPrefix one of prefixes, in one batch.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	DeletePrefix(ctx context.Context, prefixes ...string) error
}

// Sweepable stores can drop expired entries on demand.
type Sweepable interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore keeps entries in process. A zero TTL keeps them until they are
// invalidated.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock sets the clock used for expiry.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore builds an empty store.
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || entry.expired(s.now()) {
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeletePrefix(_ context.Context, prefixes ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		for _, prefix := range prefixes {
			if MatchesPrefix(k, prefix) {
				delete(s.entries, k)
				break
			}
		}
	}
	return nil
}

// Sweep drops entries that expired at or before now.
func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Keys lists the live keys in order.
func (s *MemoryStore) Keys() []string {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for k, entry := range s.entries {
		if !entry.expired(now) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// NopStore never holds anything. It disables caching without changing the
// wiring.
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NopStore) Set(context.Context, string, []byte) error         { return nil }
func (NopStore) DeletePrefix(context.Context, ...string) error     { return nil }

func trimPrefixes(prefixes []string) []string {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
