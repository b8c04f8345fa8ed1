package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryStore is a Store implementation powered by a map, to be used for
// testing or caches.
type InMemoryStore struct {
	sync.Mutex
	opts options
	m    map[string]memoryEntry
}

type memoryEntry struct {
	value    []byte
	deadline time.Time
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	return &InMemoryStore{
		opts: newOptions(opts),
		m:    make(map[string]memoryEntry),
	}
}

func (s *InMemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) (err error) {
	s.Lock()
	s.m[key] = memoryEntry{
		value:    dup(value),
		deadline: deadline(s.opts.now(), ttl),
	}
	s.Unlock()
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, key string) (value []byte, err error) {
	value, _, _, err = s.getWithTTL(ctx, key)
	return value, err
}

func (s *InMemoryStore) getWithTTL(_ context.Context, key string) ([]byte, time.Duration, bool, error) {
	s.Lock()
	e, ok := s.m[key]
	s.Unlock()
	now := s.opts.now()
	if !ok || expired(e.deadline, now) {
		return nil, 0, false, fmt.Errorf("%.40q: %w", key, ErrNotFound)
	}
	return dup(e.value), remaining(e.deadline, now), true, nil
}

func (s *InMemoryStore) Sweep(ctx context.Context) (removed int, err error) {
	s.Lock()
	defer s.Unlock()
	now := s.opts.now()
	for key, e := range s.m {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if expired(e.deadline, now) {
			delete(s.m, key)
			removed++
		}
	}
	return removed, nil
}
