package storage

import (
	"context"
	"errors"
	"time"
)

// Store represents a key-value store whose entries expire.
type Store interface {
	// Put stores value at key, replacing whatever was there. The entry is
	// expected to disappear once ttl has elapsed; a non-positive ttl means it
	// never does.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) (err error)

	// Get should return ErrNotFound if the key is not in the store or its entry
	// has expired.
	Get(ctx context.Context, key string) (value []byte, err error)
}

// Sweeper is implemented by stores that only notice expired entries when they
// are read. Sweep removes the expired entries and reports how many went.
type Sweeper interface {
	Sweep(ctx context.Context) (removed int, err error)
}

// ttlGetter is implemented by stores that can tell how long an entry has
// left to live. A zero remaining duration means the entry never expires; ok
// is false if the store cannot tell.
type ttlGetter interface {
	getWithTTL(ctx context.Context, key string) (value []byte, remaining time.Duration, ok bool, err error)
}

// getWithTTL gets key from s, along with its remaining life if s can tell.
func getWithTTL(ctx context.Context, s Store, key string) (value []byte, remaining time.Duration, ok bool, err error) {
	if g, isTTLGetter := s.(ttlGetter); isTTLGetter {
		return g.getWithTTL(ctx, key)
	}
	value, err = s.Get(ctx, key)
	return value, 0, false, err
}

var (
	// ErrNotFound indicates a key is not in the store.
	ErrNotFound = errors.New("not found")
)

// Option configures the stores that keep track of deadlines themselves.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now as the source of the current time, which
// decides whether entries have expired.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// deadline returns the instant an entry put at now with the given ttl
// expires, or the zero time if it never does.
func deadline(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func expired(deadline, now time.Time) bool {
	return !deadline.IsZero() && !now.Before(deadline)
}

// remaining is the life left to an entry that has not expired, zero if it
// never does.
func remaining(deadline, now time.Time) time.Duration {
	if deadline.IsZero() {
		return 0
	}
	return deadline.Sub(now)
}

func dup(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
