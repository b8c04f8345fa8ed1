package storage

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// Paired implements Store wrapping a pair of stores, one fast, one slow. The
// slow store is the one of record: puts reach it before anything else and
// their errors are the only ones returned. The fast store keeps copies for at
// most cacheTTL, and never past the deadline of the slow entry. It is
// consulted first on gets and is refilled from the slow store on misses, when
// the slow store can tell how long the entry has left.
type Paired struct {
	fast     Store
	slow     Store
	cacheTTL time.Duration
}

func NewPaired(fast, slow Store, cacheTTL time.Duration) *Paired {
	return &Paired{
		fast:     fast,
		slow:     slow,
		cacheTTL: cacheTTL,
	}
}

func (s *Paired) Get(ctx context.Context, key string) (value []byte, err error) {
	value, _, _, err = s.getWithTTL(ctx, key)
	return value, err
}

func (s *Paired) getWithTTL(ctx context.Context, key string) (value []byte, left time.Duration, ok bool, err error) {
	value, left, ok, err = getWithTTL(ctx, s.fast, key)
	if err == nil {
		return
	}
	logger := log.WithField("key", key)
	if !errors.Is(err, ErrNotFound) {
		logger.WithField("err", err).Warn("Could not get from fast store")
	}
	value, left, ok, err = getWithTTL(ctx, s.slow, key)
	if err != nil {
		return nil, 0, false, err
	}
	// A copy must not outlive its original.
	if !ok {
		logger.Debug("Not propagating from slow to fast, remaining time to live unknown")
		return value, 0, false, nil
	}
	if ferr := s.fast.Put(ctx, key, value, s.fastTTL(left)); ferr != nil {
		logger.WithField("err", ferr).Warn("Could not propagate from slow to fast")
	} else {
		logger.Debug("Propagated from slow to fast")
	}
	return value, left, true, nil
}

func (s *Paired) Put(ctx context.Context, key string, value []byte, ttl time.Duration) (err error) {
	if err = s.slow.Put(ctx, key, value, ttl); err != nil {
		return err
	}
	if ferr := s.fast.Put(ctx, key, value, s.fastTTL(ttl)); ferr != nil {
		log.WithFields(log.Fields{
			"key": key,
			"err": ferr,
		}).Warn("Could not write through to fast store")
	}
	return nil
}

// fastTTL bounds the life of a fast copy of an entry with the given ttl by
// the cache TTL.
func (s *Paired) fastTTL(ttl time.Duration) time.Duration {
	if ttl > 0 && (s.cacheTTL <= 0 || ttl < s.cacheTTL) {
		return ttl
	}
	return s.cacheTTL
}

// Sweep sweeps whichever of the two stores need it.
func (s *Paired) Sweep(ctx context.Context) (removed int, err error) {
	for _, store := range []Store{s.fast, s.slow} {
		sw, ok := store.(Sweeper)
		if !ok {
			continue
		}
		n, err := sw.Sweep(ctx)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}
