package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
)

// BoltStore is an implementation of Store whose backend is a Bolt database.
type BoltStore struct {
	db   *bolt.DB
	opts options
}

var (
	bucketName = []byte("entries")
)

func NewBoltStore(db *bolt.DB, opts ...Option) (*BoltStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return fmt.Errorf("could not ensure bucket %q exists: %w", bucketName, err)
		}
		return nil
	})
	return &BoltStore{db: db, opts: newOptions(opts)}, err
}

func (s *BoltStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	sealed := seal(value, deadline(s.opts.now(), ttl))
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketName).Put([]byte(key), sealed); err != nil {
			return fmt.Errorf("could not put %.40q: %w", key, err)
		}
		return nil
	})
}

func (s *BoltStore) Get(ctx context.Context, key string) (value []byte, err error) {
	value, _, _, err = s.getWithTTL(ctx, key)
	return value, err
}

func (s *BoltStore) getWithTTL(_ context.Context, key string) (value []byte, left time.Duration, ok bool, err error) {
	now := s.opts.now()
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName).Get([]byte(key))
		if b == nil {
			return fmt.Errorf("%.40q: %w", key, ErrNotFound)
		}
		d, v, err := unseal(b)
		if err != nil {
			return fmt.Errorf("%.40q: %w", key, err)
		}
		if expired(d, now) {
			return fmt.Errorf("%.40q: expired: %w", key, ErrNotFound)
		}
		// Bolt's slices are only valid for the life of the transaction.
		value = dup(v)
		left = remaining(d, now)
		return nil
	})
	if err != nil {
		return nil, 0, false, err
	}
	return value, left, true, nil
}

func (s *BoltStore) Sweep(ctx context.Context) (removed int, err error) {
	now := s.opts.now()
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		// Deleting while iterating would make the cursor skip entries.
		var doomed [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if d, _, err := unseal(v); err == nil && !expired(d, now) {
				return nil
			}
			doomed = append(doomed, dup(k))
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range doomed {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("could not delete %.40q: %w", k, err)
			}
		}
		removed = len(doomed)
		return nil
	})
	return removed, err
}
