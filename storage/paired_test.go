package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nicolagi/filedrop/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// opaqueStore hides everything but the Store methods of the store it wraps.
type opaqueStore struct {
	storage.Store
}

func TestPaired(t *testing.T) {
	ctx := context.Background()
	t.Run("copies made on read expire with the entry", func(t *testing.T) {
		c := newFakeClock()
		fast := storage.NewInMemoryStore(storage.WithClock(c.Now))
		slow := storage.NewInMemoryStore(storage.WithClock(c.Now))
		store := storage.NewPaired(fast, slow, time.Hour)
		key := randomKey()
		require.Nil(t, store.Put(ctx, key, []byte("v"), 24*time.Hour))
		c.Advance(23*time.Hour + 30*time.Minute)
		value, err := store.Get(ctx, key)
		require.Nil(t, err)
		assert.Equal(t, []byte("v"), value)
		value, err = fast.Get(ctx, key)
		require.Nil(t, err, "expected a copy in the fast store")
		assert.Equal(t, []byte("v"), value)
		c.Advance(45 * time.Minute)
		_, err = store.Get(ctx, key)
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
		_, err = fast.Get(ctx, key)
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	})
	t.Run("no copies on read when the slow store cannot tell the remaining life", func(t *testing.T) {
		c := newFakeClock()
		fast := storage.NewInMemoryStore(storage.WithClock(c.Now))
		slow := storage.NewInMemoryStore(storage.WithClock(c.Now))
		store := storage.NewPaired(fast, opaqueStore{slow}, time.Hour)
		key := randomKey()
		require.Nil(t, slow.Put(ctx, key, []byte("v"), 24*time.Hour))
		value, err := store.Get(ctx, key)
		require.Nil(t, err)
		assert.Equal(t, []byte("v"), value)
		_, err = fast.Get(ctx, key)
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	})
	t.Run("copies of entries that never expire last the cache ttl", func(t *testing.T) {
		c := newFakeClock()
		fast := storage.NewInMemoryStore(storage.WithClock(c.Now))
		slow := storage.NewInMemoryStore(storage.WithClock(c.Now))
		store := storage.NewPaired(fast, slow, time.Hour)
		key := randomKey()
		require.Nil(t, slow.Put(ctx, key, []byte("v"), 0))
		_, err := store.Get(ctx, key)
		require.Nil(t, err)
		c.Advance(59 * time.Minute)
		_, err = fast.Get(ctx, key)
		assert.Nil(t, err)
		c.Advance(2 * time.Minute)
		_, err = fast.Get(ctx, key)
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	})
}
