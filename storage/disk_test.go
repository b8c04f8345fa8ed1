package storage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nicolagi/filedrop/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreSweepRacingPuts(t *testing.T) {
	ctx := context.Background()
	c := newFakeClock()
	store := storage.NewDiskStore(t.TempDir(), storage.WithClock(c.Now))
	const keysPerRound = 300
	for round := 0; round < 20; round++ {
		keys := make([]string, keysPerRound)
		for i := range keys {
			keys[i] = randomKey()
			require.Nil(t, store.Put(ctx, keys[i], []byte("stale"), time.Minute))
		}
		c.Advance(2 * time.Minute)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := store.Sweep(ctx)
			assert.Nil(t, err)
		}()
		go func() {
			defer wg.Done()
			for _, key := range keys {
				assert.Nil(t, store.Put(ctx, key, []byte("fresh"), time.Hour))
			}
		}()
		wg.Wait()

		var lost int
		for _, key := range keys {
			value, err := store.Get(ctx, key)
			if err != nil {
				lost++
				continue
			}
			assert.Equal(t, []byte("fresh"), value)
		}
		require.Zero(t, lost, "round %d: fresh puts removed by a concurrent sweep", round)
	}
}
