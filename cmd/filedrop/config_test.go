package main

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nicolagi/filedrop/drop"
	"github.com/nicolagi/filedrop/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults for missing properties", func(t *testing.T) {
		pathname := filepath.Join(t.TempDir(), "filedrop.config")
		require.Nil(t, ioutil.WriteFile(pathname, []byte(`{
			debug: true
			store: {
				type: "disk"
			}
		}`), 0600))
		c, err := loadConfig(pathname)
		require.Nil(t, err)
		c.applyDefaultsForMissingProperties()
		assert.True(t, c.Debug)
		assert.Equal(t, ":8080", c.Listen)
		assert.EqualValues(t, 86400, c.TTLSeconds)
		assert.EqualValues(t, drop.DefaultMaxUploadBytes, c.MaxUploadBytes)
		assert.Equal(t, "404.html", c.NotFoundPage)
		assert.Equal(t, "disk", c.Store.Type)
		assert.Equal(t, "$HOME/lib/filedrop/files", c.Store.Path)
		assert.Equal(t, drop.Config{TTL: 24 * time.Hour, MaxUploadBytes: drop.DefaultMaxUploadBytes, Debug: true}, c.dropConfig())
	})
	t.Run("explicit properties are kept", func(t *testing.T) {
		pathname := filepath.Join(t.TempDir(), "filedrop.config")
		require.Nil(t, ioutil.WriteFile(pathname, []byte(`{
			listen: "localhost:9000"
			ttl_seconds: 60
			bypass_edge_cache: true
			cache_max_age_seconds: 300
			store: {
				type: "redis"
				address: "localhost:6379"
			}
		}`), 0600))
		c, err := loadConfig(pathname)
		require.Nil(t, err)
		c.applyDefaultsForMissingProperties()
		assert.Equal(t, "localhost:9000", c.Listen)
		assert.Equal(t, time.Minute, c.dropConfig().TTL)
		opts := c.staticOptions()
		assert.True(t, opts.BypassCache)
		assert.Equal(t, 5*time.Minute, opts.CacheMaxAge)
		assert.Equal(t, "localhost:6379", c.Store.Address)
		assert.Empty(t, c.Store.Path)
	})
	t.Run("uploads are capped to what fits in a dynamodb item", func(t *testing.T) {
		for _, configured := range []int64{0, 1 << 20} {
			c := config{MaxUploadBytes: configured, Store: storeConfig{Type: "dynamodb"}}
			c.applyDefaultsForMissingProperties()
			assert.EqualValues(t, storage.DynamoDBMaxValueBytes, c.MaxUploadBytes)
		}
		c := config{MaxUploadBytes: 1000, Store: storeConfig{Type: "dynamodb"}}
		c.applyDefaultsForMissingProperties()
		assert.EqualValues(t, 1000, c.MaxUploadBytes)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "nope"))
		assert.NotNil(t, err)
	})
}

func TestBuildStore(t *testing.T) {
	ctx := context.Background()
	roundTrip := func(t *testing.T, s storage.Store) {
		require.Nil(t, s.Put(ctx, "k", []byte("v"), time.Minute))
		v, err := s.Get(ctx, "k")
		require.Nil(t, err)
		assert.Equal(t, []byte("v"), v)
	}
	dir := t.TempDir()
	mr := miniredis.RunT(t)
	for _, c := range []storeConfig{
		{Type: "memory"},
		{Type: "bolt", Path: filepath.Join(dir, "sub", "files.db")},
		{Type: "disk", Path: filepath.Join(dir, "files")},
		{Type: "sqlite", Path: filepath.Join(dir, "files.sqlite")},
		{Type: "redis", Address: mr.Addr()},
	} {
		t.Run(c.Type, func(t *testing.T) {
			s, cleanup, err := buildStore(ctx, c)
			require.Nil(t, err)
			defer cleanup()
			roundTrip(t, s)
		})
	}
	t.Run("validation", func(t *testing.T) {
		for _, c := range []storeConfig{
			{Type: "redis"},
			{Type: "s3"},
			{Type: "dynamodb"},
			{Type: "remote"},
			{Type: "floppy"},
		} {
			_, _, err := buildStore(ctx, c)
			assert.NotNil(t, err, c.Type)
		}
	})
}
