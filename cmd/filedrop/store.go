package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/nicolagi/filedrop/storage"
)

// buildStore returns the store selected by c, and a function releasing its
// resources.
func buildStore(ctx context.Context, c storeConfig) (storage.Store, func(), error) {
	noop := func() {}
	path := os.ExpandEnv(c.Path)
	switch c.Type {
	case "memory":
		return storage.NewInMemoryStore(), noop, nil
	case "bolt":
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, nil, fmt.Errorf("could not ensure directory for %q exists: %w", path, err)
		}
		db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, nil, fmt.Errorf("could not open database %q: %w", path, err)
		}
		store, err := storage.NewBoltStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, func() { _ = db.Close() }, nil
	case "disk":
		if err := os.MkdirAll(path, 0700); err != nil {
			return nil, nil, fmt.Errorf("could not ensure directory %q exists: %w", path, err)
		}
		return storage.NewDiskStore(path), noop, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, nil, fmt.Errorf("could not ensure directory for %q exists: %w", path, err)
		}
		store, err := storage.OpenSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "redis":
		if c.Address == "" {
			return nil, nil, fmt.Errorf("redis store: address is required")
		}
		store, err := storage.NewRedisStore(ctx, c.Address, c.Password, c.DB)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "s3":
		if c.Bucket == "" {
			return nil, nil, fmt.Errorf("s3 store: bucket is required")
		}
		store, err := storage.NewS3(c.Profile, c.Region, c.Endpoint, c.Bucket)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case "dynamodb":
		if c.Table == "" {
			return nil, nil, fmt.Errorf("dynamodb store: table is required")
		}
		store, err := storage.NewDynamoDB(c.Profile, c.Region, c.Table)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case "remote":
		if c.Address == "" {
			return nil, nil, fmt.Errorf("remote store: address is required")
		}
		return storage.NewRemoteStore(c.Address), noop, nil
	default:
		return nil, nil, fmt.Errorf("%q: unknown store type", c.Type)
	}
}
