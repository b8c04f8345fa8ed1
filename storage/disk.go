package storage

import (
	"context"
	"crypto/sha512"
	"fmt"
	"hash/fnv"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const diskLockStripes = 64

// DiskStore implements Store, keeping each entry in its own file.
type DiskStore struct {
	dir  string
	opts options

	// Puts and sweeps of the same file are serialized, so that a sweep
	// never removes an entry replaced after it was found expired.
	locks [diskLockStripes]sync.Mutex
}

func NewDiskStore(dir string, opts ...Option) *DiskStore {
	return &DiskStore{dir: dir, opts: newOptions(opts)}
}

func (s *DiskStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) (err error) {
	valpath := s.pathFor(key)
	sealed := seal(value, deadline(s.opts.now(), ttl))
	mu := s.lockFor(valpath)
	mu.Lock()
	defer mu.Unlock()
	err = writeFile(valpath, sealed)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("could not write %q: %w", valpath, err)
	}
	if err = os.MkdirAll(filepath.Dir(valpath), 0700); err != nil {
		return fmt.Errorf("could not make dir for %q: %w", valpath, err)
	}
	return writeFile(valpath, sealed)
}

// writeFile replaces the file at pathname atomically, so that concurrent
// readers never see a partial value.
func writeFile(pathname string, data []byte) error {
	f, err := ioutil.TempFile(filepath.Dir(pathname), ".tmp-")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), pathname)
}

func (s *DiskStore) Get(ctx context.Context, key string) (value []byte, err error) {
	value, _, _, err = s.getWithTTL(ctx, key)
	return value, err
}

func (s *DiskStore) getWithTTL(_ context.Context, key string) ([]byte, time.Duration, bool, error) {
	b, err := ioutil.ReadFile(s.pathFor(key))
	if os.IsNotExist(err) {
		return nil, 0, false, fmt.Errorf("%.40q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, 0, false, err
	}
	d, value, err := unseal(b)
	if err != nil {
		return nil, 0, false, fmt.Errorf("%.40q: %w", key, err)
	}
	now := s.opts.now()
	if expired(d, now) {
		return nil, 0, false, fmt.Errorf("%.40q: expired: %w", key, ErrNotFound)
	}
	return value, remaining(d, now), true, nil
}

func (s *DiskStore) Sweep(ctx context.Context) (removed int, err error) {
	now := s.opts.now()
	err = filepath.Walk(s.dir, func(pathname string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() || filepath.Base(pathname)[0] == '.' {
			return nil
		}
		if !s.isStale(pathname, now) {
			return nil
		}
		// Check again under the lock, a put may have replaced the file since.
		mu := s.lockFor(pathname)
		mu.Lock()
		defer mu.Unlock()
		if !s.isStale(pathname, now) {
			return nil
		}
		if err := os.Remove(pathname); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

// isStale tells whether the file at pathname holds an expired or corrupt
// entry.
func (s *DiskStore) isStale(pathname string, now time.Time) bool {
	b, err := ioutil.ReadFile(pathname)
	if err != nil {
		return false
	}
	d, _, err := unseal(b)
	return err != nil || expired(d, now)
}

func (s *DiskStore) lockFor(pathname string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(filepath.Base(pathname)))
	return &s.locks[h.Sum32()%diskLockStripes]
}

func (s *DiskStore) pathFor(key string) string {
	b := []byte(key)
	// Prevent ENAMETOOLONG, while retaining low probability of clashes.
	if len(b) > sha512.Size {
		hash := sha512.Sum512(b)
		b = hash[:]
	}
	hex := fmt.Sprintf("%02x", b)
	if hex == "" {
		return filepath.Join(s.dir, "empty")
	}
	return filepath.Join(s.dir, hex[:2], hex)
}
