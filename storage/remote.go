package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"
	"time"
)

const (
	// TTLHeader carries the time to live, in whole seconds, of a value put via
	// RemoteStore.
	TTLHeader = "X-Ttl-Seconds"

	// RemainingTTLHeader carries, in responses to GETs, the life left to the
	// value in Go duration syntax. "0s" means the value never expires. It is
	// missing when the store behind the handler cannot tell.
	RemainingTTLHeader = "X-Ttl-Remaining"
)

// RemoteStore implements Store. It requires to connect to a kvserver, or
// anything else serving RemoteHandler.
type RemoteStore struct {
	address string
	client  *http.Client
}

func NewRemoteStore(address string) *RemoteStore {
	return &RemoteStore{address: address, client: http.DefaultClient}
}

func (r *RemoteStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) (err error) {
	url := r.pathFor(key)
	request, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(value))
	if err != nil {
		return err
	}
	if ttl > 0 {
		// Round up, a value must not expire early.
		secs := int64((ttl + time.Second - 1) / time.Second)
		request.Header.Set(TTLHeader, strconv.FormatInt(secs, 10))
	}
	response, err := r.client.Do(request)
	if response != nil && response.Body != nil {
		defer func() {
			_ = response.Body.Close()
		}()
	}
	if err != nil {
		return err
	}
	body, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return err
	}
	if response.StatusCode != http.StatusOK {
		return errors.New(string(body))
	}
	return nil
}

func (r *RemoteStore) Get(ctx context.Context, key string) (value []byte, err error) {
	value, _, _, err = r.getWithTTL(ctx, key)
	return value, err
}

func (r *RemoteStore) getWithTTL(ctx context.Context, key string) (value []byte, left time.Duration, ok bool, err error) {
	url := r.pathFor(key)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, false, err
	}
	response, err := r.client.Do(request)
	if response != nil && response.Body != nil {
		defer func() {
			_ = response.Body.Close()
		}()
	}
	if err != nil {
		return nil, 0, false, err
	}
	if response.StatusCode == http.StatusNotFound {
		return nil, 0, false, fmt.Errorf("%.40q: %w", key, ErrNotFound)
	}
	body, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return nil, 0, false, err
	}
	if response.StatusCode != http.StatusOK {
		return nil, 0, false, errors.New(string(body))
	}
	if body == nil {
		body = []byte{}
	}
	if h := response.Header.Get(RemainingTTLHeader); h != "" {
		if left, err = time.ParseDuration(h); err == nil && left >= 0 {
			return body, left, true, nil
		}
	}
	return body, 0, false, nil
}

func (r *RemoteStore) pathFor(key string) string {
	return fmt.Sprintf("http://%s/%x", r.address, key)
}
