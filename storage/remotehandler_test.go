package storage_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nicolagi/filedrop/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteHandler(t *testing.T) {
	c := newFakeClock()
	handler := storage.RemoteHandler(storage.NewInMemoryStore(storage.WithClock(c.Now)))
	do := func(method, path string, body string, header http.Header) *httptest.ResponseRecorder {
		r := httptest.NewRequest(method, "/", strings.NewReader(body))
		r.URL.Path = path
		for k, v := range header {
			r.Header[k] = v
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}
	key := fmt.Sprintf("/%x", "some key")

	t.Run("empty path is a bad request", func(t *testing.T) {
		w := do(http.MethodConnect, "", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("non-hex path is a bad request", func(t *testing.T) {
		w := do(http.MethodGet, "/xyz", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("invalid ttl is a bad request", func(t *testing.T) {
		w := do(http.MethodPut, key, "v", http.Header{storage.TTLHeader: {"soon"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("gets report the remaining time to live", func(t *testing.T) {
		w := do(http.MethodPut, key, "v", http.Header{storage.TTLHeader: {"3600"}})
		require.Equal(t, http.StatusOK, w.Code)
		c.Advance(20 * time.Minute)
		w = do(http.MethodGet, key, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "v", w.Body.String())
		assert.Equal(t, (40 * time.Minute).String(), w.Header().Get(storage.RemainingTTLHeader))
	})
	t.Run("values without a ttl report zero", func(t *testing.T) {
		w := do(http.MethodPut, key, "v", nil)
		require.Equal(t, http.StatusOK, w.Code)
		w = do(http.MethodGet, key, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "0s", w.Header().Get(storage.RemainingTTLHeader))
	})
	t.Run("unknown keys are not found", func(t *testing.T) {
		w := do(http.MethodGet, fmt.Sprintf("/%x", "other key"), "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
