package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// RemoteHandler exposes a Store over HTTP, for RemoteStore to use.
//
// Valid requests are GETs and PUTs to paths of the form "/b33f" or "/f00d",
// that is, slash followed by a hexadecimal string, encoding the key to GET or
// PUT. PUTs may carry TTLHeader, and GETs answer with RemainingTTLHeader if
// the store can tell. Requests for other paths or with other HTTP
// verbs return 400.
//
// If a key is not found, GETs return 404 with no body. Any other error returns
// 500 and the textual error message in the response body.
func RemoteHandler(store Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithField("op", r.Method)
		status, body := func() (int, []byte) {
			hkey := strings.TrimPrefix(r.URL.Path, "/")
			key, err := hex.DecodeString(hkey)
			if err != nil {
				return http.StatusBadRequest, []byte(fmt.Sprintf("%q: not a valid path, expecting hex key only", r.URL.Path))
			}
			logger = logger.WithField("key", fmt.Sprintf("%.40q", key))
			switch r.Method {
			case http.MethodGet:
				value, left, known, err := getWithTTL(r.Context(), store, string(key))
				if errors.Is(err, ErrNotFound) {
					logger.WithField("err", err).Debug("Not found")
					return http.StatusNotFound, nil
				}
				if err != nil {
					logger.WithField("err", err).Error()
					return http.StatusInternalServerError, []byte(fmt.Sprintf("%q: %v", hkey, err))
				}
				if known {
					w.Header().Set(RemainingTTLHeader, left.String())
				}
				logger.Debug("Success")
				return http.StatusOK, value
			case http.MethodPut:
				var ttl time.Duration
				if h := r.Header.Get(TTLHeader); h != "" {
					secs, err := strconv.ParseInt(h, 10, 64)
					if err != nil || secs < 0 {
						return http.StatusBadRequest, []byte(fmt.Sprintf("%q: invalid %s", h, TTLHeader))
					}
					ttl = time.Duration(secs) * time.Second
				}
				value, err := ioutil.ReadAll(r.Body)
				if err != nil {
					logger.WithField("err", err).Error()
					return http.StatusInternalServerError, []byte(fmt.Sprintf("%q: %v", hkey, err))
				}
				if err := store.Put(r.Context(), string(key), value, ttl); err != nil {
					logger.WithField("err", err).Error()
					return http.StatusInternalServerError, []byte(fmt.Sprintf("%q: %v", hkey, err))
				}
				logger.Debug("Success")
				return http.StatusOK, nil
			default:
				logger.Warn("Bad request")
				return http.StatusBadRequest, []byte(fmt.Sprintf("%q: invalid method, expecting GET or PUT", r.Method))
			}
		}()
		w.WriteHeader(status)
		if body != nil {
			if _, err := w.Write(body); err != nil {
				logger.WithField("err", err).Error("Failed writing response")
			}
		}
	})
}
