package drop

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nicolagi/filedrop/fileid"
	"github.com/nicolagi/filedrop/storage"
	log "github.com/sirupsen/logrus"
)

const (
	// UploadPath is where files are POSTed.
	UploadPath = "/upload"

	// DefaultTTL is how long files are kept after their last upload.
	DefaultTTL = 24 * time.Hour

	// DefaultMaxUploadBytes is the largest value edge key-value stores
	// commonly accept.
	DefaultMaxUploadBytes = 25 << 20

	// FileNameHeader carries the file name on upload, and echoes it on
	// download.
	FileNameHeader = "X-File-Name"

	// FileIDHeader echoes the id on download.
	FileIDHeader = "X-File-Id"

	defaultContentType = "application/octet-stream"
)

// Config holds the handler's settings. The zero value of each field selects
// its default.
type Config struct {
	// TTL is the time to live of both entries stored per upload.
	TTL time.Duration

	// MaxUploadBytes bounds request bodies on upload.
	MaxUploadBytes int64

	// Debug makes store errors visible in 500 responses. Otherwise clients only
	// see the status text.
	Debug bool
}

func (c *Config) applyDefaults() {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
}

// Handler serves uploads and downloads. It keeps no state between requests,
// all of it is in the store, so it is safe for concurrent use.
type Handler struct {
	store    storage.Store
	fallback http.Handler
	config   Config
}

// NewHandler returns a Handler storing files in store and passing requests it
// doesn't serve to fallback.
func NewHandler(store storage.Store, fallback http.Handler, config Config) *Handler {
	config.applyDefaults()
	return &Handler{
		store:    store,
		fallback: fallback,
		config:   config,
	}
}

type uploadResponse struct {
	FileID fileid.ID `json:"fileId"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && r.URL.Path == UploadPath {
		h.upload(w, r)
		return
	}
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		if candidate := strings.TrimPrefix(r.URL.Path, "/"); fileid.Valid(candidate) {
			if h.download(w, r, fileid.ID(candidate)) {
				return
			}
		}
	}
	h.fallback.ServeHTTP(w, r)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	logger := log.WithField("op", "upload")
	data, err := ioutil.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.WithField("limit", tooLarge.Limit).Info("Upload too large")
			http.Error(w, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		h.fail(w, logger, fmt.Errorf("could not read upload: %w", err))
		return
	}
	id := fileid.Sum(data)
	meta := Meta{
		Type: cleanHeaderValue(r.Header.Get("Content-Type")),
		Name: cleanHeaderValue(r.Header.Get(FileNameHeader)),
	}
	logger = logger.WithFields(log.Fields{
		"id":   id,
		"size": len(data),
	})
	// Bytes first: metadata must never be visible without them.
	if err := h.store.Put(r.Context(), string(id), data, h.config.TTL); err != nil {
		h.fail(w, logger, fmt.Errorf("could not store %s: %w", id, err))
		return
	}
	if err := h.store.Put(r.Context(), MetaKey(id), []byte(meta.Encode()), h.config.TTL); err != nil {
		h.fail(w, logger, fmt.Errorf("could not store metadata of %s: %w", id, err))
		return
	}
	body, err := json.Marshal(uploadResponse{FileID: id})
	if err != nil {
		h.fail(w, logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.WithField("err", err).Warn("Failed writing response")
		return
	}
	logger.Debug("Success")
}

// download serves the file with the given id, returning false if there's no
// such file. Failures to talk to the store are served as 500s.
func (h *Handler) download(w http.ResponseWriter, r *http.Request, id fileid.ID) (served bool) {
	logger := log.WithFields(log.Fields{
		"op": "download",
		"id": id,
	})
	rawMeta, err := h.store.Get(r.Context(), MetaKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		logger.Debug("Not found")
		return false
	}
	if err != nil {
		h.fail(w, logger, fmt.Errorf("could not get metadata of %s: %w", id, err))
		return true
	}
	meta, err := ParseMeta(string(rawMeta))
	if err != nil {
		h.fail(w, logger, err)
		return true
	}
	data, err := h.store.Get(r.Context(), string(id))
	if errors.Is(err, storage.ErrNotFound) {
		logger.Warn("Metadata found but no data")
		return false
	}
	if err != nil {
		h.fail(w, logger, fmt.Errorf("could not get %s: %w", id, err))
		return true
	}

	header := w.Header()
	contentType := meta.Type
	if contentType == "" {
		contentType = defaultContentType
	}
	header.Set("Content-Type", contentType)
	header.Set(FileIDHeader, string(id))
	header.Set("ETag", strconv.Quote(string(id)))
	if meta.Name != "" {
		header.Set("Content-Disposition", contentDisposition(meta.Name))
		header.Set(FileNameHeader, meta.Name)
	}
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(data))
	logger.Debug("Success")
	return true
}

func (h *Handler) fail(w http.ResponseWriter, logger *log.Entry, err error) {
	logger.WithField("err", err).Error()
	msg := http.StatusText(http.StatusInternalServerError)
	if h.config.Debug {
		msg = err.Error()
	}
	http.Error(w, msg, http.StatusInternalServerError)
}
