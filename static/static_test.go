package static_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/nicolagi/filedrop/static"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSite(t *testing.T, files map[string]string) billy.Filesystem {
	fs := memfs.New()
	for name, content := range files {
		require.Nil(t, util.WriteFile(fs, name, []byte(content), 0644))
	}
	return fs
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func assertSecurityHeaders(t *testing.T, header http.Header) {
	t.Helper()
	assert.Equal(t, "1; mode=block", header.Get("X-XSS-Protection"))
	assert.Equal(t, "nosniff", header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", header.Get("X-Frame-Options"))
	assert.Equal(t, "unsafe-url", header.Get("Referrer-Policy"))
	assert.Equal(t, "none", header.Get("Feature-Policy"))
}

func TestServer(t *testing.T) {
	site := newSite(t, map[string]string{
		"index.html":       "<h1>home</h1>",
		"about/index.html": "<h1>about</h1>",
		"style.css":        "body{}",
		"404.html":         "<h1>gone</h1>",
	})
	t.Run("root serves index", func(t *testing.T) {
		rr := serve(static.New(site, static.Options{}), http.MethodGet, "/")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "<h1>home</h1>", rr.Body.String())
		assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html"))
		assertSecurityHeaders(t, rr.Header())
	})
	t.Run("extension-less paths serve their index", func(t *testing.T) {
		s := static.New(site, static.Options{})
		for _, p := range []string{"/about", "/about/"} {
			rr := serve(s, http.MethodGet, p)
			assert.Equal(t, http.StatusOK, rr.Code, p)
			assert.Equal(t, "<h1>about</h1>", rr.Body.String(), p)
		}
	})
	t.Run("assets get their content type", func(t *testing.T) {
		rr := serve(static.New(site, static.Options{}), http.MethodGet, "/style.css")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/css"))
	})
	t.Run("missing assets get the not-found page", func(t *testing.T) {
		rr := serve(static.New(site, static.Options{}), http.MethodGet, "/missing.png")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "<h1>gone</h1>", rr.Body.String())
		assertSecurityHeaders(t, rr.Header())
	})
	t.Run("other verbs get the not-found page", func(t *testing.T) {
		rr := serve(static.New(site, static.Options{}), http.MethodPost, "/")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
	t.Run("paths cannot escape the site", func(t *testing.T) {
		rr := serve(static.New(site, static.Options{}), http.MethodGet, "/../../etc/passwd")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
	t.Run("without a not-found page, the error is served", func(t *testing.T) {
		s := static.New(newSite(t, map[string]string{"index.html": "home"}), static.Options{})
		rr := serve(s, http.MethodGet, "/missing.png")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Contains(t, rr.Body.String(), "could not find asset")
	})
	t.Run("debug skips the not-found page", func(t *testing.T) {
		rr := serve(static.New(site, static.Options{Debug: true}), http.MethodGet, "/missing.png")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Contains(t, rr.Body.String(), "missing.png")
	})
	t.Run("custom not-found page", func(t *testing.T) {
		s := static.New(newSite(t, map[string]string{"errors/nope.html": "nope"}), static.Options{NotFoundPage: "errors/nope.html"})
		rr := serve(s, http.MethodGet, "/x.txt")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "nope", rr.Body.String())
	})
	t.Run("cache control", func(t *testing.T) {
		rr := serve(static.New(site, static.Options{BypassCache: true, CacheMaxAge: time.Hour}), http.MethodGet, "/")
		assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
		rr = serve(static.New(site, static.Options{CacheMaxAge: time.Hour}), http.MethodGet, "/")
		assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
	})
}
