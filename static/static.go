// Package static serves a static web site from a billy.Filesystem, with
// security headers, and a custom page when an asset can't be served.
package static

import (
	"errors"
	"fmt"
	"io/ioutil"
	"mime"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	log "github.com/sirupsen/logrus"
)

// DefaultNotFoundPage is the asset served, with status 404, in place of assets
// that can't be served.
const DefaultNotFoundPage = "404.html"

var (
	errNotFound         = errors.New("could not find asset")
	errMethodNotAllowed = errors.New("method not allowed")
)

// Options configure a Server.
type Options struct {
	// BypassCache makes responses uncacheable, for use during development.
	BypassCache bool

	// Debug replaces the not-found page with the error that caused it.
	Debug bool

	// NotFoundPage is the path of the not-found page, relative to the site
	// root. Defaults to DefaultNotFoundPage.
	NotFoundPage string

	// CacheMaxAge is how long clients may cache assets. Zero means the
	// response carries no max-age.
	CacheMaxAge time.Duration
}

// Server serves the files in a filesystem as a web site.
type Server struct {
	fs   billy.Filesystem
	opts Options
}

func New(fs billy.Filesystem, opts Options) *Server {
	if opts.NotFoundPage == "" {
		opts.NotFoundPage = DefaultNotFoundPage
	}
	return &Server{fs: fs, opts: opts}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := log.WithFields(log.Fields{
		"op":   "static",
		"path": r.URL.Path,
	})
	err := s.serveAsset(w, r)
	if err == nil {
		return
	}
	logger.WithField("err", err).Debug("Could not serve asset")
	if !s.opts.Debug {
		nerr := s.serveNotFound(w)
		if nerr == nil {
			return
		}
		logger.WithField("err", nerr).Warn("Could not serve not-found page")
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return fmt.Errorf("%s %s: %w", r.Method, r.URL.Path, errMethodNotAllowed)
	}
	name := assetName(r.URL.Path)
	info, err := s.fs.Stat(name)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", name, errNotFound)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s: is a directory: %w", name, errNotFound)
	}
	f, err := s.fs.Open(name)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	header := w.Header()
	setSecurityHeaders(header)
	header.Set("Cache-Control", s.cacheControl())
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		header.Set("Content-Type", ct)
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
	return nil
}

func (s *Server) serveNotFound(w http.ResponseWriter) error {
	name := strings.TrimPrefix(path.Clean("/"+s.opts.NotFoundPage), "/")
	f, err := s.fs.Open(name)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	body, err := ioutil.ReadAll(f)
	if err != nil {
		return err
	}
	header := w.Header()
	setSecurityHeaders(header)
	header.Set("Cache-Control", s.cacheControl())
	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		ct = "text/html; charset=utf-8"
	}
	header.Set("Content-Type", ct)
	header.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusNotFound)
	_, err = w.Write(body)
	if err != nil {
		// Too late for anything else.
		log.WithField("err", err).Warn("Failed writing not-found page")
	}
	return nil
}

func (s *Server) cacheControl() string {
	if s.opts.BypassCache {
		return "no-store"
	}
	if s.opts.CacheMaxAge > 0 {
		return fmt.Sprintf("public, max-age=%d", int64(s.opts.CacheMaxAge/time.Second))
	}
	return "public"
}

// assetName maps a request path to the asset serving it: directories, and
// paths without an extension, are served by their index.html. The result is
// relative to the site root and never leaves it.
func assetName(urlPath string) string {
	p := path.Clean("/" + urlPath)
	if strings.HasSuffix(urlPath, "/") || path.Ext(p) == "" {
		p = path.Join(p, "index.html")
	}
	return strings.TrimPrefix(p, "/")
}

func setSecurityHeaders(header http.Header) {
	header.Set("X-XSS-Protection", "1; mode=block")
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("X-Frame-Options", "DENY")
	header.Set("Referrer-Policy", "unsafe-url")
	header.Set("Feature-Policy", "none")
}
