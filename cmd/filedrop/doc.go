// Filedrop serves a static web site and, next to it, a drop box for files.
//
// POST a file's bytes to /upload, with its Content-Type and optionally an
// X-File-Name header, and get back {"fileId":"<id>"}. GET /<id> returns the
// file, with the same Content-Type and, if a name was given, an inline
// Content-Disposition carrying it. Files are kept for a day (ttl_seconds)
// after their last upload. Every other request is served from the site root,
// with a custom not-found page.
//
// The configuration file, rjson-encoded, selects where files are stored. See
// the config type for the available properties.
package main // import "github.com/nicolagi/filedrop/cmd/filedrop"
