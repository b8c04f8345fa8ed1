// Kvserver exposes an expiring key-value store over HTTP, for filedrop
// instances configured with the "remote" store type. It is backed by a Bolt
// database or a disk directory.
//
// Valid requests are GETs and PUTs to paths of the form "/b33f" or "/f00d",
// that is, slash followed by a hexadecimal string, encoding the key to GET or
// PUT. A PUT may carry an X-Ttl-Seconds header, after which the value is
// gone. Requests for other paths or with other HTTP verbs will return 400.
//
// If a key is not found, GETs return 404 with no body, which the client
// propagates as storage.ErrNotFound. Any other error returns 500 and the
// textual error message in the response body.
package main // import "github.com/nicolagi/filedrop/cmd/kvserver"
