// Package drop implements the HTTP handler of a drop box for files. Files are
// uploaded by POSTing their bytes to /upload, which responds with
// {"fileId":"<id>"}, where the id is derived from the file's contents (see
// package fileid). They are downloaded by GETting /<id> until they expire, a
// fixed time after their last upload.
//
// For each file two entries are stored, with the same time to live: the bytes
// under the id, and a Meta under MetaKey(id). The metadata is always written
// after the bytes and read before them, so that whoever can see it can also
// see the bytes; a missing metadata entry means there is no such file.
//
// Requests that are neither uploads nor downloads of a known file are passed
// on to a fallback handler, which normally serves a static site and its
// not-found page.
package drop // import "github.com/nicolagi/filedrop/drop"
