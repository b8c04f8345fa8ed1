// Package fileid derives the public identifier of an uploaded file from its
// contents. An identifier is the base58 encoding (Bitcoin alphabet, no
// padding, no 0/O/I/l) of the SHA-1 digest of the file's bytes, so the same
// bytes always map to the same identifier.
package fileid

import (
	"crypto/sha1"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// ID is the textual identifier of a file, used both as the storage key and as
// the download path.
type ID string

// DigestSize is the length of the digest an ID encodes.
const DigestSize = sha1.Size

var (
	// ErrInvalid indicates a string is not the encoding of a digest.
	ErrInvalid = errors.New("invalid file id")
)

// Sum returns the identifier for the given contents.
func Sum(data []byte) ID {
	digest := sha1.Sum(data)
	return ID(base58.Encode(digest[:]))
}

// Encode converts a digest into its identifier.
func Encode(digest []byte) (ID, error) {
	if len(digest) != DigestSize {
		return "", fmt.Errorf("digest of %d bytes: %w", len(digest), ErrInvalid)
	}
	return ID(base58.Encode(digest)), nil
}

// Decode converts an identifier back into the digest it encodes. It returns
// ErrInvalid for the empty string, for strings with characters outside the
// alphabet, and for strings that do not decode to exactly DigestSize bytes.
func Decode(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("empty string: %w", ErrInvalid)
	}
	digest, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%.40q: %v: %w", s, err, ErrInvalid)
	}
	if len(digest) != DigestSize {
		return nil, fmt.Errorf("%.40q: decodes to %d bytes: %w", s, len(digest), ErrInvalid)
	}
	return digest, nil
}

// Valid tells whether s could be an identifier. Only the shape is checked;
// whether a file exists for it is up to the store.
func Valid(s string) bool {
	_, err := Decode(s)
	return err == nil
}

func (id ID) String() string {
	return string(id)
}
