package drop

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/nicolagi/filedrop/fileid"
)

// Meta is what is remembered about an uploaded file besides its bytes. It is
// stored under MetaKey, as a query string, next to the bytes stored under
// the identifier itself.
type Meta struct {
	// Type is the Content-Type the file was uploaded with, possibly empty.
	Type string

	// Name is the file name the client supplied, possibly empty.
	Name string
}

// MetaKey is the key of the metadata for the file with the given id.
func MetaKey(id fileid.ID) string {
	return string(id) + ":meta"
}

// Encode returns the stored form of m.
func (m Meta) Encode() string {
	v := make(url.Values)
	v.Set("type", m.Type)
	if m.Name != "" {
		v.Set("name", m.Name)
	}
	return v.Encode()
}

// ParseMeta is the inverse of Meta.Encode.
func ParseMeta(s string) (Meta, error) {
	v, err := url.ParseQuery(s)
	if err != nil {
		return Meta{}, fmt.Errorf("%.40q: not valid metadata: %w", s, err)
	}
	return Meta{
		Type: v.Get("type"),
		Name: v.Get("name"),
	}, nil
}

// cleanHeaderValue drops characters that cannot be echoed back in a header.
func cleanHeaderValue(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// contentDisposition builds an inline Content-Disposition for name. Names that
// are not plain ASCII also get an RFC 5987 filename* parameter, with the
// plain filename parameter as the fallback for older clients.
func contentDisposition(name string) string {
	var ascii strings.Builder
	plain := true
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			ascii.WriteByte('\\')
			ascii.WriteRune(r)
		case r > unicode.MaxASCII || !unicode.IsPrint(r):
			ascii.WriteByte('_')
			plain = false
		default:
			ascii.WriteRune(r)
		}
	}
	value := `inline; filename="` + ascii.String() + `"`
	if !plain {
		value += "; filename*=UTF-8''" + extValueEscape(name)
	}
	return value
}

// extValueEscape percent-encodes every byte of s outside the attr-char set of
// RFC 5987.
func extValueEscape(s string) string {
	const upperhex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
