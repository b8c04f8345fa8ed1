package storage

import (
	"encoding/binary"
	"errors"
	"time"
)

// Stores without native expiry prefix each value with its deadline, as Unix
// nanoseconds in 8 big-endian bytes. Zero means the value never expires.
const envelopeHeaderSize = 8

var errShortEnvelope = errors.New("stored value shorter than its header")

func seal(value []byte, deadline time.Time) []byte {
	b := make([]byte, envelopeHeaderSize+len(value))
	var ns int64
	if !deadline.IsZero() {
		ns = deadline.UnixNano()
	}
	binary.BigEndian.PutUint64(b, uint64(ns))
	copy(b[envelopeHeaderSize:], value)
	return b
}

// unseal splits a sealed value into its deadline and the value proper. The
// returned value aliases b.
func unseal(b []byte) (deadline time.Time, value []byte, err error) {
	if len(b) < envelopeHeaderSize {
		return time.Time{}, nil, errShortEnvelope
	}
	if ns := int64(binary.BigEndian.Uint64(b)); ns != 0 {
		deadline = time.Unix(0, ns)
	}
	return deadline, b[envelopeHeaderSize:], nil
}
