package util

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var entropy = &ulid.LockedMonotonicReader{MonotonicReader: ulid.Monotonic(rand.Reader, 0)}

// NewID returns a lowercase, time-ordered ULID, optionally prefixed.
func NewID(prefix string) string {
	id := strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String())
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
