package id

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// New generates a ULID for the current instant.
func New() string {
	return NewAt(time.Now())
}

// NewAt generates a ULID whose timestamp part is t, so IDs sort with the
// record's createdAt.
func NewAt(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}
