package util

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID returns a lowercase, time-ordered ULID. Ids created later sort after
// earlier ones, which keeps local collections in creation order.
func NewID(prefix string) string {
	id := strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
