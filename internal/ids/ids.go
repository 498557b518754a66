package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier suitable for storage keys.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// BlobKey allocates an object key under prefix, e.g. "products/01J9...".
func BlobKey(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	id := strings.ToLower(New())
	if prefix == "" {
		return id
	}
	return prefix + "/" + id
}
