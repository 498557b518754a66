// Package blob stores image bytes outside the service. Callers upload
// directly to storage through short-lived presigned URLs.
package blob

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrNotFound is returned by Delete implementations that track existence.
var ErrNotFound = errors.New("blob: object not found")

// Storage is the blob storage service used by the catalog.
type Storage interface {
	// PresignUpload returns a time-limited URL that accepts one PUT of key.
	PresignUpload(ctx context.Context, key string) (string, error)
	// URL returns the permanent retrieval URL of key.
	URL(key string) string
	Delete(ctx context.Context, key string) error
}

// joinURL appends an object key to base, escaping each key segment.
func joinURL(base, key string) string {
	parts := strings.Split(strings.Trim(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}
