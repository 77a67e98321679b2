// Package storage exchanges object-storage references for short-lived
// download URLs.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrEmptyRef = errors.New("empty storage reference")

// Signer issues a time-limited GET URL for an object reference.
type Signer interface {
	SignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error)
}

// IsURL reports whether ref is already directly fetchable.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://")
}

// Resolve returns ref unchanged when it is already a URL and signs it
// otherwise.
func Resolve(ctx context.Context, s Signer, ref string, ttl time.Duration) (string, error) {
	if IsURL(ref) {
		return ref, nil
	}
	return s.SignedURL(ctx, ref, ttl)
}

// objectKey strips a leading slash and an optional "bucket/" prefix some
// uploaders store.
func objectKey(bucket, ref string) string {
	key := strings.TrimPrefix(strings.TrimSpace(ref), "/")
	if bucket != "" {
		key = strings.TrimPrefix(key, bucket+"/")
	}
	return key
}
