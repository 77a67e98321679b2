package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
)

// GCSSigner issues V4 signed URLs for a Cloud Storage bucket. Signing
// credentials come from the client's default credentials.
type GCSSigner struct {
	bucket string
	sign   func(object string, opts *gcs.SignedURLOptions) (string, error)
}

func NewGCSSigner(client *gcs.Client, bucket string) *GCSSigner {
	return &GCSSigner{bucket: bucket, sign: client.Bucket(bucket).SignedURL}
}

func (s *GCSSigner) SignedURL(_ context.Context, ref string, ttl time.Duration) (string, error) {
	object := objectKey(s.bucket, ref)
	if object == "" {
		return "", ErrEmptyRef
	}
	u, err := s.sign(object, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("sign gs://%s/%s: %w", s.bucket, object, err)
	}
	return u, nil
}
