package storage

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/url"
	"testing"
	"time"

	gcs "cloud.google.com/go/storage"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSigner struct{ calls []string }

func (s *stubSigner) SignedURL(_ context.Context, ref string, _ time.Duration) (string, error) {
	s.calls = append(s.calls, ref)
	return "https://signed.example/" + ref, nil
}

func TestResolve(t *testing.T) {
	s := &stubSigner{}
	ctx := context.Background()

	u, err := Resolve(ctx, s, "https://cdn.example/a.png", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.png", u)
	assert.Empty(t, s.calls)

	u, err = Resolve(ctx, s, "avatars/agent-1.png", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/avatars/agent-1.png", u)
	assert.Equal(t, []string{"avatars/agent-1.png"}, s.calls)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "docs/a.pdf", objectKey("uploads", "/docs/a.pdf"))
	assert.Equal(t, "docs/a.pdf", objectKey("uploads", "uploads/docs/a.pdf"))
	assert.Equal(t, "", objectKey("uploads", "  "))
}

func TestS3SignerPresignsGet(t *testing.T) {
	signer, err := NewS3Signer(context.Background(), S3Options{
		Bucket:    "uploads",
		Region:    "us-east-1",
		Endpoint:  "http://localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio-secret",
	})
	require.NoError(t, err)

	raw, err := signer.SignedURL(context.Background(), "docs/inspection.pdf", time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/uploads/docs/inspection.pdf", u.Path)
	assert.Equal(t, "60", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestS3SignerErrors(t *testing.T) {
	orig := presignGetObject
	defer func() { presignGetObject = orig }()
	presignGetObject = func(*s3.PresignClient, context.Context, *s3.GetObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("boom")
	}

	signer := &S3Signer{bucket: "uploads"}
	_, err := signer.SignedURL(context.Background(), "a.pdf", time.Minute)
	assert.ErrorContains(t, err, "boom")

	_, err = signer.SignedURL(context.Background(), "", time.Minute)
	assert.ErrorIs(t, err, ErrEmptyRef)
}

func TestGCSSignerV4(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	signer := &GCSSigner{
		bucket: "uploads",
		sign: func(object string, opts *gcs.SignedURLOptions) (string, error) {
			opts.GoogleAccessID = "reports@example.iam.gserviceaccount.com"
			opts.PrivateKey = pemKey
			return gcs.SignedURL("uploads", object, opts)
		},
	}

	raw, err := signer.SignedURL(context.Background(), "uploads/photos/front.jpg", time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Contains(t, u.Path, "/uploads/photos/front.jpg")
	assert.Equal(t, "GOOG4-RSA-SHA256", u.Query().Get("X-Goog-Algorithm"))
	assert.NotEmpty(t, u.Query().Get("X-Goog-Signature"))
}
