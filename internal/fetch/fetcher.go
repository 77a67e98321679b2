// Package fetch retrieves remote bytes (logos, avatars, attachments) with a
// per-request timeout and a size cap.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

var (
	ErrStatus   = errors.New("unexpected status")
	ErrTooLarge = errors.New("response exceeds size limit")
)

// Response is a fully buffered download.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// MediaType is the declared type without parameters, lower-cased. When the
// server declared nothing useful it is sniffed from the body.
func (r *Response) MediaType() string {
	mt, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil || mt == "" || mt == "application/octet-stream" || mt == "binary/octet-stream" {
		mt, _, _ = mime.ParseMediaType(http.DetectContentType(r.Body))
	}
	return strings.ToLower(mt)
}

type Client struct {
	HTTP     *http.Client
	Timeout  time.Duration
	MaxBytes int64
}

func NewClient(timeout time.Duration, maxBytes int64) *Client {
	return &Client{
		HTTP:     &http.Client{},
		Timeout:  timeout,
		MaxBytes: maxBytes,
	}
}

// Fetch GETs url and buffers the body. Non-2xx statuses, timeouts and
// oversize bodies are errors; callers treat all of them as "asset
// unavailable".
func (c *Client) Fetch(ctx context.Context, url string) (*Response, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if c.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, c.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if c.MaxBytes > 0 && int64(len(data)) > c.MaxBytes {
		return nil, ErrTooLarge
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}
