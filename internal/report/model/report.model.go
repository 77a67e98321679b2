package model

import "time"

type PropertyReportRequest struct {
	PropertyID string `json:"propertyId" validate:"required,max=128,record_id"`
	ShareToken string `json:"shareToken" validate:"max=512"`
}

type SessionReportRequest struct {
	ShareToken string `json:"shareToken" validate:"max=512"`
}

// GeneratedReport is the response body of a successful request.
type GeneratedReport struct {
	Filename  string
	Data      []byte
	PageCount int
}

// RateLimitInfo is echoed to the client in X-RateLimit-* headers.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type ErrorResponse struct {
	Error      string `json:"error"`
	RetryAfter *int   `json:"retryAfter,omitempty"`
}
