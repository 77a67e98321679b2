package service

import (
	"errors"
	"fmt"
)

type Kind int

const (
	InvalidInput Kind = iota + 1
	Unauthorized
	Forbidden
	RateLimited
	NotFound
	CompositionFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case RateLimited:
		return "rate limited"
	case NotFound:
		return "not found"
	case CompositionFailure:
		return "composition failure"
	default:
		return "unknown"
	}
}

// ReportError is a request failure with a caller-safe Message. Err carries
// the internal cause and is only ever logged.
type ReportError struct {
	Kind       Kind
	Message    string
	RetryAfter int
	Err        error
}

func (e *ReportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ReportError) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, err error) *ReportError {
	return &ReportError{Kind: kind, Message: msg, Err: err}
}

// KindOf classifies err. Anything that is not a ReportError is a
// composition failure.
func KindOf(err error) Kind {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Kind
	}
	return CompositionFailure
}
