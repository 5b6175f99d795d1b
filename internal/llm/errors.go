package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrMalformedResponse reports a provider reply without usable text.
var ErrMalformedResponse = errors.New("malformed provider response")

// StatusError is a non-2xx reply from a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http status %d: %s", e.Provider, e.Code, e.Body)
}

// ErrorCode buckets a provider failure into a low-cardinality metric label.
func ErrorCode(err error) string {
	var status *StatusError
	var netErr net.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.As(err, &status):
		switch {
		case status.Code == 429:
			return "rate_limited"
		case status.Code >= 500:
			return "upstream_5xx"
		default:
			return "upstream_4xx"
		}
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	default:
		return "network"
	}
}
