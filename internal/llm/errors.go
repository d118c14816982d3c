package llm

import (
	"context"
	"errors"
	"net"

	"github.com/sashabaranov/go-openai"
)

// IsTransient reports whether an error from a provider call is a transport
// level failure worth retrying: rate limits, server-side errors, network
// faults, timeouts. Malformed responses and client-side API errors are not
// transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return true
		case apiErr.HTTPStatusCode >= 500:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// request-level timeout surfaces as a wrapped deadline error
	return errors.Is(err, context.DeadlineExceeded)
}
