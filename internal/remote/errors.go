package remote

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by single-object lookups when the remote platform
// has no matching record.
var ErrNotFound = errors.New("not found")

// APIError is a non-throttling request failure reported by the remote
// platform. The engine treats it as non-transient and aborts.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote API returned status %d: %s", e.StatusCode, e.Message)
}

// RateLimitError indicates the remote platform throttled a request.
// RetryAfter is the server-requested wait, zero when the response carried
// no Retry-After header. The client retries these internally; callers only
// see one after the per-page retry budget is exhausted.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}
