package sensor

import (
	"fmt"
)

// NetworkError reports a request that failed in transport, was rejected by
// an open circuit breaker, or came back with a non-2xx status.
type NetworkError struct {
	Field Field
	URL   string
	Err   error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Field, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a body that could not be interpreted as the expected
// numeric, text or JSON shape.
type ParseError struct {
	Field Field
	Body  string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: cannot parse %q: %v", e.Field, truncateBody(e.Body), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func truncateBody(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
