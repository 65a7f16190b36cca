package bridge

import "fmt"

// EncodeError is returned when the request value cannot be encoded.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "bridge: encode request: " + e.Err.Error() }
func (e *EncodeError) Unwrap() error { return e.Err }

// NetworkError is returned when the request cannot be built, sent, or its
// body cannot be read. URL has any credentials redacted.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("bridge: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError is returned for a non-2xx response. Body holds the response
// text so callers can decode a structured error payload.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bridge: POST %s: unexpected status %d", e.URL, e.StatusCode)
}

// DecodeError is returned when the response body is not valid UTF-8 text or
// does not decode into the expected type.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "bridge: decode response: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }
