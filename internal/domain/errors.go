package domain

import (
	"errors"
	"fmt"
)

// ErrOffline is returned when offline mode was requested and no cached copy exists.
var ErrOffline = errors.New("offline mode and no cached copy available")

// ParseError reports malformed feed markup the tokenizer could not advance past.
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed feed at offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NetworkError covers transport failures, timeouts and non-success HTTP statuses.
// StatusCode is zero when no response was received.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("unexpected status code %d for url %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("failed to fetch url %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ExtractionError reports that an article page could not be turned into readable text.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract article %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ConfigError reports that the cache root could not be resolved or created.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cache directory %s unavailable: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient failure worth retrying.
// ErrOffline is not: nothing will change until the host goes online.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
