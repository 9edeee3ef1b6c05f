package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when geocoding yields no candidates.
	ErrNotFound = errors.New("location not found")
	// ErrTimeout is returned when the provider does not answer in time.
	ErrTimeout = errors.New("weather request timed out")
	// ErrInvalidCity is returned for a blank search term.
	ErrInvalidCity = errors.New("city name is required")
)

// UpstreamError reports a non-success response from the weather provider.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Endpoint, e.StatusCode)
}
