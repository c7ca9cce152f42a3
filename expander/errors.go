package expander

import "errors"

var (
	// ErrNilType is returned when Expand is called without a root type.
	ErrNilType = errors.New("expander: nil root type")
	// ErrMaxDepthExceeded is returned when nesting goes beyond the configured ceiling.
	ErrMaxDepthExceeded = errors.New("expander: maximum expansion depth exceeded")
)

// DepthError reports the type chain that hit the depth ceiling.
type DepthError struct {
	Limit int
	Path  string
}

func (e *DepthError) Error() string {
	return ErrMaxDepthExceeded.Error() + ": " + e.Path
}

func (e *DepthError) Unwrap() error {
	return ErrMaxDepthExceeded
}
