package model

import "errors"

// Error taxonomy. Callers wrap these with fmt.Errorf("%w: ...") and the HTTP
// layer maps them to a status and a machine-checkable reason.
var (
	// ErrInvalidInput marks malformed symbols, quantities, prices or parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientPosition is returned when a sell exceeds the held quantity.
	ErrInsufficientPosition = errors.New("insufficient position")

	// ErrNotFound marks a symbol absent from a watchlist or position set.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable marks a quote source that is empty or failing
	// where the data is essential.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
