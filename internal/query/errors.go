// Package query defines the typed request/response surface the transports
// consume: DTOs matching the wire contract, the error taxonomy sentinels,
// and pagination helpers. The analysis engine produces these values; the
// HTTP and MCP layers only translate them.
package query

import (
	"errors"
	"fmt"
)

// Sentinel errors of the query taxonomy. Transports map them to status
// codes; everything else is INTERNAL.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrDeadlineExceeded = errors.New("deadline exceeded")
)

// InvalidArgf wraps ErrInvalidArgument with a field-level reason.
func InvalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with the missing subject.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
