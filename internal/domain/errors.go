package domain

import (
	"errors"
	"fmt"
	"strings"

	"theftalert/internal/geo"
)

var (
	// ErrInvalidReport marks a report that is well formed as an event but not
	// actionable.
	ErrInvalidReport = errors.New("invalid report")
	// ErrInvalidRegion marks a stored geofence that cannot be matched.
	ErrInvalidRegion = geo.ErrInvalidRegion
	// ErrDirectoryUnavailable marks a failure to enumerate users. It is the
	// only error that escapes an invocation.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	// ErrTransportFailure marks a per-intent delivery failure.
	ErrTransportFailure = errors.New("transport failure")
	// ErrDuplicateSuppressed marks an intent whose key was already consumed.
	ErrDuplicateSuppressed = errors.New("duplicate suppressed")
)

// Wrap builds an error that names the component and operation while tagging it
// with marker for errors.Is classification.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransportFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "engine failure"
	}
	return strings.Join(parts, ": ")
}
