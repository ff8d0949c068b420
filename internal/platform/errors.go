package platform

import "fmt"

// OSQueryError reports a failed process, socket or firewall query.
type OSQueryError struct {
	Query string
	Err   error
}

func (e *OSQueryError) Error() string {
	return fmt.Sprintf("os query %q: %v", e.Query, e.Err)
}

func (e *OSQueryError) Unwrap() error { return e.Err }

// UnsupportedPlatformError means no backend exists for the running OS.
// It is the only fatal error: no check can run without a backend.
type UnsupportedPlatformError struct {
	GOOS string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform %q (supported: linux, darwin, windows)", e.GOOS)
}
