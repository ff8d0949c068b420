package probe

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// DNSError reports a failed hostname resolution.
type DNSError struct {
	Name string
	Err  error
}

func (e *DNSError) Error() string {
	return fmt.Sprintf("resolving %s: %v", e.Name, e.Err)
}

func (e *DNSError) Unwrap() error { return e.Err }

// TLSError reports a failed TLS handshake or certificate fetch.
type TLSError struct {
	Addr string
	Err  error
}

func (e *TLSError) Error() string {
	return fmt.Sprintf("tls handshake with %s: %v", e.Addr, e.Err)
}

func (e *TLSError) Unwrap() error { return e.Err }

// Fault classifies a connection-level failure.
type Fault string

const (
	FaultTimeout     Fault = "timeout"
	FaultRefused     Fault = "refused"
	FaultUnreachable Fault = "unreachable"
	FaultOther       Fault = "error"
)

// ConnectionError reports that no connection or response could be obtained.
type ConnectionError struct {
	Addr  string
	Fault Fault
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s (%s): %v", e.Addr, e.Fault, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// HTTPStatusError reports a response whose status was not 200.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.URL, e.StatusCode)
}

func newConnectionError(addr string, err error) *ConnectionError {
	return &ConnectionError{Addr: addr, Fault: classify(err), Err: err}
}

func classify(err error) Fault {
	var netErr net.Error
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return FaultRefused
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return FaultUnreachable
	case errors.As(err, &netErr) && netErr.Timeout():
		return FaultTimeout
	default:
		return FaultOther
	}
}

// IsCertificateError reports whether err came from certificate verification
// rather than from the network.
func IsCertificateError(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostErr      x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) || errors.As(err, &authorityErr) ||
		errors.As(err, &hostErr) || errors.As(err, &invalidErr)
}
