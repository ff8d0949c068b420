package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// DefaultTimeout bounds any probe call that was given no timeout.
const DefaultTimeout = 5 * time.Second

// Resolver is the subset of *net.Resolver the prober needs.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Prober runs the network-facing checks. The zero value is usable.
type Prober struct {
	Resolver Resolver
}

// NewProber returns a Prober backed by the system resolver.
func NewProber() *Prober {
	return &Prober{Resolver: net.DefaultResolver}
}

// DNSInfo is the outcome of a successful resolution.
type DNSInfo struct {
	Name      string   `json:"name" yaml:"name"`
	IP        string   `json:"ip" yaml:"ip"`
	Addresses []string `json:"addresses" yaml:"addresses"`
}

// ResolveDomain resolves name once within timeout. The IPv4 address is
// preferred for IP.
func (p *Prober) ResolveDomain(ctx context.Context, name string, timeout time.Duration) (DNSInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, bounded(timeout))
	defer cancel()

	resolver := p.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	addrs, err := resolver.LookupIPAddr(ctx, name)
	if err != nil {
		return DNSInfo{}, &DNSError{Name: name, Err: err}
	}
	if len(addrs) == 0 {
		return DNSInfo{}, &DNSError{Name: name, Err: errors.New("no addresses returned")}
	}

	info := DNSInfo{Name: name}
	for _, a := range addrs {
		info.Addresses = append(info.Addresses, a.IP.String())
		if info.IP == "" && a.IP.To4() != nil {
			info.IP = a.IP.String()
		}
	}
	if info.IP == "" {
		info.IP = info.Addresses[0]
	}
	return info, nil
}

// Reachability is the outcome of a bare TCP connect.
type Reachability struct {
	Open bool
	Addr string
	Err  *ConnectionError
}

// TCPConnect reports whether host:port accepts a TCP connection from here.
func (p *Prober) TCPConnect(ctx context.Context, host string, port int, timeout time.Duration) Reachability {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	d := net.Dialer{Timeout: bounded(timeout)}

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Reachability{Addr: addr, Err: newConnectionError(addr, err)}
	}
	_ = conn.Close()
	return Reachability{Open: true, Addr: addr}
}

// CertInfo holds the fields extracted from the leaf certificate.
type CertInfo struct {
	Subject    string    `json:"subject" yaml:"subject"`
	Issuer     string    `json:"issuer" yaml:"issuer"`
	DNSNames   []string  `json:"dns_names,omitempty" yaml:"dns_names,omitempty"`
	Serial     string    `json:"serial" yaml:"serial"`
	NotBefore  time.Time `json:"not_before" yaml:"not_before"`
	NotAfter   time.Time `json:"not_after" yaml:"not_after"`
	SelfSigned bool      `json:"self_signed" yaml:"self_signed"`
}

// TLSCertificate performs a handshake with host:port and returns the leaf
// certificate. Neither the hostname nor the chain is verified: self-signed
// certificates are expected for this target.
func (p *Prober) TLSCertificate(ctx context.Context, host string, port int, timeout time.Duration) (*CertInfo, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	timeout = bounded(timeout)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d := tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		// Inspection only; the certificate is reported, never trusted.
		Config: &tls.Config{InsecureSkipVerify: true, ServerName: host},
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &TLSError{Addr: addr, Err: err}
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return nil, &TLSError{Addr: addr, Err: fmt.Errorf("unexpected connection type %T", conn)}
	}
	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, &TLSError{Addr: addr, Err: errors.New("server sent no certificate")}
	}
	return certInfo(certs[0]), nil
}

func certInfo(c *x509.Certificate) *CertInfo {
	return &CertInfo{
		Subject:    c.Subject.String(),
		Issuer:     c.Issuer.String(),
		DNSNames:   c.DNSNames,
		Serial:     c.SerialNumber.String(),
		NotBefore:  c.NotBefore,
		NotAfter:   c.NotAfter,
		SelfSigned: bytes.Equal(c.RawIssuer, c.RawSubject) &&
			c.CheckSignature(c.SignatureAlgorithm, c.RawTBSCertificate, c.Signature) == nil,
	}
}

func bounded(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultTimeout
	}
	return timeout
}
