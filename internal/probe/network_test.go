package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"
)

type fakeResolver struct {
	addrs []net.IPAddr
	err   error
}

func (f fakeResolver) LookupIPAddr(context.Context, string) ([]net.IPAddr, error) {
	return f.addrs, f.err
}

func TestResolveDomain_PrefersIPv4(t *testing.T) {
	p := &Prober{Resolver: fakeResolver{addrs: []net.IPAddr{
		{IP: net.ParseIP("2001:db8::1")},
		{IP: net.ParseIP("203.0.113.7")},
	}}}

	info, err := p.ResolveDomain(context.Background(), "example.test", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.IP != "203.0.113.7" {
		t.Errorf("ip = %q, want %q", info.IP, "203.0.113.7")
	}
	if len(info.Addresses) != 2 {
		t.Errorf("addresses = %v, want 2 entries", info.Addresses)
	}
}

func TestResolveDomain_IPv6Only(t *testing.T) {
	p := &Prober{Resolver: fakeResolver{addrs: []net.IPAddr{{IP: net.ParseIP("2001:db8::1")}}}}

	info, err := p.ResolveDomain(context.Background(), "example.test", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.IP != "2001:db8::1" {
		t.Errorf("ip = %q, want %q", info.IP, "2001:db8::1")
	}
}

func TestResolveDomain_Failure(t *testing.T) {
	p := &Prober{Resolver: fakeResolver{err: &net.DNSError{Err: "no such host", Name: "nope.test", IsNotFound: true}}}

	_, err := p.ResolveDomain(context.Background(), "nope.test", time.Second)
	var dnsErr *DNSError
	if !errors.As(err, &dnsErr) {
		t.Fatalf("error = %v, want *DNSError", err)
	}
	if dnsErr.Name != "nope.test" {
		t.Errorf("name = %q, want %q", dnsErr.Name, "nope.test")
	}
}

func TestResolveDomain_Empty(t *testing.T) {
	p := &Prober{Resolver: fakeResolver{}}

	_, err := p.ResolveDomain(context.Background(), "empty.test", time.Second)
	var dnsErr *DNSError
	if !errors.As(err, &dnsErr) {
		t.Fatalf("error = %v, want *DNSError", err)
	}
}

type blockingResolver struct{}

func (blockingResolver) LookupIPAddr(ctx context.Context, _ string) ([]net.IPAddr, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestResolveDomain_Timeout(t *testing.T) {
	p := &Prober{Resolver: blockingResolver{}}

	start := time.Now()
	_, err := p.ResolveDomain(context.Background(), "slow.test", 50*time.Millisecond)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("elapsed = %s, want the 50ms timeout to apply", elapsed)
	}
	var dnsErr *DNSError
	if !errors.As(err, &dnsErr) {
		t.Fatalf("error = %v, want *DNSError", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}

func TestTCPConnect_Open(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	r := NewProber().TCPConnect(context.Background(), "127.0.0.1", port, time.Second)
	if !r.Open {
		t.Fatalf("open = false, err = %v", r.Err)
	}
}

func TestTCPConnect_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	r := NewProber().TCPConnect(context.Background(), "127.0.0.1", port, time.Second)
	if r.Open {
		t.Fatal("open = true, want closed")
	}
	if r.Err == nil {
		t.Fatal("expected connection error")
	}
	if r.Err.Fault != FaultRefused {
		t.Errorf("fault = %q, want %q", r.Err.Fault, FaultRefused)
	}
}

func TestTLSCertificate_SelfSigned(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	host, port := splitServer(t, srv.URL)

	info, err := NewProber().TLSCertificate(context.Background(), host, port, 2*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.NotAfter.IsZero() {
		t.Error("not_after is zero")
	}
	if info.Subject == "" || info.Issuer == "" {
		t.Errorf("subject = %q, issuer = %q, want both set", info.Subject, info.Issuer)
	}
}

func TestTLSCertificate_PlainServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	host, port := splitServer(t, srv.URL)

	_, err := NewProber().TLSCertificate(context.Background(), host, port, 2*time.Second)
	var tlsErr *TLSError
	if !errors.As(err, &tlsErr) {
		t.Fatalf("error = %v, want *TLSError", err)
	}
}

func TestFirstPrivateIPv4(t *testing.T) {
	_, public, _ := net.ParseCIDR("203.0.113.5/24")
	private := &net.IPNet{IP: net.ParseIP("192.168.50.214"), Mask: net.CIDRMask(24, 32)}

	if got := firstPrivateIPv4([]net.Addr{public, private}); got != "192.168.50.214" {
		t.Errorf("got %q, want %q", got, "192.168.50.214")
	}
	if got := firstPrivateIPv4([]net.Addr{public}); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func splitServer(t *testing.T, raw string) (string, int) {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	return u.Hostname(), port
}
