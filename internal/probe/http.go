package probe

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// maxBody caps how much of a health response is read.
const maxBody = 64 << 10

// HTTPRequest describes one health endpoint call.
type HTTPRequest struct {
	Scheme  string
	Host    string
	Port    int
	Path    string
	Timeout time.Duration

	// SkipTLSVerify accepts any server certificate. It is an explicit,
	// reduced-security opt-in for targets serving self-signed certificates.
	SkipTLSVerify bool
}

// URL builds the request URL, eliding the scheme's default port.
func (r HTTPRequest) URL() string {
	host := r.Host
	if r.Port != 0 && !defaultPort(r.Scheme, r.Port) {
		host = net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
	} else if ip := net.ParseIP(r.Host); ip != nil && ip.To4() == nil {
		host = "[" + r.Host + "]"
	}
	u := url.URL{Scheme: r.Scheme, Host: host, Path: r.Path}
	return u.String()
}

func defaultPort(scheme string, port int) bool {
	return (scheme == "https" && port == 443) || (scheme == "http" && port == 80)
}

// Outcome classifies an HTTP health check.
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeWarn Outcome = "warn"
	OutcomeFail Outcome = "fail"
)

// HTTPOutcome is the result of HealthCheck. Body holds the decoded JSON
// payload when the response was 200 and parseable.
type HTTPOutcome struct {
	Outcome    Outcome
	URL        string
	StatusCode int
	Body       any
	RawBody    string
	Err        error
}

// HealthCheck issues a GET against the health endpoint described by req.
func (p *Prober) HealthCheck(ctx context.Context, req HTTPRequest) HTTPOutcome {
	target := req.URL()
	out := HTTPOutcome{URL: target}

	ctx, cancel := context.WithTimeout(ctx, bounded(req.Timeout))
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		out.Outcome = OutcomeFail
		out.Err = fmt.Errorf("building request: %w", err)
		return out
	}
	httpReq.Header.Set("Accept", "application/json")

	client := newClient(req)
	resp, err := client.Do(httpReq)
	if err != nil {
		out.Outcome = OutcomeFail
		out.Err = newConnectionError(target, err)
		return out
	}
	defer resp.Body.Close()

	out.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		out.Outcome = OutcomeWarn
		out.Err = &HTTPStatusError{URL: target, StatusCode: resp.StatusCode}
		return out
	}

	out.Outcome = OutcomePass
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return out
	}
	out.RawBody = string(data)

	var body any
	if json.Unmarshal(data, &body) == nil {
		out.Body = body
	}
	return out
}

func newClient(req HTTPRequest) *http.Client {
	transport := cleanhttp.DefaultTransport()
	if req.SkipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   bounded(req.Timeout),
	}
}
