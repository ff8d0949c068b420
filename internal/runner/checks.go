package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sznuper/reachable/internal/config"
	"github.com/sznuper/reachable/internal/platform"
	"github.com/sznuper/reachable/internal/probe"
)

// Network is the set of network probes the runner uses. *probe.Prober
// implements it.
type Network interface {
	ResolveDomain(ctx context.Context, name string, timeout time.Duration) (probe.DNSInfo, error)
	TCPConnect(ctx context.Context, host string, port int, timeout time.Duration) probe.Reachability
	TLSCertificate(ctx context.Context, host string, port int, timeout time.Duration) (*probe.CertInfo, error)
	HealthCheck(ctx context.Context, req probe.HTTPRequest) probe.HTTPOutcome
}

// checks builds the steps for one target.
type checks struct {
	tgt     config.Target
	lanIP   string
	backend platform.Backend
	net     Network
	now     func() time.Time
}

// HTTPData is the structured payload of an HTTP step.
type HTTPData struct {
	URL        string `json:"url" yaml:"url"`
	StatusCode int    `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Body       any    `json:"body,omitempty" yaml:"body,omitempty"`
}

// ExternalData is the structured payload of an external port step.
type ExternalData struct {
	Addr string `json:"addr" yaml:"addr"`
	Open bool   `json:"open" yaml:"open"`
}

func (c *checks) processStep() Step {
	name := c.tgt.ProcessName
	return Step{
		ID:      StepProcess,
		Name:    fmt.Sprintf("Process %q", name),
		Section: SectionProcess,
		Probe: func(ctx context.Context, _ map[string]Result) Result {
			m, err := c.backend.FindProcess(ctx, name)
			if err != nil {
				return Result{Status: StatusFail, Detail: "process query failed", Error: err.Error(), fault: true}
			}
			if !m.Running() {
				return Result{Status: StatusFail, Detail: fmt.Sprintf("no running process matches %q", name), Data: m}
			}
			res := Result{Status: StatusPass, Detail: fmt.Sprintf("%q is running: %s", name, m.Summary()), Data: m}
			for _, p := range m.Instances {
				res.Notes = append(res.Notes, fmt.Sprintf("pid %d %s cpu %.1fs rss %s", p.PID, p.Name, p.CPUSeconds, humanize.IBytes(p.RSSBytes)))
			}
			return res
		},
	}
}

func (c *checks) portStep(port int) Step {
	return Step{
		ID:      PortStep(port),
		Name:    fmt.Sprintf("Port %d listening", port),
		Section: SectionPorts,
		Probe: func(ctx context.Context, _ map[string]Result) Result {
			l, err := c.backend.PortListening(ctx, port)
			if err != nil {
				return Result{Status: StatusFail, Detail: fmt.Sprintf("socket query for port %d failed", port), Error: err.Error(), fault: true}
			}
			if !l.Listening() {
				return Result{Status: StatusFail, Detail: fmt.Sprintf("port %d is not listening", port), Data: l}
			}
			return Result{
				Status: StatusPass,
				Detail: fmt.Sprintf("port %d is listening", port),
				Notes:  l.Addresses,
				Data:   l,
			}
		},
	}
}

func (c *checks) loopbackStep(port int) Step {
	req := c.httpRequest("localhost", port, c.tgt.ProbeTimeoutDuration())
	return Step{
		ID:      LoopbackStep(port),
		Name:    "Loopback " + req.URL(),
		Section: SectionLoopback,
		Probe: func(ctx context.Context, _ map[string]Result) Result {
			return c.httpResult(c.net.HealthCheck(ctx, req))
		},
	}
}

func (c *checks) lanStep(port int) Step {
	host := c.lanIP
	if host == "" {
		return Step{
			ID:      LANStep(port),
			Name:    fmt.Sprintf("LAN port %d", port),
			Section: SectionLAN,
			Probe: func(context.Context, map[string]Result) Result {
				return Result{Status: StatusSkipped, Detail: "skipped: no LAN address configured or detected"}
			},
		}
	}
	req := c.httpRequest(host, port, c.tgt.ProbeTimeoutDuration())
	return Step{
		ID:      LANStep(port),
		Name:    "LAN " + req.URL(),
		Section: SectionLAN,
		Probe: func(ctx context.Context, _ map[string]Result) Result {
			return c.httpResult(c.net.HealthCheck(ctx, req))
		},
	}
}

func (c *checks) dnsStep() Step {
	domain := c.tgt.Domain
	return Step{
		ID:      StepDNS,
		Name:    "DNS " + domain,
		Section: SectionDNS,
		Probe: func(ctx context.Context, _ map[string]Result) Result {
			info, err := c.net.ResolveDomain(ctx, domain, c.tgt.ProbeTimeoutDuration())
			if err != nil {
				return Result{Status: StatusFail, Detail: "DNS resolution failed", Error: err.Error()}
			}
			res := Result{Status: StatusPass, Detail: fmt.Sprintf("%s resolves to %s", domain, info.IP), Data: info}
			if len(info.Addresses) > 1 {
				res.Notes = []string{"all addresses: " + strings.Join(info.Addresses, ", ")}
			}
			return res
		},
	}
}

func (c *checks) externalStep(port int) Step {
	return Step{
		ID:      ExternalStep(port),
		Name:    fmt.Sprintf("External port %d", port),
		Section: SectionExternal,
		Probe: func(ctx context.Context, prior map[string]Result) Result {
			info, ok := prior[StepDNS].Data.(probe.DNSInfo)
			if !ok || info.IP == "" {
				return Result{Status: StatusSkipped, Detail: "skipped: no resolved address"}
			}
			r := c.net.TCPConnect(ctx, info.IP, port, c.tgt.ProbeTimeoutDuration())
			data := ExternalData{Addr: r.Addr, Open: r.Open}
			if r.Open {
				return Result{Status: StatusPass, Detail: fmt.Sprintf("port %d is open on %s", port, info.IP), Data: data}
			}
			res := Result{Status: StatusFail, Detail: fmt.Sprintf("port %d is closed on %s", port, info.IP), Data: data}
			if r.Err != nil {
				res.Detail += " (" + string(r.Err.Fault) + ")"
				res.Error = r.Err.Error()
			}
			return res
		},
	}
}

func (c *checks) domainStep() Step {
	req := c.httpRequest(c.tgt.Domain, c.tgt.TLSPort, c.tgt.DomainTimeoutDuration())
	req.Scheme = "https"
	return Step{
		ID:      StepDomain,
		Name:    "Domain " + req.URL(),
		Section: SectionDomain,
		Probe: func(ctx context.Context, _ map[string]Result) Result {
			return c.httpResult(c.net.HealthCheck(ctx, req))
		},
	}
}

func (c *checks) tlsStep() Step {
	host, port := c.tgt.Domain, c.tgt.TLSPort
	return Step{
		ID:      StepTLS,
		Name:    fmt.Sprintf("TLS certificate %s:%d", host, port),
		Section: SectionTLS,
		Probe: func(ctx context.Context, _ map[string]Result) Result {
			cert, err := c.net.TLSCertificate(ctx, host, port, c.tgt.DomainTimeoutDuration())
			if err != nil {
				return Result{Status: StatusFail, Detail: "TLS certificate check failed", Error: err.Error()}
			}
			return gradeCertificate(cert, c.now(), c.tgt.TLSExpiryWarningDuration())
		},
	}
}

// gradeCertificate maps certificate validity dates onto a status. The chain
// of trust is not judged: self-signed certificates are normal here.
func gradeCertificate(cert *probe.CertInfo, now time.Time, warnWithin time.Duration) Result {
	res := Result{
		Data: cert,
		Notes: []string{
			"subject: " + cert.Subject,
			"issuer: " + cert.Issuer,
			"valid until: " + cert.NotAfter.UTC().Format(time.RFC1123),
		},
	}
	if cert.SelfSigned {
		res.Notes = append(res.Notes, "self-signed")
	}

	switch left := cert.NotAfter.Sub(now); {
	case now.Before(cert.NotBefore):
		res.Status = StatusFail
		res.Detail = "certificate is not valid before " + cert.NotBefore.UTC().Format(time.DateOnly)
	case left <= 0:
		res.Status = StatusFail
		res.Detail = "certificate expired on " + cert.NotAfter.UTC().Format(time.DateOnly)
	case left < warnWithin:
		res.Status = StatusWarn
		res.Detail = fmt.Sprintf("certificate expires in %s (%s)", humanDays(left), cert.NotAfter.UTC().Format(time.DateOnly))
	default:
		res.Status = StatusPass
		res.Detail = "certificate retrieved, valid until " + cert.NotAfter.UTC().Format(time.DateOnly)
	}
	return res
}

func humanDays(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	if days < 1 {
		return "less than a day"
	}
	return strconv.Itoa(days) + " days"
}

func (c *checks) firewallStep(port int) Step {
	patterns := append([]string{strconv.Itoa(port)}, c.tgt.FirewallPatterns...)
	return Step{
		ID:      FirewallStep(port),
		Name:    fmt.Sprintf("Firewall rules for port %d", port),
		Section: SectionFirewall,
		Probe: func(ctx context.Context, _ map[string]Result) Result {
			rules, err := c.backend.FirewallRules(ctx, patterns)
			if err != nil {
				return Result{Status: StatusFail, Detail: "firewall query failed", Error: err.Error(), fault: true}
			}
			if len(rules) == 0 {
				return Result{
					Status: StatusWarn,
					Detail: "no firewall rule matches " + strings.Join(patterns, ", "),
					Notes:  []string{"a missing rule does not mean the port is blocked; the default policy may allow it"},
				}
			}
			res := Result{Status: StatusPass, Detail: fmt.Sprintf("%d matching firewall rule(s)", len(rules)), Data: rules}
			for _, r := range rules {
				state := "disabled"
				if r.Enabled {
					state = "enabled"
				}
				res.Notes = append(res.Notes, fmt.Sprintf("%s [%s, %s, %s]", r.Name, state, r.Direction, r.Action))
			}
			return res
		},
	}
}

func (c *checks) httpRequest(host string, port int, timeout time.Duration) probe.HTTPRequest {
	return probe.HTTPRequest{
		Scheme:        c.tgt.SchemeFor(port),
		Host:          host,
		Port:          port,
		Path:          c.tgt.HealthPath,
		Timeout:       timeout,
		SkipTLSVerify: c.tgt.SkipTLSVerify,
	}
}

func (c *checks) httpResult(out probe.HTTPOutcome) Result {
	data := HTTPData{URL: out.URL, StatusCode: out.StatusCode, Body: out.Body}
	switch out.Outcome {
	case probe.OutcomePass:
		res := Result{Status: StatusPass, Detail: fmt.Sprintf("%s responded with status %d", out.URL, out.StatusCode), Data: data}
		if body := compactBody(out); body != "" {
			res.Notes = []string{"response: " + body}
		}
		return res
	case probe.OutcomeWarn:
		return Result{
			Status: StatusWarn,
			Detail: fmt.Sprintf("%s responded with status %d", out.URL, out.StatusCode),
			Error:  errString(out.Err),
			Data:   data,
		}
	default:
		res := Result{Status: StatusFail, Detail: "cannot connect to " + out.URL, Error: errString(out.Err), Data: data}
		if probe.IsCertificateError(out.Err) && !c.tgt.SkipTLSVerify {
			res.Notes = []string{"certificate not trusted; set skip_tls_verify to accept self-signed certificates"}
		}
		return res
	}
}

// maxNoteRunes caps the response excerpt shown in a note.
const maxNoteRunes = 120

// compactBody renders the response body as a single short line.
func compactBody(out probe.HTTPOutcome) string {
	body := out.RawBody
	if out.Body != nil {
		if b, err := json.Marshal(out.Body); err == nil {
			body = string(b)
		}
	}
	return truncate(strings.Join(strings.Fields(body), " "), maxNoteRunes)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
