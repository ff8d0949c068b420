package runner

import (
	"context"
	"fmt"
	"slices"

	"github.com/sznuper/reachable/internal/config"
)

// Step IDs. Per-port steps append ":<port>".
const (
	StepProcess  = "process"
	StepDNS      = "dns"
	StepDomain   = "domain"
	StepTLS      = "tls"
	stepPort     = "port"
	stepLoopback = "loopback"
	stepLAN      = "lan"
	stepExternal = "external"
	stepFirewall = "firewall"
)

func PortStep(port int) string     { return fmt.Sprintf("%s:%d", stepPort, port) }
func LoopbackStep(port int) string { return fmt.Sprintf("%s:%d", stepLoopback, port) }
func LANStep(port int) string      { return fmt.Sprintf("%s:%d", stepLAN, port) }
func ExternalStep(port int) string { return fmt.Sprintf("%s:%d", stepExternal, port) }
func FirewallStep(port int) string { return fmt.Sprintf("%s:%d", stepFirewall, port) }

// Prerequisite makes a step conditional on another step having passed.
// Reason is shown in the skipped result.
type Prerequisite struct {
	Step   string
	Reason string
}

// ProbeFunc executes one step. prior holds every result recorded so far.
type ProbeFunc func(ctx context.Context, prior map[string]Result) Result

// Step is one planned probe invocation.
type Step struct {
	ID       string
	Name     string
	Section  Section
	Requires []Prerequisite
	Probe    ProbeFunc
}

// Plan is the ordered list of steps of one run. It is built once and not
// modified while executing.
type Plan struct {
	Steps []Step
}

// IDs returns the step IDs in order.
func (p Plan) IDs() []string {
	ids := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		ids[i] = s.ID
	}
	return ids
}

// Decide reports whether step may run given the results recorded so far.
// When it may not, the returned detail explains the skip. A prerequisite
// that has no recorded result counts as not passed.
func (p Plan) Decide(step Step, results map[string]Result) (detail string, run bool) {
	for _, req := range step.Requires {
		prior, ok := results[req.Step]
		if !ok || prior.Status != StatusPass {
			return "skipped: " + req.Reason, false
		}
	}
	return "", true
}

// BuildPlan lays out the steps for tgt in dependency order:
// process, local ports, loopback HTTP, LAN HTTP, DNS, external ports,
// domain HTTP, TLS certificate, firewall rules.
func BuildPlan(tgt config.Target, c *checks) Plan {
	ports := tgt.MonitoredPorts
	var steps []Step

	steps = append(steps, c.processStep())
	for _, port := range ports {
		steps = append(steps, c.portStep(port))
	}
	for _, port := range ports {
		steps = append(steps, c.loopbackStep(port).requires(PortStep(port), "port %d not listening", port))
	}
	for _, port := range ports {
		steps = append(steps, c.lanStep(port).requires(PortStep(port), "port %d not listening", port))
	}
	steps = append(steps, c.dnsStep())
	for _, port := range ports {
		steps = append(steps, c.externalStep(port).requires(StepDNS, "DNS resolution of %s failed", tgt.Domain))
	}
	steps = append(steps, c.domainStep())

	tls := c.tlsStep()
	if slices.Contains(ports, tgt.TLSPort) {
		tls = tls.requires(PortStep(tgt.TLSPort), "port %d not listening", tgt.TLSPort)
	} else {
		tls = tls.requires(PortStep(tgt.TLSPort), "port %d is not monitored", tgt.TLSPort)
	}
	steps = append(steps, tls)

	for _, port := range ports {
		steps = append(steps, c.firewallStep(port))
	}
	return Plan{Steps: steps}
}

func (s Step) requires(step, format string, args ...any) Step {
	s.Requires = append(slices.Clone(s.Requires), Prerequisite{Step: step, Reason: fmt.Sprintf(format, args...)})
	return s
}
