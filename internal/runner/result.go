package runner

import "time"

type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusWarn    Status = "warn"
	StatusSkipped Status = "skipped"
)

// Section groups results in the rendered report.
type Section string

const (
	SectionProcess  Section = "process"
	SectionPorts    Section = "ports"
	SectionLoopback Section = "loopback"
	SectionLAN      Section = "lan"
	SectionDNS      Section = "dns"
	SectionExternal Section = "external"
	SectionDomain   Section = "domain"
	SectionTLS      Section = "tls"
	SectionFirewall Section = "firewall"
)

// Sections lists every section in report order.
var Sections = []Section{
	SectionProcess, SectionPorts, SectionLoopback, SectionLAN, SectionDNS,
	SectionExternal, SectionDomain, SectionTLS, SectionFirewall,
}

// Result captures the outcome of a single step. Probe faults are stored in
// Error rather than returned, so the caller always has something to display.
// A Result is never modified after the runner records it.
type Result struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Section    Section  `json:"section" yaml:"section"`
	Status     Status   `json:"status" yaml:"status"`
	Detail     string   `json:"detail" yaml:"detail"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
	Notes      []string `json:"notes,omitempty" yaml:"notes,omitempty"`
	Data       any      `json:"data,omitempty" yaml:"data,omitempty"`
	DurationMS int64    `json:"duration_ms" yaml:"duration_ms"`

	// fault marks an error in the checker itself (an OS query or a panic)
	// rather than an expected failure of the target.
	fault bool
}

// Report is everything one run produced. It lives only until rendered.
type Report struct {
	ID         string    `json:"id" yaml:"id"`
	Target     string    `json:"target" yaml:"target"`
	Hostname   string    `json:"hostname" yaml:"hostname"`
	Platform   string    `json:"platform" yaml:"platform"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	DurationMS int64     `json:"duration_ms" yaml:"duration_ms"`
	Results    []Result  `json:"results" yaml:"results"`
	Verdict    Verdict   `json:"verdict" yaml:"verdict"`
	Hint       string    `json:"hint" yaml:"hint"`
}

// Find returns the result recorded for step id.
func (r *Report) Find(id string) (Result, bool) {
	for _, res := range r.Results {
		if res.ID == id {
			return res, true
		}
	}
	return Result{}, false
}

// BySection returns the results of section s in run order.
func (r *Report) BySection(s Section) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Section == s {
			out = append(out, res)
		}
	}
	return out
}
