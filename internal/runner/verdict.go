package runner

import (
	"fmt"
	"strings"
)

// Verdict is the one-word conclusion of a run.
type Verdict string

const (
	VerdictHealthy    Verdict = "running-healthy"
	VerdictDegraded   Verdict = "running-degraded"
	VerdictNotRunning Verdict = "not-running"
	VerdictUnknown    Verdict = "unknown"
)

// Verdicts lists every verdict name.
var Verdicts = []Verdict{VerdictHealthy, VerdictDegraded, VerdictNotRunning, VerdictUnknown}

// ExitCode maps the verdict onto the process exit status.
func (v Verdict) ExitCode() int {
	switch v {
	case VerdictHealthy:
		return 0
	case VerdictNotRunning:
		return 2
	default:
		return 1
	}
}

// Derive computes the verdict from the recorded results. Only the process
// step and the local port steps take part; the first matching rule wins.
func Derive(results []Result) Verdict {
	var process *Result
	anyPort := false
	for i := range results {
		r := &results[i]
		switch {
		case r.ID == StepProcess:
			process = r
		case r.Section == SectionPorts && r.Status == StatusPass:
			anyPort = true
		}
	}

	switch {
	case process == nil, process.Status == StatusSkipped, process.Error != "":
		return VerdictUnknown
	case process.Status != StatusPass:
		return VerdictNotRunning
	case anyPort:
		return VerdictHealthy
	default:
		return VerdictDegraded
	}
}

// Hint returns a one-line suggestion for the verdict.
func Hint(v Verdict, results []Result) string {
	switch v {
	case VerdictHealthy:
		return "server appears to be running"
	case VerdictDegraded:
		return "process is running but no monitored port is listening; check the bind address and the server logs"
	case VerdictNotRunning:
		hint := "start the server process"
		if ports := listeningPorts(results); len(ports) > 0 {
			hint += fmt.Sprintf(" (ports %s are listening, so the process name may differ from the configured one)", strings.Join(ports, ", "))
		}
		return hint
	default:
		return "could not query the process table; rerun with --log-level debug for details"
	}
}

func listeningPorts(results []Result) []string {
	var ports []string
	for _, r := range results {
		if r.Section == SectionPorts && r.Status == StatusPass {
			ports = append(ports, strings.TrimPrefix(r.ID, stepPort+":"))
		}
	}
	return ports
}
