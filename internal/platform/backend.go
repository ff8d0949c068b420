// Package platform answers the host-OS questions the runner asks: is the
// process running, is the port bound locally, which firewall rules match.
// Each supported OS has its own Backend, chosen once by Select.
package platform

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
)

// Backend is the capability set one OS must provide.
type Backend interface {
	Name() string
	FindProcess(ctx context.Context, pattern string) (ProcessMatch, error)
	PortListening(ctx context.Context, port int) (Listener, error)
	FirewallRules(ctx context.Context, patterns []string) ([]FirewallRule, error)
}

// ProcessInfo describes one matching process.
type ProcessInfo struct {
	PID        int32   `json:"pid" yaml:"pid"`
	Name       string  `json:"name" yaml:"name"`
	CPUSeconds float64 `json:"cpu_seconds" yaml:"cpu_seconds"`
	RSSBytes   uint64  `json:"rss_bytes" yaml:"rss_bytes"`
}

// ProcessMatch is the answer to FindProcess. Running is false when nothing
// matched; that is a valid answer, not an error.
type ProcessMatch struct {
	Pattern   string        `json:"pattern" yaml:"pattern"`
	Instances []ProcessInfo `json:"instances" yaml:"instances"`
}

func (m ProcessMatch) Running() bool { return len(m.Instances) > 0 }

// Summary renders instance count and resource usage on one line.
func (m ProcessMatch) Summary() string {
	if !m.Running() {
		return fmt.Sprintf("no process matching %q", m.Pattern)
	}
	var cpu float64
	var rss uint64
	for _, p := range m.Instances {
		cpu += p.CPUSeconds
		rss += p.RSSBytes
	}
	noun := "instance"
	if len(m.Instances) != 1 {
		noun = "instances"
	}
	return fmt.Sprintf("%d %s (cpu %.1fs, rss %s)", len(m.Instances), noun, cpu, humanize.IBytes(rss))
}

// Listener is the answer to PortListening.
type Listener struct {
	Port      int      `json:"port" yaml:"port"`
	Addresses []string `json:"addresses,omitempty" yaml:"addresses,omitempty"`
}

func (l Listener) Listening() bool { return len(l.Addresses) > 0 }

// FirewallRule is one rule matching the requested patterns.
type FirewallRule struct {
	Name      string `json:"name" yaml:"name"`
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Direction string `json:"direction" yaml:"direction"`
	Action    string `json:"action" yaml:"action"`
}

// MatchName reports whether a process name matches pattern. Matching is
// case-insensitive, ignores a trailing ".exe" and supports * and ? globs.
func MatchName(pattern, name string) bool {
	pattern = normalizeName(pattern)
	name = normalizeName(name)
	if pattern == "" {
		return false
	}
	if strings.ContainsAny(pattern, "*?[") {
		ok, err := path.Match(pattern, name)
		return err == nil && ok
	}
	return pattern == name
}

func normalizeName(s string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".exe")
}

// matchAny reports whether s contains any of patterns, case-insensitively.
func matchAny(s string, patterns []string) bool {
	s = strings.ToLower(s)
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" && strings.Contains(s, p) {
			return true
		}
	}
	return false
}
