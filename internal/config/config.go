package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/a8m/envsubst"
	"github.com/goccy/go-yaml"
)

// Example is the annotated config written by `reachable init`.
//
//go:embed example.yaml
var Example []byte

type Config struct {
	Hostname string             `yaml:"hostname"`
	Target   Target             `yaml:"target"`
	Services map[string]Service `yaml:"services" validate:"dive"`
	Notify   []NotifyTarget     `yaml:"notify" validate:"dive"`
	NotifyOn []string           `yaml:"notify_on" validate:"dive,oneof=running-healthy running-degraded not-running unknown"`
	Template string             `yaml:"template"`
}

// Target describes the server being diagnosed. Every field can be
// overridden from the command line; see cmd/reachable/flags.go.
type Target struct {
	Domain           string   `yaml:"domain" validate:"required,hostname_rfc1123"`
	LocalIP          string   `yaml:"local_ip" validate:"omitempty,ip"`
	MonitoredPorts   []int    `yaml:"monitored_ports" validate:"required,min=1,unique,dive,min=1,max=65535"`
	TLSPort          int      `yaml:"tls_port" validate:"min=1,max=65535"`
	HealthPath       string   `yaml:"health_path" validate:"required,startswith=/"`
	ProbeTimeout     string   `yaml:"probe_timeout" validate:"timeout=10s"`
	DomainTimeout    string   `yaml:"domain_timeout" validate:"timeout=10s"`
	SkipTLSVerify    bool     `yaml:"skip_tls_verify"`
	ProcessName      string   `yaml:"process_name" validate:"required"`
	FirewallPatterns []string `yaml:"firewall_patterns"`
	TLSExpiryWarning string   `yaml:"tls_expiry_warning" validate:"omitempty,duration"`
}

type Service struct {
	URL    string            `yaml:"url" validate:"required"`
	Params map[string]string `yaml:"params"`
}

// NotifyTarget handles a plain service name string or an object with overrides.
type NotifyTarget struct {
	Service  string            `yaml:"service" validate:"required"`
	Template string            `yaml:"template"`
	Params   map[string]string `yaml:"params"`
}

func (n *NotifyTarget) UnmarshalYAML(unmarshal func(any) error) error {
	var str string
	if err := unmarshal(&str); err == nil {
		n.Service = str
		return nil
	}

	type notifyAlias NotifyTarget
	var obj notifyAlias
	if err := unmarshal(&obj); err != nil {
		return fmt.Errorf("notify: must be a service name string or an object with service/template/params")
	}
	*n = NotifyTarget(obj)
	return nil
}

// DefaultTemplate is the notification message used when none is configured.
const DefaultTemplate = `{{report.verdict | upper}} {{globals.hostname}} ({{report.target}}): {{report.hint}}`

// Defaults returns the built-in configuration. Domain has no default.
func Defaults() *Config {
	return &Config{
		Target: Target{
			MonitoredPorts:   []int{443, 5000},
			TLSPort:          443,
			HealthPath:       "/api/health",
			ProbeTimeout:     "5s",
			DomainTimeout:    "10s",
			ProcessName:      "node",
			FirewallPatterns: []string{"node", "https"},
			TLSExpiryWarning: "336h",
		},
		NotifyOn: []string{"running-degraded", "not-running", "unknown"},
		Template: DefaultTemplate,
	}
}

// Load reads path, expands ${VAR} references and decodes it over Defaults().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	data, err = envsubst.Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("expanding env vars: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// ProbeTimeoutDuration returns the per-probe timeout.
func (t Target) ProbeTimeoutDuration() time.Duration {
	return parseDuration(t.ProbeTimeout, 5*time.Second)
}

// DomainTimeoutDuration returns the timeout used for checks through the
// public domain, which cross more network hops.
func (t Target) DomainTimeoutDuration() time.Duration {
	return parseDuration(t.DomainTimeout, 10*time.Second)
}

func (t Target) TLSExpiryWarningDuration() time.Duration {
	return parseDuration(t.TLSExpiryWarning, 14*24*time.Hour)
}

// SchemeFor returns the scheme the server speaks on port.
func (t Target) SchemeFor(port int) string {
	if port == t.TLSPort {
		return "https"
	}
	return "http"
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
