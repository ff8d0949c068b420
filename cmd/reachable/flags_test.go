package main

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/sznuper/reachable/internal/config"
)

func newFlagCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	registerTargetFlags(cmd)
	return cmd
}

func TestTargetFlags_Registered(t *testing.T) {
	cmd := newFlagCmd()
	for _, name := range []string{
		"domain", "local-ip", "monitored-ports", "tls-port", "health-path",
		"probe-timeout", "domain-timeout", "skip-tls-verify", "process-name",
		"firewall-patterns", "tls-expiry-warning",
	} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("flag --%s not registered", name)
		}
	}
}

func TestApplyTargetFlags(t *testing.T) {
	cmd := newFlagCmd()
	err := cmd.ParseFlags([]string{
		"--domain", "lair.example.net",
		"--monitored-ports", "8080,8443",
		"--tls-port", "8443",
		"--skip-tls-verify",
		"--firewall-patterns", "node,web",
	})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	tgt := config.Defaults().Target
	if err := applyTargetFlags(cmd.Flags(), &tgt); err != nil {
		t.Fatalf("applyTargetFlags: %v", err)
	}

	if tgt.Domain != "lair.example.net" {
		t.Errorf("domain = %q, want %q", tgt.Domain, "lair.example.net")
	}
	if !slices.Equal(tgt.MonitoredPorts, []int{8080, 8443}) {
		t.Errorf("monitored_ports = %v, want [8080 8443]", tgt.MonitoredPorts)
	}
	if tgt.TLSPort != 8443 {
		t.Errorf("tls_port = %d, want 8443", tgt.TLSPort)
	}
	if !tgt.SkipTLSVerify {
		t.Error("skip_tls_verify = false, want true")
	}
	if !slices.Equal(tgt.FirewallPatterns, []string{"node", "web"}) {
		t.Errorf("firewall_patterns = %v, want [node web]", tgt.FirewallPatterns)
	}
	// untouched flags keep config values
	if tgt.HealthPath != "/api/health" {
		t.Errorf("health_path = %q, want default", tgt.HealthPath)
	}
	if tgt.ProcessName != "node" {
		t.Errorf("process_name = %q, want default", tgt.ProcessName)
	}
}

func TestSetupLogger(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "WARN"} {
		if _, err := setupLogger(lvl); err != nil {
			t.Errorf("setupLogger(%q): %v", lvl, err)
		}
	}
	if _, err := setupLogger("loud"); err == nil {
		t.Error("setupLogger(loud) = nil error, want error")
	}
}

func TestWriteExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := writeExample(path, false); err != nil {
		t.Fatalf("writeExample: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(config.Example) {
		t.Error("written config differs from the embedded example")
	}

	err = writeExample(path, false)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second write err = %v, want already exists", err)
	}
	if err := writeExample(path, true); err != nil {
		t.Errorf("writeExample with force: %v", err)
	}
}

func TestRootHelp_MentionsInit(t *testing.T) {
	for _, want := range []string{"reachable init", "--domain"} {
		if !strings.Contains(rootCmd.Long, want) {
			t.Errorf("root help does not mention %q", want)
		}
	}
}
