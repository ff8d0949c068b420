package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// windowsBackend queries PowerShell cmdlets and decodes their JSON output.
type windowsBackend struct {
	cmd Commander
}

func (b *windowsBackend) Name() string { return "windows" }

// powershell runs script. A cmdlet that matched nothing leaves $? false, so
// the script exits 0 explicitly and an empty result decodes to no rows.
func (b *windowsBackend) powershell(ctx context.Context, script string) (string, error) {
	return b.cmd.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script+"; exit 0")
}

type psProcess struct {
	ID         int32    `json:"Id"`
	Name       string   `json:"ProcessName"`
	CPU        *float64 `json:"CPU"`
	WorkingSet uint64   `json:"WorkingSet64"`
}

func (b *windowsBackend) FindProcess(ctx context.Context, pattern string) (ProcessMatch, error) {
	script := fmt.Sprintf(
		"Get-Process -Name %s -ErrorAction SilentlyContinue | Select-Object Id, ProcessName, CPU, WorkingSet64 | ConvertTo-Json -Compress",
		psQuote(strings.TrimSuffix(pattern, ".exe")))
	out, err := b.powershell(ctx, script)
	if err != nil {
		return ProcessMatch{Pattern: pattern}, err
	}

	var rows []psProcess
	if err := decodeRows(out, &rows); err != nil {
		return ProcessMatch{Pattern: pattern}, &OSQueryError{Query: "Get-Process", Err: err}
	}

	m := ProcessMatch{Pattern: pattern}
	for _, r := range rows {
		info := ProcessInfo{PID: r.ID, Name: r.Name, RSSBytes: r.WorkingSet}
		if r.CPU != nil {
			info.CPUSeconds = *r.CPU
		}
		m.Instances = append(m.Instances, info)
	}
	return m, nil
}

type psConnection struct {
	LocalAddress string `json:"LocalAddress"`
	LocalPort    int    `json:"LocalPort"`
}

func (b *windowsBackend) PortListening(ctx context.Context, port int) (Listener, error) {
	script := fmt.Sprintf(
		"Get-NetTCPConnection -LocalPort %d -State Listen -ErrorAction SilentlyContinue | Select-Object LocalAddress, LocalPort | ConvertTo-Json -Compress",
		port)
	out, err := b.powershell(ctx, script)
	if err != nil {
		return Listener{Port: port}, err
	}

	var rows []psConnection
	if err := decodeRows(out, &rows); err != nil {
		return Listener{Port: port}, &OSQueryError{Query: "Get-NetTCPConnection", Err: err}
	}

	l := Listener{Port: port}
	for _, r := range rows {
		l.Addresses = append(l.Addresses, net.JoinHostPort(r.LocalAddress, strconv.Itoa(port)))
	}
	return l, nil
}

type psFirewallRule struct {
	DisplayName string `json:"DisplayName"`
	Enabled     string `json:"Enabled"`
	Direction   string `json:"Direction"`
	Action      string `json:"Action"`
}

func (b *windowsBackend) FirewallRules(ctx context.Context, patterns []string) ([]FirewallRule, error) {
	var clauses []string
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			clauses = append(clauses, "$_.DisplayName -like "+psQuote("*"+p+"*"))
		}
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	// Enum properties are cast to strings so the JSON carries names, not ordinals.
	script := "Get-NetFirewallRule | Where-Object { " + strings.Join(clauses, " -or ") + " } | " +
		"Select-Object DisplayName, @{n='Enabled';e={[string]$_.Enabled}}, " +
		"@{n='Direction';e={[string]$_.Direction}}, @{n='Action';e={[string]$_.Action}} | ConvertTo-Json -Compress"
	out, err := b.powershell(ctx, script)
	if err != nil {
		return nil, err
	}

	var rows []psFirewallRule
	if err := decodeRows(out, &rows); err != nil {
		return nil, &OSQueryError{Query: "Get-NetFirewallRule", Err: err}
	}

	rules := make([]FirewallRule, 0, len(rows))
	for _, r := range rows {
		rules = append(rules, FirewallRule{
			Name:      r.DisplayName,
			Enabled:   strings.EqualFold(r.Enabled, "true"),
			Direction: strings.ToLower(r.Direction),
			Action:    strings.ToLower(r.Action),
		})
	}
	return rules, nil
}

// decodeRows decodes ConvertTo-Json output, which is empty for no rows, an
// object for one row and an array otherwise.
func decodeRows[T any](out string, rows *[]T) error {
	data := bytes.TrimSpace([]byte(out))
	if len(data) == 0 {
		return nil
	}
	if data[0] == '[' {
		return json.Unmarshal(data, rows)
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*rows = append(*rows, one)
	return nil
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
