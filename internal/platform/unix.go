package platform

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"

	gopsnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// table reads the process and socket tables.
type table interface {
	Processes(ctx context.Context, match func(name string) bool) ([]ProcessInfo, error)
	Listeners(ctx context.Context, port int) ([]string, error)
}

// gopsutilTable reads the tables through gopsutil.
type gopsutilTable struct{}

func (gopsutilTable) Processes(ctx context.Context, match func(string) bool) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, &OSQueryError{Query: "process table", Err: err}
	}

	var out []ProcessInfo
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || !match(name) {
			continue
		}
		info := ProcessInfo{PID: p.Pid, Name: name}
		if times, err := p.TimesWithContext(ctx); err == nil {
			info.CPUSeconds = times.User + times.System
		}
		if mem, err := p.MemoryInfoWithContext(ctx); err == nil {
			info.RSSBytes = mem.RSS
		}
		out = append(out, info)
	}
	return out, nil
}

func (gopsutilTable) Listeners(ctx context.Context, port int) ([]string, error) {
	conns, err := gopsnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return nil, &OSQueryError{Query: "socket table", Err: err}
	}

	var addrs []string
	seen := make(map[string]bool)
	for _, c := range conns {
		if c.Status != "LISTEN" || int(c.Laddr.Port) != port {
			continue
		}
		addr := net.JoinHostPort(c.Laddr.IP, strconv.Itoa(port))
		if !seen[addr] {
			seen[addr] = true
			addrs = append(addrs, addr)
		}
	}
	return addrs, nil
}

// unixBackend serves linux and darwin: both read processes and sockets the
// same way and differ only in the firewall tool.
type unixBackend struct {
	name     string
	table    table
	cmd      Commander
	firewall []string
	parse    func(out string) []FirewallRule
}

func (b *unixBackend) Name() string { return b.name }

func (b *unixBackend) FindProcess(ctx context.Context, pattern string) (ProcessMatch, error) {
	procs, err := b.table.Processes(ctx, func(name string) bool { return MatchName(pattern, name) })
	if err != nil {
		return ProcessMatch{Pattern: pattern}, err
	}
	return ProcessMatch{Pattern: pattern, Instances: procs}, nil
}

func (b *unixBackend) PortListening(ctx context.Context, port int) (Listener, error) {
	addrs, err := b.table.Listeners(ctx, port)
	if err != nil {
		return Listener{Port: port}, err
	}
	return Listener{Port: port, Addresses: addrs}, nil
}

func (b *unixBackend) FirewallRules(ctx context.Context, patterns []string) ([]FirewallRule, error) {
	out, err := b.cmd.Run(ctx, b.firewall[0], b.firewall[1:]...)
	if err != nil {
		var qerr *OSQueryError
		if errors.As(err, &qerr) {
			return nil, err
		}
		return nil, &OSQueryError{Query: strings.Join(b.firewall, " "), Err: err}
	}

	var matched []FirewallRule
	for _, r := range b.parse(out) {
		if matchAny(r.Name, patterns) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// parseIptables turns `iptables -S` output into rules. Policy and chain
// declarations are dropped.
func parseIptables(out string) []FirewallRule {
	var rules []FirewallRule
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-A ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		rules = append(rules, FirewallRule{
			Name:      strings.TrimPrefix(line, "-A "),
			Enabled:   true,
			Direction: chainDirection(fields[1]),
			Action:    flagValue(fields, "-j"),
		})
	}
	return rules
}

func chainDirection(chain string) string {
	c := strings.ToLower(chain)
	switch {
	case strings.Contains(c, "input"):
		return "inbound"
	case strings.Contains(c, "output"):
		return "outbound"
	case strings.Contains(c, "forward"):
		return "forward"
	default:
		return chain
	}
}

func flagValue(fields []string, flag string) string {
	for i := 0; i < len(fields)-1; i++ {
		if fields[i] == flag {
			return fields[i+1]
		}
	}
	return ""
}

// parsePfctl turns `pfctl -sr` output into rules.
func parsePfctl(out string) []FirewallRule {
	var rules []FirewallRule
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		action := fields[0]
		if action != "pass" && action != "block" && action != "match" {
			continue
		}
		direction := "any"
		for _, f := range fields[1:] {
			if f == "in" {
				direction = "inbound"
				break
			}
			if f == "out" {
				direction = "outbound"
				break
			}
		}
		rules = append(rules, FirewallRule{
			Name:      line,
			Enabled:   true,
			Direction: direction,
			Action:    action,
		})
	}
	return rules
}
