package platform

// Select returns the backend for goos. It is called once at startup.
func Select(goos string, cmd Commander) (Backend, error) {
	switch goos {
	case "linux":
		return &unixBackend{
			name:     "linux",
			table:    gopsutilTable{},
			cmd:      cmd,
			firewall: []string{"iptables", "-S"},
			parse:    parseIptables,
		}, nil
	case "darwin":
		return &unixBackend{
			name:     "darwin",
			table:    gopsutilTable{},
			cmd:      cmd,
			firewall: []string{"pfctl", "-sr"},
			parse:    parsePfctl,
		}, nil
	case "windows":
		return &windowsBackend{cmd: cmd}, nil
	default:
		return nil, &UnsupportedPlatformError{GOOS: goos}
	}
}
