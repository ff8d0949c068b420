package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
	"github.com/sznuper/reachable/internal/notify"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the reachable configuration",
	Long:  "Loads the config, applies flag overrides, and checks every field and notification service URL without running any check.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		for _, name := range slices.Sorted(maps.Keys(cfg.Services)) {
			svc := cfg.Services[name]
			if err := notify.Validate(notify.Target{ServiceName: name, URL: svc.URL, Params: svc.Params}); err != nil {
				return err
			}
		}

		if path == "" {
			path = "(built-in defaults)"
		}
		fmt.Printf("✓ Config valid: %s\n", path)
		fmt.Printf("  Target: %s, ports %v, process %q\n", cfg.Target.Domain, cfg.Target.MonitoredPorts, cfg.Target.ProcessName)
		if len(cfg.Services) > 0 {
			fmt.Printf("  Services: %d, notify targets: %d\n", len(cfg.Services), len(cfg.Notify))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
