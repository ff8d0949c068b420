package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/sznuper/reachable/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write an example configuration",
	Long:  "Writes an annotated example config to path, --config, or ~/.config/reachable/config.yaml. An existing file is kept unless --force is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		path := cfgFile
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			path = config.DefaultConfigPaths()[0]
		}

		if err := writeExample(path, force); err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func writeExample(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, config.Example, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
