package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/sznuper/reachable/internal/config"
	"github.com/sznuper/reachable/internal/platform"
	"github.com/sznuper/reachable/internal/probe"
	"github.com/sznuper/reachable/internal/progress"
	"github.com/sznuper/reachable/internal/render"
	"github.com/sznuper/reachable/internal/runner"
)

var (
	cfgFile    string
	envFile    string
	output     string
	logLevel   string
	noColor    bool
	noProgress bool
	dryRun     bool

	// exitCode is set by a completed run and returned from execute.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "reachable",
	Short: "Diagnose why a self-hosted server cannot be reached",
	Long: `reachable runs a fixed plan of checks against a self-hosted web server:
process, listening ports, loopback and LAN HTTP, DNS, external ports, the
public domain, its TLS certificate and the host firewall. It prints one
report and exits with a code derived from the verdict:

  0  running-healthy
  1  running-degraded or unknown
  2  not-running
  3  configuration or platform error

The target domain has no default. Run "reachable init" to write an example
config, or pass --domain.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChecks,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file path")
	pf.StringVar(&envFile, "env-file", "", "load environment variables from this file before reading config (default ./.env if present)")
	pf.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	f := rootCmd.Flags()
	f.StringVarP(&output, "output", "o", "text", "output format: text, json, yaml")
	f.BoolVar(&noColor, "no-color", false, "disable colored output")
	f.BoolVar(&noProgress, "no-progress", false, "disable the live progress display")
	f.BoolVar(&dryRun, "dry-run", false, "validate notification targets without sending")

	registerTargetFlags(rootCmd)
}

func execute() (int, error) {
	if err := rootCmd.Execute(); err != nil {
		return exitFatal, err
	}
	return exitCode, nil
}

// loadConfig resolves, overrides and validates the configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, "", err
	}
	cfg, path, err := config.Resolve(cfgFile)
	if err != nil {
		return nil, "", err
	}
	if err := applyTargetFlags(cmd.Flags(), &cfg.Target); err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func runChecks(cmd *cobra.Command, _ []string) error {
	logger, err := setupLogger(logLevel)
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(output)
	if err != nil {
		return err
	}

	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if path == "" {
		logger.Info("no config file found, using defaults and flags")
	} else {
		logger.Info("loaded config", "path", path)
	}

	backend, err := platform.Select(runtime.GOOS, platform.Exec{Timeout: cfg.Target.DomainTimeoutDuration()})
	if err != nil {
		return err
	}

	r := runner.New(cfg, backend, probe.NewProber(), logger)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var report *runner.Report
	if !noProgress && format == render.FormatText && isTerminal(os.Stderr) {
		report, err = progress.Run(os.Stderr, func(obs runner.Observer) *runner.Report {
			return r.Run(ctx, obs)
		})
		if err != nil {
			logger.Warn("progress display failed", "error", err)
		}
	} else {
		report = r.Run(ctx, nil)
	}

	color := !noColor && os.Getenv("NO_COLOR") == "" && isTerminal(os.Stdout)
	out, err := render.Render(report, format, render.Options{Color: color})
	if err != nil {
		return err
	}
	if _, err := os.Stdout.Write(out); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	printNotify(os.Stderr, r.Notify(report, dryRun))

	exitCode = report.Verdict.ExitCode()
	return nil
}

func printNotify(w io.Writer, res runner.NotifyResult) {
	if res.Err != nil {
		fmt.Fprintf(w, "✗ Notify: %s\n", res.Err)
		return
	}
	if len(res.Notified) == 0 {
		return
	}
	label := "Notified"
	if res.DryRun {
		label = "Would notify"
	}
	fmt.Fprintf(w, "%s: %s\n", label, strings.Join(res.Notified, ", "))
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
