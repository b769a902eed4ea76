package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/thlarsen/sitemirror/internal/config"
	seclog "github.com/thlarsen/sitemirror/internal/log"
	"github.com/thlarsen/sitemirror/internal/report"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config file path from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// setupLogger creates a structured logger that redacts cookies,
// credentials and authorization headers. --log-json selects JSON records.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		jsonLogs, _ = cmd.Root().PersistentFlags().GetBool("log-json")
	}
	if jsonLogs {
		return seclog.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return seclog.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// loadConfig creates a Config with the site layout from the configuration
// file and environment overrides applied. Command specific flags are read
// by the caller afterwards, so they take precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.ConfigFilePath = getConfigFlag(cmd)

	// If the user explicitly specified a config file path, error if not found.
	// Otherwise silently use the defaults when no file is found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Site = file
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// applyRootFlag reads --root.
func applyRootFlag(cmd *cobra.Command, cfg *config.Config) error {
	root, err := cmd.Flags().GetString("root")
	if err != nil {
		return err
	}
	cfg.Root = root
	return nil
}

// applyTransportFlags reads the flags shared by commands that make HTTP
// requests. Flags only override the configuration when set explicitly.
func applyTransportFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("user-agent") {
		if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("proxy") {
		if cfg.ProxyAddress, err = cmd.Flags().GetString("proxy"); err != nil {
			return err
		}
	}

	cfg.InsecureHosts, err = cmd.Flags().GetStringSlice("insecure-host")
	if err != nil {
		return err
	}

	return nil
}

// addTransportFlags registers the flags read by applyTransportFlags.
func addTransportFlags(cmd *cobra.Command, timeout time.Duration, userAgent string) {
	cmd.Flags().DurationP("timeout", "t", timeout,
		"Timeout for each request")
	cmd.Flags().StringP("user-agent", "u", userAgent,
		"User-Agent header sent with every request (env: "+config.EnvUserAgent+")")
	cmd.Flags().StringSlice("insecure-host", nil,
		"Skip certificate verification for this host (repeatable; adds to the config file list)")
	cmd.Flags().StringP("proxy", "x", "",
		"Route requests through a SOCKS5 proxy at host:port (env: "+config.EnvProxy+")")
}

// addReportFlags registers the report format and destination flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// applyReportFlags reads the flags registered by addReportFlags.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	return nil
}

// progressWriter returns where progress lines go. They share stdout with
// the plain text report, but move to stderr when stdout carries a JSON or
// Markdown report.
func progressWriter(cmd *cobra.Command, cfg *config.Config) io.Writer {
	if cfg.ReportFile == "" && (cfg.JSONReport || cfg.MarkdownReport) {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

// reportFormat returns the report format selected by the flags.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	default:
		return report.FormatSimple
	}
}

// writeReport writes a report in the requested format to the command's
// stdout. When a report file is set the report goes to the file and stdout
// gets the plain text version.
func writeReport(cmd *cobra.Command, cfg *config.Config, write func(report.Writer) (int, error)) (err error) {
	output := cmd.OutOrStdout()

	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may contain cookie protected URLs; only the owner may read them.
		var f *os.File
		f, err = os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			err = errors.Join(err, f.Close())
		}()

		w := report.NewMultiWriter(
			report.New(reportFormat(cfg), f, getVersion(), cfg.Verbose),
			report.New(report.FormatSimple, output, getVersion(), cfg.Verbose),
		)
		if _, err := write(w); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}

	w := report.New(reportFormat(cfg), output, getVersion(), cfg.Verbose)
	if _, err := write(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
