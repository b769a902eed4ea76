package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thlarsen/sitemirror/internal/audit"
	"github.com/thlarsen/sitemirror/internal/config"
	"github.com/thlarsen/sitemirror/internal/report"
	"github.com/thlarsen/sitemirror/internal/site"
)

// errAuditFindings is returned by audit --strict when the site has findings.
var errAuditFindings = errors.New("audit found issues")

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check the migrated site before publishing",
		Long: `Audit reads the migrated site without changing it and reports:
- images and file links that still point at the hosted site builder
- local asset references whose file is missing
- EXIF metadata in mirrored images: GPS position, serial numbers,
  author and copyright, camera and software

Run it after localize and restructure. With --strict the command exits with
a non-zero status when there are findings, for use in scripts.

Examples:
  sitemirror audit --root ./site
  sitemirror audit --root ./site --strict --markdown -o audit.md`,
		Args: cobra.NoArgs,
		RunE: runAuditCmd,
	}

	cmd.Flags().StringP("root", "r", config.DefaultRoot,
		"Directory containing the exported site")
	cmd.Flags().Bool("strict", false,
		"Exit with a non-zero status when there are findings")
	cmd.Flags().Int("concurrency", audit.DefaultConcurrency,
		"Number of images inspected in parallel")
	addReportFlags(cmd)

	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyRootFlag(cmd, cfg); err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}

	strict, err := cmd.Flags().GetBool("strict")
	if err != nil {
		return err
	}
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	siteCfg := cfg.Site.Site
	pages, err := site.Enumerate(cfg.Root, siteCfg.Pages)
	if err != nil {
		return fmt.Errorf("failed to enumerate pages: %w", err)
	}

	auditor := audit.New(cfg.Root, siteCfg,
		audit.WithConcurrency(concurrency),
		audit.WithLogger(logger),
	)
	result, err := auditor.Run(cmd.Context(), pages)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	if err := writeReport(cmd, cfg, func(w report.Writer) (int, error) {
		return w.WriteAudit(result)
	}); err != nil {
		return err
	}

	if strict && result.HasFindings() {
		return fmt.Errorf("%w: %d finding(s)", errAuditFindings, len(result.Findings))
	}
	return nil
}
