package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thlarsen/sitemirror/internal/config"
	"github.com/thlarsen/sitemirror/internal/report"
	"github.com/thlarsen/sitemirror/internal/restructure"
)

// NewRestructureCmd creates the restructure command.
func NewRestructureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restructure",
		Short: "Move each project page into its own directory",
		Long: `Restructure moves every portfolio/<project>.html to
portfolio/<project>/index.html so projects are served from clean URLs.

References inside a moved page are rewritten for the extra directory level:
asset paths and links to root pages gain one "../", and links to other
projects become directory links. Root pages (index.html, portfolio.html,
resume.html by default) have their site-absolute links rewritten to
relative ones.

Run localize first; restructure expects asset references to be local.

Examples:
  # Preview what would move
  sitemirror restructure --root ./site --dry-run

  # Restructure and keep a JSON record
  sitemirror restructure --root ./site --json -o restructure.json`,
		Args: cobra.NoArgs,
		RunE: runRestructureCmd,
	}

	cmd.Flags().StringP("root", "r", config.DefaultRoot,
		"Directory containing the exported site")
	cmd.Flags().BoolP("dry-run", "n", false,
		"Report what would change without touching any file")
	addReportFlags(cmd)

	return cmd
}

// runRestructureCmd executes the restructure command.
func runRestructureCmd(cmd *cobra.Command, _ []string) error {
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

	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	r := restructure.New(cfg.Root, cfg.Site.Site,
		restructure.WithDryRun(dryRun),
		restructure.WithOutput(progressWriter(cmd, cfg)),
		restructure.WithLogger(logger),
	)

	result, err := r.Run()
	if err != nil {
		return fmt.Errorf("restructure failed: %w", err)
	}

	return writeReport(cmd, cfg, func(w report.Writer) (int, error) {
		return w.WriteRestructure(result)
	})
}
