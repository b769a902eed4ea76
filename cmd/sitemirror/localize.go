package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thlarsen/sitemirror/internal/asset"
	"github.com/thlarsen/sitemirror/internal/config"
	"github.com/thlarsen/sitemirror/internal/database"
	"github.com/thlarsen/sitemirror/internal/fetch"
	"github.com/thlarsen/sitemirror/internal/markup"
	"github.com/thlarsen/sitemirror/internal/model"
	"github.com/thlarsen/sitemirror/internal/pipeline"
	"github.com/thlarsen/sitemirror/internal/report"
	"github.com/thlarsen/sitemirror/internal/site"
)

// Values accepted by --only.
const (
	onlyImages = "images"
	onlyFiles  = "files"
)

// NewLocalizeCmd creates the localize command.
func NewLocalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "localize",
		Short: "Download remote images and files and rewrite pages to use them",
		Long: `Localize processes every configured page of the exported site, one at a time.

For each <img> whose data-src or src is remote (absolute, protocol-relative,
or on a configured CDN host) the image is downloaded to assets/images and the
tag is rewritten to point at the local copy. Lazy loading attributes are
removed. For each <a> whose href starts with the file prefix (/s/ by default)
the file is downloaded from the site origin to assets/files and the link is
rewritten.

Files are named after the MD5 hash of their URL, so a URL that was already
downloaded is never fetched again. A failed download leaves its tag as it
was; re-run the command to retry.

Each run is recorded in a ledger; see 'sitemirror history'.

Examples:
  # Localize the site in the current directory
  sitemirror localize

  # Use the HTML tokenizer instead of pattern matching
  sitemirror localize --root ./site --matcher tokenizer

  # Only mirror images, write a Markdown report
  sitemirror localize --only images --markdown -o migration.md`,
		Args: cobra.NoArgs,
		RunE: runLocalizeCmd,
	}

	cmd.Flags().StringP("root", "r", config.DefaultRoot,
		"Directory containing the exported site")
	cmd.Flags().String("matcher", config.DefaultMatcher,
		"How tags are located: \"regex\" or \"tokenizer\"")
	cmd.Flags().String("only", "",
		"Only localize \"images\" or \"files\"")
	cmd.Flags().Int64("max-size", asset.DefaultMaxSize,
		"Largest accepted download in bytes")
	addTransportFlags(cmd, config.DefaultTimeout, config.DefaultUserAgent)

	// Ledger flags
	cmd.Flags().Bool("no-ledger", false,
		"Do not record this run in the ledger")
	cmd.Flags().String("db-dir", "",
		"Ledger directory (default: XDG data directory)")

	addReportFlags(cmd)

	return cmd
}

// runLocalizeCmd executes the localize command.
func runLocalizeCmd(cmd *cobra.Command, _ []string) error {
	cfg, only, err := buildLocalizeConfig(cmd)
	if err != nil {
		return err
	}

	maxSize, err := cmd.Flags().GetInt64("max-size")
	if err != nil {
		return err
	}
	if maxSize <= 0 {
		return fmt.Errorf("invalid --max-size %d: must be positive", maxSize)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	return runLocalize(cmd, cfg, only, maxSize, logger)
}

// buildLocalizeConfig creates a Config from the configuration file,
// the environment and the command flags.
func buildLocalizeConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}

	if err := applyRootFlag(cmd, cfg); err != nil {
		return nil, "", err
	}
	if err := applyTransportFlags(cmd, cfg); err != nil {
		return nil, "", err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return nil, "", err
	}

	cfg.Matcher, err = cmd.Flags().GetString("matcher")
	if err != nil {
		return nil, "", err
	}

	noLedger, err := cmd.Flags().GetBool("no-ledger")
	if err != nil {
		return nil, "", err
	}
	cfg.SaveToDB = !noLedger

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, "", err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	only, err := cmd.Flags().GetString("only")
	if err != nil {
		return nil, "", err
	}
	switch only {
	case "", onlyImages, onlyFiles:
	default:
		return nil, "", fmt.Errorf("invalid --only value %q: must be %q or %q", only, onlyImages, onlyFiles)
	}

	return cfg, only, nil
}

// runLocalize executes the localize pass and writes its report.
func runLocalize(cmd *cobra.Command, cfg *config.Config, only string, maxSize int64, logger *slog.Logger) error {
	ctx := cmd.Context()
	siteCfg := cfg.Site.Site
	progress := progressWriter(cmd, cfg)

	if cfg.ProxyAddress != "" {
		if status := fetch.CheckProxy(ctx, cfg.ProxyAddress); status != fetch.ProxyStatusOK {
			return fmt.Errorf("proxy check failed: %w (make sure a SOCKS5 proxy is running at %s)",
				status.Error(), cfg.ProxyAddress)
		}
	}

	client, err := fetch.NewHTTPClient(fetch.Options{
		Timeout:       cfg.Timeout,
		UserAgent:     cfg.UserAgent,
		Cookie:        cfg.EffectiveCookie(),
		Headers:       siteCfg.Headers,
		InsecureHosts: cfg.EffectiveInsecureHosts(),
		ProxyAddress:  cfg.ProxyAddress,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	matcher, err := markup.NewMatcher(cfg.Matcher)
	if err != nil {
		return err
	}

	downloader := asset.NewHTTPDownloader(client,
		asset.WithDefaultExtension(siteCfg.DefaultExtension),
		asset.WithMaxSize(maxSize),
		asset.WithProgress(progress),
		asset.WithLogger(logger),
	)

	localizeOpts := []pipeline.LocalizeOption{
		pipeline.WithLocalizeRoot(cfg.Root),
		pipeline.WithSite(siteCfg),
		pipeline.WithLocalizeLogger(logger),
	}
	switch only {
	case onlyImages:
		localizeOpts = append(localizeOpts, pipeline.WithOnlyImages())
	case onlyFiles:
		localizeOpts = append(localizeOpts, pipeline.WithOnlyFiles())
	}

	p := pipeline.LocalizePipeline(matcher, downloader,
		[]pipeline.Option{
			pipeline.WithLogger(logger),
			pipeline.WithContinueOnError(true),
		},
		localizeOpts...,
	)

	pages, err := site.Enumerate(cfg.Root, siteCfg.Pages)
	if err != nil {
		return fmt.Errorf("failed to enumerate pages: %w", err)
	}
	if len(pages) == 0 {
		logger.Warn("no pages found", "root", cfg.Root, "patterns", siteCfg.Pages)
	}
	fmt.Fprintf(progress, "Found %d pages to localize.\n", len(pages))

	runReport := model.NewRunReport(database.NewRunID(), cfg.Root, cfg.Matcher)
	runnerOpts := []pipeline.RunnerOption{
		pipeline.WithRunnerLogger(logger),
		pipeline.WithOutput(progress),
	}

	ledger := openLedger(ctx, cfg, runReport, logger)
	if ledger != nil {
		defer ledger.Close()
		runnerOpts = append(runnerOpts, pipeline.WithRecorder(ledger))
	}

	runErr := pipeline.NewRunner(p, runnerOpts...).Run(ctx, pages, runReport)
	runReport.Finish()

	if ledger != nil {
		if err := ledger.FinishRun(context.WithoutCancel(ctx), runReport); err != nil {
			logger.Warn("failed to finish run in ledger", "run", runReport.RunID, "error", err)
		}
	}

	if err := writeReport(cmd, cfg, func(w report.Writer) (int, error) {
		return w.WriteRun(runReport)
	}); err != nil {
		return err
	}

	return runErr
}

// openLedger opens the ledger and registers the run. Ledger problems are
// logged and the run continues without it; nil is returned in that case
// or when the ledger is disabled.
func openLedger(ctx context.Context, cfg *config.Config, runReport *model.RunReport, logger *slog.Logger) *database.Ledger {
	if !cfg.SaveToDB {
		return nil
	}

	ledger, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("ledger unavailable, run will not be recorded", "dir", cfg.DBDir, "error", err)
		return nil
	}

	if err := ledger.StartRun(ctx, runReport); err != nil {
		logger.Warn("failed to record run in ledger", "error", err)
		_ = ledger.Close()
		return nil
	}

	logger.Debug("run recorded in ledger", "run", runReport.RunID, "path", ledger.Path())
	return ledger
}
