package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thlarsen/sitemirror/internal/config"
	"github.com/thlarsen/sitemirror/internal/fetch"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <url> <output>",
		Short: "Save a single remote page to a file",
		Long: `Fetch downloads one page and writes it to the output file, creating parent
directories as needed. Use it to pull pages the export missed.

The request carries a desktop browser User-Agent. Certificate verification
is skipped only for hosts listed in insecure_hosts or --insecure-host.

With --render the page is loaded in headless Chrome and the rendered DOM is
saved instead of the served HTML. This needs Chrome or Chromium installed.

The command exits with a non-zero status if the page cannot be fetched or
written.

Examples:
  sitemirror fetch https://www.thlarsen.com/resume resume.html
  sitemirror fetch --render https://www.thlarsen.com/portfolio portfolio.html`,
		Args: cobra.ExactArgs(2),
		RunE: runFetchCmd,
	}

	cmd.Flags().Bool("render", false,
		"Render the page in headless Chrome before saving")
	addTransportFlags(cmd, config.DefaultFetchTimeout, config.DefaultFetchUserAgent)

	return cmd
}

// runFetchCmd executes the fetch command.
func runFetchCmd(cmd *cobra.Command, args []string) error {
	rawURL, output := args[0], args[1]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.UserAgent == config.DefaultUserAgent {
		cfg.UserAgent = config.DefaultFetchUserAgent
	}
	if err := applyTransportFlags(cmd, cfg); err != nil {
		return err
	}

	render, err := cmd.Flags().GetBool("render")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	var content []byte

	if render {
		logger.Debug("rendering page", "url", rawURL)
		html, err := fetch.Render(ctx, rawURL, cfg.UserAgent, cfg.Timeout)
		if err != nil {
			return err
		}
		content = []byte(html)
	} else {
		client, err := fetch.NewHTTPClient(fetch.Options{
			Timeout:       cfg.Timeout,
			UserAgent:     cfg.UserAgent,
			Cookie:        cfg.EffectiveCookie(),
			Headers:       cfg.Site.Site.Headers,
			InsecureHosts: cfg.EffectiveInsecureHosts(),
			ProxyAddress:  cfg.ProxyAddress,
		})
		if err != nil {
			return fmt.Errorf("failed to create HTTP client: %w", err)
		}

		content, err = fetch.Page(ctx, client, rawURL)
		if err != nil {
			return err
		}
	}

	if err := fetch.WriteFile(output, content); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully fetched %s to %s\n", rawURL, output)
	return nil
}
