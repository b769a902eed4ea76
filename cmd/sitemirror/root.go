package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitemirror.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitemirror",
		Short: "Migrate a hosted portfolio site to a self-contained static site",
		Long: `sitemirror migrates a portfolio website exported from a hosted site builder
into a static site that no longer depends on the builder's servers.

  localize     download remote images and files and rewrite pages to use them
  restructure  move portfolio/<project>.html to portfolio/<project>/index.html
  fetch        save a single remote page to a file
  audit        check the migrated site for leftovers and image metadata

Site layout is read from a .sitemirror file (see 'sitemirror init').`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write log records as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .sitemirror in current or home directory)")

	cmd.AddCommand(NewLocalizeCmd())
	cmd.AddCommand(NewRestructureCmd())
	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, which stops the current download and skips remaining pages.
func Execute() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
