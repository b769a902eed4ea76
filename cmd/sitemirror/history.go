package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/thlarsen/sitemirror/internal/config"
	"github.com/thlarsen/sitemirror/internal/database"
	"github.com/thlarsen/sitemirror/internal/model"
)

// latestRun selects the most recent run in --failed and --assets.
const latestRun = "latest"

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 10

// runJSON is the JSON form of a ledger run.
type runJSON struct {
	ID         string           `json:"id"`
	Root       string           `json:"root"`
	Matcher    string           `json:"matcher"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Summary    model.RunSummary `json:"summary"`
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded localize runs",
		Long: `History lists the localize runs recorded in the ledger, most recent first.

With --failed it lists the assets that could not be downloaded in one run,
and with --assets every asset the run attempted. Run IDs may be shortened to any unique prefix, and "latest" selects the most
recent run.

The ledger is a record only: whether an asset is downloaded again depends
solely on its file being present under the site root.

Examples:
  sitemirror history
  sitemirror history --failed latest
  sitemirror history --failed 3f2a9c1e --json
  sitemirror history --assets latest`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list")
	cmd.Flags().String("failed", "",
		"List failed assets of the run with this ID (or \"latest\")")
	cmd.Flags().String("assets", "",
		"List every asset of the run with this ID (or \"latest\")")
	cmd.Flags().String("db-dir", "",
		"Ledger directory (default: XDG data directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	failed, err := cmd.Flags().GetString("failed")
	if err != nil {
		return err
	}
	assets, err := cmd.Flags().GetString("assets")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	if failed != "" && assets != "" {
		return errors.New("--failed and --assets are mutually exclusive")
	}

	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	out := cmd.OutOrStdout()

	// Reading history must not create an empty ledger.
	if _, err := os.Stat(filepath.Join(dbDir, database.FileName)); os.IsNotExist(err) {
		fmt.Fprintln(out, "No runs recorded yet.")
		fmt.Fprintln(out, "\nUse 'sitemirror localize' to localize a site.")
		return nil
	}

	ledger, err := database.Open(dbDir, database.Options{})
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer ledger.Close()

	ctx := cmd.Context()

	if failed != "" || assets != "" {
		id, onlyFailed := assets, false
		if failed != "" {
			id, onlyFailed = failed, true
		}

		run, err := selectRun(ctx, ledger, id)
		if err != nil {
			return err
		}
		if run == nil {
			fmt.Fprintln(out, "No runs recorded yet.")
			return nil
		}

		var records []model.AssetRecord
		if onlyFailed {
			records, err = ledger.FailedAssets(ctx, run.ID)
		} else {
			records, err = ledger.RunAssets(ctx, run.ID)
		}
		if err != nil {
			return err
		}
		if records == nil {
			records = []model.AssetRecord{}
		}
		if jsonOutput {
			return writeJSON(out, records)
		}
		printAssets(out, run, records, onlyFailed)
		return nil
	}

	runs, err := ledger.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		items := make([]runJSON, len(runs))
		for i, r := range runs {
			items[i] = toRunJSON(r)
		}
		return writeJSON(out, items)
	}
	printRuns(out, runs)
	return nil
}

// selectRun resolves a run ID, an ID prefix or "latest".
func selectRun(ctx context.Context, ledger *database.Ledger, id string) (*database.RunRecord, error) {
	if id == latestRun {
		return ledger.LatestRun(ctx)
	}
	return ledger.GetRun(ctx, id)
}

func toRunJSON(r database.RunRecord) runJSON {
	item := runJSON{
		ID:        r.ID,
		Root:      r.Root,
		Matcher:   r.Matcher,
		StartedAt: r.StartedAt,
		Summary:   r.Summary,
	}
	if r.Finished() {
		finished := r.FinishedAt
		item.FinishedAt = &finished
	}
	return item
}

// printRuns prints the run list as a table.
func printRuns(out io.Writer, runs []database.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		fmt.Fprintln(out, "\nUse 'sitemirror localize' to localize a site.")
		return
	}

	fmt.Fprintf(out, "Localize runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-8s  %-19s  %5s  %10s  %6s  %6s  %s\n",
		"ID", "Started", "Pages", "Downloaded", "Cached", "Failed", "Root")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 76))

	for _, r := range runs {
		status := ""
		if !r.Finished() {
			status = " (interrupted)"
		}
		fmt.Fprintf(out, "  %-8s  %-19s  %5d  %10d  %6d  %6d  %s%s\n",
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Summary.Files,
			r.Summary.Downloaded,
			r.Summary.Cached,
			r.Summary.Failed,
			r.Root,
			status,
		)
	}

	fmt.Fprintln(out, "\nUse 'sitemirror history --failed <id>' to list the failed assets of a run.")
}

// printAssets prints the asset records of one run.
func printAssets(out io.Writer, run *database.RunRecord, assets []model.AssetRecord, onlyFailed bool) {
	fmt.Fprintf(out, "Run %s (%s), %s\n\n", shortID(run.ID),
		run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Root)

	label := "Assets"
	if onlyFailed {
		label = "Failed assets"
	}
	if len(assets) == 0 {
		fmt.Fprintf(out, "No %s.\n", strings.ToLower(label))
		return
	}

	fmt.Fprintf(out, "%s (%d):\n\n", label, len(assets))
	failures := 0
	for _, a := range assets {
		switch {
		case a.Failed():
			failures++
			fmt.Fprintf(out, "  [x] %s\n", a.URL)
		case a.Cached:
			fmt.Fprintf(out, "  [=] %s\n", a.URL)
		default:
			fmt.Fprintf(out, "  [+] %s\n", a.URL)
		}
		fmt.Fprintf(out, "      Kind:  %s\n", a.Kind)
		fmt.Fprintf(out, "      Page:  %s\n", a.Page)
		if a.Failed() {
			fmt.Fprintf(out, "      Error: %s\n", a.Error)
		} else {
			fmt.Fprintf(out, "      File:  %s (%s)\n", a.Filename, humanize.IBytes(uint64(a.Bytes)))
		}
	}

	if failures > 0 {
		fmt.Fprintln(out, "\nRe-run 'sitemirror localize' to retry the failed assets.")
	}
}

// shortID returns the first eight characters of a run ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// writeJSON writes v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
