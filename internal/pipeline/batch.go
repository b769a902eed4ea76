package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/thlarsen/sitemirror/internal/model"
	"github.com/thlarsen/sitemirror/internal/site"
)

// Recorder persists asset outcomes as they happen, so an interrupted run
// still leaves a trace. The database ledger implements it.
type Recorder interface {
	RecordAsset(ctx context.Context, runID string, rec model.AssetRecord) error
}

// Runner processes the pages of a site one after another.
//
// Pages are never processed concurrently: downloads of the same asset from
// two pages would race on the cache, and the output order of the progress
// lines must follow the page order.
type Runner struct {
	// pipeline is executed once per page.
	pipeline *Pipeline

	// out receives the "Processing ..." progress lines.
	out io.Writer

	// recorder, when set, receives every asset record.
	recorder Recorder

	logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets a custom logger for file-level events.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithOutput sets where progress lines are printed.
// Default is io.Discard.
func WithOutput(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.out = w
	}
}

// WithRecorder streams asset records to rec.
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// NewRunner creates a Runner that executes p on every page.
func NewRunner(p *Pipeline, opts ...RunnerOption) *Runner {
	r := &Runner{
		pipeline: p,
		out:      io.Discard,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.out == nil {
		r.out = io.Discard
	}

	return r
}

// Run executes the pipeline on each page in order and appends a FileResult
// per page to report.
//
// A page that cannot be read or written is logged and recorded, and the
// batch moves on. Changes made before a step failed are still written,
// since every rewritten reference points at a file that exists. The only
// error returned is the context error when ctx is cancelled; the
// remaining pages are skipped.
func (r *Runner) Run(ctx context.Context, pages []site.Page, report *model.RunReport) error {
	r.logger.Info("starting localize pass",
		"pages", len(pages),
		"steps", r.pipeline.StepNames(),
	)

	startTime := time.Now()

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("localize pass cancelled",
				"remaining", len(pages)-i,
				"reason", err,
			)
			return err
		}

		fmt.Fprintf(r.out, "Processing %s...\n", page.RelPath)

		res := r.processPage(ctx, page, report)
		report.AddFile(res)
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	r.logger.Info("localize pass complete",
		"pages", len(pages),
		"elapsed", time.Since(startTime),
	)

	return nil
}

func (r *Runner) processPage(ctx context.Context, page site.Page, report *model.RunReport) model.FileResult {
	res := model.FileResult{Page: page.RelPath}

	info, err := os.Stat(page.Path)
	if err != nil {
		return r.fail(res, fmt.Errorf("stat %s: %w", page.RelPath, err))
	}
	content, err := os.ReadFile(page.Path)
	if err != nil {
		return r.fail(res, fmt.Errorf("read %s: %w", page.RelPath, err))
	}

	doc := model.NewDocument(page.Path, page.RelPath, string(content))
	first := len(report.Assets)

	runErr := r.pipeline.Execute(ctx, doc, report)

	for _, rec := range report.Assets[first:] {
		switch rec.Kind {
		case model.AssetImage:
			res.Images++
		case model.AssetFile:
			res.Files++
		}
		r.record(ctx, report.RunID, rec)
	}

	if doc.Changed() {
		if err := os.WriteFile(page.Path, []byte(doc.Content), info.Mode().Perm()); err != nil {
			return r.fail(res, fmt.Errorf("write %s: %w", page.RelPath, err))
		}
		res.Changed = true
		r.logger.Debug("page rewritten", "page", page.RelPath)
	}

	if runErr != nil {
		return r.fail(res, runErr)
	}
	return res
}

func (r *Runner) fail(res model.FileResult, err error) model.FileResult {
	r.logger.Error("failed to process page", "page", res.Page, "error", err)
	res.Error = err.Error()
	return res
}

// record forwards rec to the recorder. Ledger failures are logged and
// otherwise ignored.
func (r *Runner) record(ctx context.Context, runID string, rec model.AssetRecord) {
	if r.recorder == nil {
		return
	}
	// The record is still written when the run is being cancelled.
	if err := r.recorder.RecordAsset(context.WithoutCancel(ctx), runID, rec); err != nil {
		r.logger.Warn("failed to record asset", "url", rec.URL, "error", err)
	}
}
