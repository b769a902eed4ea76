package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/thlarsen/sitemirror/internal/asset"
	"github.com/thlarsen/sitemirror/internal/markup"
	"github.com/thlarsen/sitemirror/internal/model"
	"github.com/thlarsen/sitemirror/internal/site"
)

type fakeDownloader struct {
	fail map[string]bool
}

func (f fakeDownloader) Download(_ context.Context, rawURL, _ string) (asset.Result, error) {
	if f.fail[rawURL] {
		return asset.Result{}, errors.New("unexpected status 404")
	}
	return asset.Result{Filename: asset.Filename(rawURL, ".jpg"), Bytes: 10}, nil
}

type memoryRecorder struct {
	mu      sync.Mutex
	records []model.AssetRecord
	err     error
}

func (m *memoryRecorder) RecordAsset(_ context.Context, _ string, rec model.AssetRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writePage(t *testing.T, root, rel, content string) site.Page {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return site.Page{RelPath: rel, Path: path}
}

func readPage(t *testing.T, page site.Page) string {
	t.Helper()

	b, err := os.ReadFile(page.Path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

// TestRunnerRun tests the sequential batch over pages.
func TestRunnerRun(t *testing.T) {
	t.Parallel()

	t.Run("rewrites pages and reports progress", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		index := writePage(t, root, "index.html",
			`<img data-src="https://cdn.example/x.jpg"><a href="/s/resume.pdf">CV</a>`)
		project := writePage(t, root, "portfolio/x.html", `<img data-src="https://cdn.example/x.jpg">`)
		static := writePage(t, root, "resume.html", `<p>no remote references</p>`)

		info, err := os.Stat(static.Path)
		if err != nil {
			t.Fatal(err)
		}
		modTime := info.ModTime()

		rec := &memoryRecorder{}
		var out bytes.Buffer
		p := LocalizePipeline(markup.NewRegexMatcher(), fakeDownloader{}, []Option{WithLogger(quietLogger())},
			WithLocalizeRoot(root))
		r := NewRunner(p, WithOutput(&out), WithRecorder(rec), WithRunnerLogger(quietLogger()))

		report := model.NewRunReport("run-1", root, "regex")
		if err := r.Run(context.Background(), []site.Page{index, project, static}, report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantOut := "Processing index.html...\nProcessing portfolio/x.html...\nProcessing resume.html...\n"
		if out.String() != wantOut {
			t.Errorf("unexpected progress output %q", out.String())
		}

		wantIndex := `<img src="assets/images/4bb4134b84c5fc2351ae947db6098115.jpg">` +
			`<a href="assets/files/be6604238301d48f625058b940f27a20.pdf">CV</a>`
		if got := readPage(t, index); got != wantIndex {
			t.Errorf("index.html = %q, want %q", got, wantIndex)
		}
		wantProject := `<img src="../assets/images/4bb4134b84c5fc2351ae947db6098115.jpg">`
		if got := readPage(t, project); got != wantProject {
			t.Errorf("portfolio/x.html = %q, want %q", got, wantProject)
		}

		info, err = os.Stat(static.Path)
		if err != nil {
			t.Fatal(err)
		}
		if !info.ModTime().Equal(modTime) {
			t.Error("unchanged page should not be rewritten")
		}

		if len(report.Files) != 3 {
			t.Fatalf("expected 3 file results, got %d", len(report.Files))
		}
		if f := report.Files[0]; !f.Changed || f.Images != 1 || f.Files != 1 {
			t.Errorf("unexpected result for index.html: %+v", f)
		}
		if f := report.Files[2]; f.Changed || f.Images != 0 || f.Files != 0 {
			t.Errorf("unexpected result for resume.html: %+v", f)
		}
		if len(rec.records) != 3 {
			t.Errorf("expected 3 recorded assets, got %d", len(rec.records))
		}
	})

	t.Run("missing page is recorded and the batch continues", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		missing := site.Page{RelPath: "gone.html", Path: filepath.Join(root, "gone.html")}
		present := writePage(t, root, "index.html", `<img src="//cdn.example/x.jpg">`)

		p := LocalizePipeline(markup.NewRegexMatcher(), fakeDownloader{}, []Option{WithLogger(quietLogger())},
			WithLocalizeRoot(root))
		r := NewRunner(p, WithRunnerLogger(quietLogger()))

		report := model.NewRunReport("run-2", root, "regex")
		if err := r.Run(context.Background(), []site.Page{missing, present}, report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(report.Files) != 2 {
			t.Fatalf("expected 2 file results, got %d", len(report.Files))
		}
		if report.Files[0].Error == "" {
			t.Error("expected an error for the missing page")
		}
		if !report.Files[1].Changed {
			t.Error("expected the second page to be rewritten")
		}
		if s := report.Summary(); s.FileErrors != 1 || s.FilesChanged != 1 {
			t.Errorf("unexpected summary %+v", s)
		}
	})

	t.Run("failed download leaves the page untouched", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		content := `<img data-src="https://cdn.example/404.jpg" srcset="a 1x">`
		page := writePage(t, root, "index.html", content)

		dl := fakeDownloader{fail: map[string]bool{"https://cdn.example/404.jpg": true}}
		p := LocalizePipeline(markup.NewRegexMatcher(), dl, []Option{WithLogger(quietLogger())}, WithLocalizeRoot(root))
		r := NewRunner(p, WithRunnerLogger(quietLogger()))

		report := model.NewRunReport("run-3", root, "regex")
		if err := r.Run(context.Background(), []site.Page{page}, report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := readPage(t, page); got != content {
			t.Errorf("page changed to %q", got)
		}
		if s := report.Summary(); s.Failed != 1 || s.FilesChanged != 0 {
			t.Errorf("unexpected summary %+v", s)
		}
	})

	t.Run("ledger failure does not abort the run", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		page := writePage(t, root, "index.html", `<img src="https://cdn.example/x.jpg">`)

		rec := &memoryRecorder{err: errors.New("database is locked")}
		p := LocalizePipeline(markup.NewRegexMatcher(), fakeDownloader{}, []Option{WithLogger(quietLogger())},
			WithLocalizeRoot(root))
		r := NewRunner(p, WithRecorder(rec), WithRunnerLogger(quietLogger()))

		report := model.NewRunReport("run-4", root, "regex")
		if err := r.Run(context.Background(), []site.Page{page}, report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !report.Files[0].Changed {
			t.Error("expected the page to be rewritten")
		}
	})

	t.Run("cancelled context skips remaining pages", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		page := writePage(t, root, "index.html", `<img src="https://cdn.example/x.jpg">`)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var out bytes.Buffer
		p := LocalizePipeline(markup.NewRegexMatcher(), fakeDownloader{}, []Option{WithLogger(quietLogger())},
			WithLocalizeRoot(root))
		r := NewRunner(p, WithOutput(&out), WithRunnerLogger(quietLogger()))

		report := model.NewRunReport("run-5", root, "regex")
		err := r.Run(ctx, []site.Page{page}, report)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if out.Len() != 0 || len(report.Files) != 0 {
			t.Error("no page should have been processed")
		}
	})
}
