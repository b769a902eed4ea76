package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thlarsen/sitemirror/internal/asset"
	"github.com/thlarsen/sitemirror/internal/model"
)

// newAssetServer serves one image and one hosted file. Every other path
// returns 404.
func newAssetServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/photo.jpg", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF, 0xD9})
	})
	mux.HandleFunc("/s/resume.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// fullJSON is the envelope written by --json.
type fullJSON struct {
	Kind   string `json:"kind"`
	Report struct {
		Summary model.RunSummary    `json:"summary"`
		Assets  []model.AssetRecord `json:"assets"`
	} `json:"report"`
}

func TestNewLocalizeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewLocalizeCmd()
	for _, name := range []string{"root", "matcher", "only", "timeout", "user-agent", "insecure-host", "proxy", "no-ledger", "db-dir", "json", "markdown", "output"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

func TestRunLocalize(t *testing.T) {
	t.Parallel()

	for _, matcher := range []string{"regex", "tokenizer"} {
		t.Run(matcher, func(t *testing.T) {
			t.Parallel()

			srv := newAssetServer(t)
			configPath := writeConfig(t, srv.URL)
			root := t.TempDir()
			writeSiteFile(t, root, "index.html", `<html><body>
<img data-src="`+srv.URL+`/photo.jpg" alt="Photo">
<a href="/s/resume.pdf">Resume</a>
<a href="https://github.com/thlarsen">GitHub</a>
</body></html>`)

			stdout, stderr, err := execute(t, "localize", "-c", configPath, "-r", root,
				"--matcher", matcher, "--no-ledger", "--json")
			if err != nil {
				t.Fatalf("unexpected error: %v\n%s", err, stderr)
			}

			var got fullJSON
			if err := json.Unmarshal([]byte(stdout), &got); err != nil {
				t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
			}
			if got.Kind != "localize" {
				t.Errorf("expected kind 'localize', got %q", got.Kind)
			}
			if got.Report.Summary.Downloaded != 2 || got.Report.Summary.Failed != 0 {
				t.Errorf("unexpected summary %+v", got.Report.Summary)
			}
			if !strings.Contains(stderr, "Found 1 pages to localize.") {
				t.Errorf("expected page count on stderr, got %q", stderr)
			}
			if !strings.Contains(stderr, "Processing index.html") {
				t.Errorf("expected progress on stderr, got %q", stderr)
			}

			image := asset.Filename(srv.URL+"/photo.jpg", ".jpg")
			file := asset.Filename(srv.URL+"/s/resume.pdf", ".jpg")
			for _, rel := range []string{"assets/images/" + image, "assets/files/" + file} {
				if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
					t.Errorf("expected %s to exist: %v", rel, err)
				}
			}

			page, err := os.ReadFile(filepath.Join(root, "index.html"))
			if err != nil {
				t.Fatal(err)
			}
			content := string(page)
			if !strings.Contains(content, `src="assets/images/`+image+`"`) {
				t.Errorf("image not rewritten:\n%s", content)
			}
			if !strings.Contains(content, `href="assets/files/`+file+`"`) {
				t.Errorf("file link not rewritten:\n%s", content)
			}
			if strings.Contains(content, "data-src") {
				t.Errorf("data-src not removed:\n%s", content)
			}
			if !strings.Contains(content, `href="https://github.com/thlarsen"`) {
				t.Errorf("unrelated link changed:\n%s", content)
			}
		})
	}

	t.Run("second run uses local copies", func(t *testing.T) {
		t.Parallel()

		srv := newAssetServer(t)
		configPath := writeConfig(t, srv.URL)
		root := t.TempDir()
		writeSiteFile(t, root, "portfolio/scorpion.html", `<img src="`+srv.URL+`/photo.jpg">`)

		if _, stderr, err := execute(t, "localize", "-c", configPath, "-r", root, "--no-ledger"); err != nil {
			t.Fatalf("first run: %v\n%s", err, stderr)
		}
		writeSiteFile(t, root, "portfolio/actuator.html", `<img src="`+srv.URL+`/photo.jpg">`)

		stdout, stderr, err := execute(t, "localize", "-c", configPath, "-r", root, "--no-ledger", "--json")
		if err != nil {
			t.Fatalf("second run: %v\n%s", err, stderr)
		}
		var got fullJSON
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("stdout is not JSON: %v", err)
		}
		if got.Report.Summary.Cached != 1 || got.Report.Summary.Downloaded != 0 {
			t.Errorf("expected one cached asset, got %+v", got.Report.Summary)
		}

		page, err := os.ReadFile(filepath.Join(root, "portfolio", "actuator.html"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(page), `src="../assets/images/`) {
			t.Errorf("nested page should reference assets relative to itself:\n%s", page)
		}
	})

	t.Run("failed download leaves tag unchanged", func(t *testing.T) {
		t.Parallel()

		srv := newAssetServer(t)
		configPath := writeConfig(t, srv.URL)
		root := t.TempDir()
		original := `<img src="` + srv.URL + `/gone.jpg">`
		writeSiteFile(t, root, "index.html", original)

		stdout, _, err := execute(t, "localize", "-c", configPath, "-r", root, "--no-ledger", "--only", "images")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "FAILED ASSETS") {
			t.Errorf("expected failed assets section, got:\n%s", stdout)
		}

		page, err := os.ReadFile(filepath.Join(root, "index.html"))
		if err != nil {
			t.Fatal(err)
		}
		if string(page) != original {
			t.Errorf("expected page unchanged, got %q", page)
		}
	})

	t.Run("report file and size limit", func(t *testing.T) {
		t.Parallel()

		srv := newAssetServer(t)
		configPath := writeConfig(t, srv.URL)
		root := t.TempDir()
		writeSiteFile(t, root, "index.html", `<img src="`+srv.URL+`/photo.jpg">`)
		reportPath := filepath.Join(t.TempDir(), "reports", "run.md")

		stdout, stderr, err := execute(t, "localize", "-c", configPath, "-r", root, "--no-ledger",
			"--max-size", "2", "--markdown", "-o", reportPath, "--log-json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "FAILED ASSETS") {
			t.Errorf("expected text summary on stdout, got:\n%s", stdout)
		}
		if !strings.Contains(stderr, `"level":"WARN"`) {
			t.Errorf("expected JSON log records, got:\n%s", stderr)
		}

		content, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("expected report file: %v", err)
		}
		if !strings.Contains(string(content), srv.URL+"/photo.jpg") {
			t.Errorf("report file lacks the failed asset:\n%s", content)
		}
	})

	t.Run("rejects unknown only value", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "localize", "-c", writeConfig(t, "https://example.com"),
			"-r", t.TempDir(), "--no-ledger", "--only", "videos")
		if err == nil || !strings.Contains(err.Error(), "--only") {
			t.Errorf("expected --only error, got %v", err)
		}
	})
}

func TestHistory(t *testing.T) {
	t.Parallel()

	t.Run("empty ledger directory", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		stdout, _, err := execute(t, "history", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "No runs recorded yet.") {
			t.Errorf("unexpected output %q", stdout)
		}
		entries, err := os.ReadDir(dbDir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Errorf("history must not create a ledger, found %d entries", len(entries))
		}
	})

	t.Run("lists recorded runs and failed assets", func(t *testing.T) {
		t.Parallel()

		srv := newAssetServer(t)
		configPath := writeConfig(t, srv.URL)
		dbDir := t.TempDir()
		root := t.TempDir()
		writeSiteFile(t, root, "index.html",
			`<img src="`+srv.URL+`/photo.jpg"><img src="`+srv.URL+`/gone.jpg">`)

		if _, stderr, err := execute(t, "localize", "-c", configPath, "-r", root, "--db-dir", dbDir); err != nil {
			t.Fatalf("localize: %v\n%s", err, stderr)
		}

		stdout, _, err := execute(t, "history", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if !strings.Contains(stdout, "Localize runs (1)") {
			t.Errorf("expected one run, got:\n%s", stdout)
		}

		stdout, _, err = execute(t, "history", "--db-dir", dbDir, "--failed", "latest")
		if err != nil {
			t.Fatalf("history --failed: %v", err)
		}
		if !strings.Contains(stdout, srv.URL+"/gone.jpg") {
			t.Errorf("expected failed asset listed, got:\n%s", stdout)
		}
		if strings.Contains(stdout, srv.URL+"/photo.jpg") {
			t.Errorf("downloaded asset listed as failed:\n%s", stdout)
		}

		stdout, _, err = execute(t, "history", "--db-dir", dbDir, "--json")
		if err != nil {
			t.Fatalf("history --json: %v", err)
		}
		var runs []runJSON
		if err := json.Unmarshal([]byte(stdout), &runs); err != nil {
			t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 run, got %d", len(runs))
		}
		if runs[0].Summary.Downloaded != 1 || runs[0].Summary.Failed != 1 {
			t.Errorf("unexpected summary %+v", runs[0].Summary)
		}
		if runs[0].FinishedAt == nil {
			t.Error("expected finished run")
		}

		if _, _, err := execute(t, "history", "--db-dir", dbDir, "--failed", "no-such-run"); err == nil {
			t.Error("expected error for unknown run")
		}

		stdout, _, err = execute(t, "history", "--db-dir", dbDir, "--assets", runs[0].ID[:8])
		if err != nil {
			t.Fatalf("history --assets: %v", err)
		}
		if !strings.Contains(stdout, "Assets (2)") {
			t.Errorf("expected both assets listed, got:\n%s", stdout)
		}

		if _, _, err := execute(t, "history", "--db-dir", dbDir, "--assets", "latest", "--failed", "latest"); err == nil {
			t.Error("expected error for --assets with --failed")
		}
	})
}
