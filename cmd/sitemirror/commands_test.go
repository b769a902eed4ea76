package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunFetch(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			http.Error(w, "no user agent", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	configPath := writeConfig(t, srv.URL)

	t.Run("saves page", func(t *testing.T) {
		t.Parallel()

		output := filepath.Join(t.TempDir(), "out", "page.html")
		stdout, _, err := execute(t, "fetch", "-c", configPath, srv.URL+"/page", output)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Successfully fetched") {
			t.Errorf("unexpected output %q", stdout)
		}

		content, err := os.ReadFile(output)
		if err != nil {
			t.Fatalf("expected output file: %v", err)
		}
		if string(content) != "<html><body>hello</body></html>" {
			t.Errorf("unexpected content %q", content)
		}
	})

	t.Run("non-success status is an error", func(t *testing.T) {
		t.Parallel()

		output := filepath.Join(t.TempDir(), "page.html")
		if _, _, err := execute(t, "fetch", "-c", configPath, srv.URL+"/missing", output); err == nil {
			t.Fatal("expected error for 404")
		}
		if _, err := os.Stat(output); !os.IsNotExist(err) {
			t.Errorf("expected no output file, got %v", err)
		}
	})

	t.Run("requires two arguments", func(t *testing.T) {
		t.Parallel()

		if _, _, err := execute(t, "fetch", srv.URL+"/page"); err == nil {
			t.Error("expected error for missing output argument")
		}
	})
}

func TestRunRestructure(t *testing.T) {
	t.Parallel()

	newSite := func(t *testing.T) string {
		t.Helper()

		root := t.TempDir()
		writeSiteFile(t, root, "index.html",
			`<a href="/portfolio/scorpion">Scorpion</a><a href="/">Home</a>`)
		writeSiteFile(t, root, "portfolio/scorpion.html",
			`<img src="../assets/images/a.jpg"><a href="actuator.html">Next</a><a href="../index.html">Home</a>`)
		writeSiteFile(t, root, "portfolio/actuator.html", `<a href="scorpion.html">Prev</a>`)
		return root
	}

	t.Run("dry run changes nothing", func(t *testing.T) {
		t.Parallel()

		root := newSite(t)
		stdout, _, err := execute(t, "restructure", "-c", writeConfig(t, "https://example.com"), "-r", root, "--dry-run")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "RESTRUCTURE REPORT (DRY RUN)") {
			t.Errorf("expected dry run report, got:\n%s", stdout)
		}
		if _, err := os.Stat(filepath.Join(root, "portfolio", "scorpion.html")); err != nil {
			t.Errorf("dry run moved a page: %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "portfolio", "scorpion")); !os.IsNotExist(err) {
			t.Errorf("dry run created a directory: %v", err)
		}
	})

	t.Run("moves project pages", func(t *testing.T) {
		t.Parallel()

		root := newSite(t)
		if _, _, err := execute(t, "restructure", "-c", writeConfig(t, "https://example.com"), "-r", root); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := os.Stat(filepath.Join(root, "portfolio", "scorpion.html")); !os.IsNotExist(err) {
			t.Errorf("expected flat page removed, got %v", err)
		}
		moved, err := os.ReadFile(filepath.Join(root, "portfolio", "scorpion", "index.html"))
		if err != nil {
			t.Fatalf("expected moved page: %v", err)
		}
		for _, want := range []string{
			`src="../../assets/images/a.jpg"`,
			`href="../actuator/"`,
			`href="../../index.html"`,
		} {
			if !strings.Contains(string(moved), want) {
				t.Errorf("moved page missing %s:\n%s", want, moved)
			}
		}

		index, err := os.ReadFile(filepath.Join(root, "index.html"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(index), `href="portfolio/scorpion/"`) {
			t.Errorf("root page link not rewritten:\n%s", index)
		}
	})
}

func TestRunAudit(t *testing.T) {
	t.Parallel()

	newSite := func(t *testing.T) string {
		t.Helper()

		root := t.TempDir()
		writeSiteFile(t, root, "index.html",
			`<img data-src="https://images.squarespace-cdn.com/content/v1/a.jpg">`)
		return root
	}

	t.Run("reports findings", func(t *testing.T) {
		t.Parallel()

		root := newSite(t)
		stdout, _, err := execute(t, "audit", "-c", writeConfig(t, "https://example.com"), "-r", root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "remote_image") {
			t.Errorf("expected remote_image finding, got:\n%s", stdout)
		}
	})

	t.Run("strict fails on findings", func(t *testing.T) {
		t.Parallel()

		root := newSite(t)
		_, _, err := execute(t, "audit", "-c", writeConfig(t, "https://example.com"), "-r", root, "--strict")
		if !errors.Is(err, errAuditFindings) {
			t.Errorf("expected errAuditFindings, got %v", err)
		}
	})

	t.Run("strict passes on a clean site", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeSiteFile(t, root, "index.html", `<a href="https://github.com/thlarsen">GitHub</a>`)
		if _, _, err := execute(t, "audit", "-c", writeConfig(t, "https://example.com"), "-r", root, "--strict"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
