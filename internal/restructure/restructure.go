package restructure

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/thlarsen/sitemirror/internal/config"
	"github.com/thlarsen/sitemirror/internal/model"
	"github.com/thlarsen/sitemirror/internal/site"
)

// ErrNotProjectPage is returned when a page is not a flat page directly
// inside the portfolio directory.
var ErrNotProjectPage = errors.New("not a flat project page")

// indexFile is the name a moved project page gets inside its directory.
const indexFile = "index.html"

// Restructurer moves flat portfolio pages into per-project directories and
// rewrites the links that change with the new layout.
type Restructurer struct {
	root         string
	portfolioDir string
	assetsDir    string
	projects     []string
	rootPages    []string
	dryRun       bool
	out          io.Writer
	logger       *slog.Logger
	title        cases.Caser
}

// Option configures a Restructurer.
type Option func(*Restructurer)

// WithDryRun computes the report without touching any file.
func WithDryRun(dryRun bool) Option {
	return func(r *Restructurer) {
		r.dryRun = dryRun
	}
}

// WithOutput sets where progress lines are printed. Default is io.Discard.
func WithOutput(w io.Writer) Option {
	return func(r *Restructurer) {
		r.out = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Restructurer) {
		r.logger = logger
	}
}

// New creates a Restructurer for the site under root laid out as described
// by site. The project list is taken from site.Projects and is the only
// source of link rewrites between projects.
func New(root string, site config.SiteConfig, opts ...Option) *Restructurer {
	r := &Restructurer{
		root:         root,
		portfolioDir: strings.Trim(filepath.ToSlash(site.PortfolioDir), "/"),
		assetsDir:    assetsRoot(site.ImageDir),
		projects:     site.Projects,
		rootPages:    site.RootPages,
		out:          io.Discard,
		title:        cases.Title(language.English),
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

// assetsRoot returns the first path element of the image directory, the
// directory every local asset reference starts with ("assets").
func assetsRoot(imageDir string) string {
	dir := strings.Trim(filepath.ToSlash(imageDir), "/")
	if i := strings.IndexByte(dir, '/'); i >= 0 {
		return dir[:i]
	}
	if dir == "" {
		return "assets"
	}
	return dir
}

// ProjectPages returns the flat project pages currently in the portfolio
// directory, sorted by name.
func (r *Restructurer) ProjectPages() ([]site.Page, error) {
	return site.Enumerate(r.root, []string{path.Join(r.portfolioDir, "*.html")})
}

// Run restructures every flat project page and then updates the root pages.
// A page that fails is recorded in the report and the pass moves on.
func (r *Restructurer) Run() (*model.RestructureReport, error) {
	report := &model.RestructureReport{Root: r.root, DryRun: r.dryRun}

	pages, err := r.ProjectPages()
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(r.out, "Found %d project pages to restructure.\n", len(pages))

	for _, page := range pages {
		moved, err := r.RestructureProject(page.RelPath)
		if err != nil {
			r.logger.Error("failed to restructure project page", "page", page.RelPath, "error", err)
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.Moved = append(report.Moved, moved)
	}

	updates, errs := r.UpdateRootPages()
	report.RootPages = updates
	for _, err := range errs {
		report.Errors = append(report.Errors, err.Error())
	}

	fmt.Fprintln(r.out, "Restructuring complete.")
	return report, nil
}

// RestructureProject moves the page at relPath, e.g. "portfolio/foo.html",
// to "portfolio/foo/index.html". References to assets and root pages gain
// one "../" and links to sibling projects become directory links. The new
// file is written before the old one is removed.
func (r *Restructurer) RestructureProject(relPath string) (model.MovedPage, error) {
	relPath = strings.TrimPrefix(filepath.ToSlash(relPath), "./")
	dir, file := path.Split(relPath)
	if strings.TrimSuffix(dir, "/") != r.portfolioDir || path.Ext(file) != ".html" {
		return model.MovedPage{}, fmt.Errorf("%w: %s", ErrNotProjectPage, relPath)
	}

	project := strings.TrimSuffix(file, ".html")
	target := path.Join(r.portfolioDir, project, indexFile)
	moved := model.MovedPage{
		Project: project,
		Title:   r.Title(project),
		From:    relPath,
		To:      target,
	}

	fmt.Fprintf(r.out, "Moving content from %s to %s\n", relPath, target)

	src := filepath.Join(r.root, filepath.FromSlash(relPath))
	info, err := os.Stat(src)
	if err != nil {
		return moved, fmt.Errorf("stat %s: %w", relPath, err)
	}
	content, err := os.ReadFile(src)
	if err != nil {
		return moved, fmt.Errorf("read %s: %w", relPath, err)
	}

	rewritten, n := apply(string(content), r.projectRules())
	moved.Replacements = n

	if r.dryRun {
		return moved, nil
	}

	dst := filepath.Join(r.root, filepath.FromSlash(target))
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return moved, fmt.Errorf("create %s: %w", path.Dir(target), err)
	}
	if _, err := os.Stat(dst); err == nil {
		r.logger.Warn("overwriting existing project index", "page", target)
	}
	if err := os.WriteFile(dst, []byte(rewritten), info.Mode().Perm()); err != nil {
		return moved, fmt.Errorf("write %s: %w", target, err)
	}
	if err := os.Remove(src); err != nil {
		return moved, fmt.Errorf("remove %s: %w", relPath, err)
	}

	r.logger.Debug("project page moved", "from", relPath, "to", target, "replacements", n)
	return moved, nil
}

// UpdateRootPages rewrites project and navigation links in every root page
// that exists. Missing root pages are skipped. Errors are returned per page.
func (r *Restructurer) UpdateRootPages() ([]model.RootPageUpdate, []error) {
	var (
		updates []model.RootPageUpdate
		errs    []error
	)

	rules := r.rootRules()
	for _, name := range r.rootPages {
		p := filepath.Join(r.root, filepath.FromSlash(name))
		info, err := os.Stat(p)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("stat %s: %w", name, err))
			}
			continue
		}

		fmt.Fprintf(r.out, "Updating links in %s\n", name)

		content, err := os.ReadFile(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", name, err))
			continue
		}

		rewritten, n := apply(string(content), rules)
		updates = append(updates, model.RootPageUpdate{Page: name, Replacements: n})

		if r.dryRun || n == 0 {
			continue
		}
		if err := os.WriteFile(p, []byte(rewritten), info.Mode().Perm()); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", name, err))
		}
	}

	return updates, errs
}

// Title returns the display name of a project identifier,
// e.g. "Hot Plate Jig" for "hot-plate-jig".
func (r *Restructurer) Title(project string) string {
	return r.title.String(strings.ReplaceAll(project, "-", " "))
}
