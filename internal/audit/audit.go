package audit

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/thlarsen/sitemirror/internal/config"
	"github.com/thlarsen/sitemirror/internal/markup"
	"github.com/thlarsen/sitemirror/internal/model"
	"github.com/thlarsen/sitemirror/internal/site"
)

const (
	// DefaultConcurrency bounds the number of images inspected at once.
	DefaultConcurrency = 4

	// DefaultMaxImageSize is the largest image read for EXIF inspection.
	DefaultMaxImageSize int64 = 20 * 1024 * 1024
)

// Auditor checks a migrated site for references that still point at the
// old host, local references to missing files, and personal metadata left
// in mirrored images.
type Auditor struct {
	root         string
	site         config.SiteConfig
	images       *markup.ImageRewriter
	concurrency  int
	maxImageSize int64
	logger       *slog.Logger

	// mu guards report updates made by concurrent image inspections.
	mu sync.Mutex
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithConcurrency sets how many images are inspected in parallel.
func WithConcurrency(n int) Option {
	return func(a *Auditor) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithMaxImageSize skips images larger than n bytes.
func WithMaxImageSize(n int64) Option {
	return func(a *Auditor) {
		if n > 0 {
			a.maxImageSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Auditor) {
		a.logger = logger
	}
}

// New creates an Auditor for the site at root.
func New(root string, siteCfg config.SiteConfig, opts ...Option) *Auditor {
	a := &Auditor{
		root:         root,
		site:         siteCfg,
		images:       &markup.ImageRewriter{CDNHosts: siteCfg.CDNHosts},
		concurrency:  DefaultConcurrency,
		maxImageSize: DefaultMaxImageSize,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run scans pages, then inspects the images under the image directory,
// and returns the finalized report. It returns early with the context
// error when ctx is cancelled.
func (a *Auditor) Run(ctx context.Context, pages []site.Page) (*model.AuditReport, error) {
	report := model.NewAuditReport(a.root)

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a.ScanPage(page, report)
	}

	if err := a.InspectImages(ctx, report); err != nil {
		return nil, err
	}

	report.Finalize()
	return report, nil
}

// ScanPage records the findings of one page in report.
func (a *Auditor) ScanPage(page site.Page, report *model.AuditReport) {
	data, err := os.ReadFile(page.Path)
	if err != nil {
		a.logger.Warn("cannot read page", "page", page.RelPath, "error", err)
		report.AddFinding(model.FindingUnreadablePage, page.RelPath, "", err.Error())
		return
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		report.AddFinding(model.FindingUnreadablePage, page.RelPath, "", err.Error())
		return
	}
	report.PagesScanned++

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("data-src", "")
		if src == "" {
			src = s.AttrOr("src", "")
		}
		if a.images.Eligible(src) {
			report.AddFinding(model.FindingRemoteImage, page.RelPath, src, "")
			return
		}
		a.checkLocal(page, src, report)
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		if a.isRemoteFileLink(href) {
			report.AddFinding(model.FindingRemoteFileLink, page.RelPath, href, "")
			return
		}
		a.checkLocal(page, href, report)
	})

	doc.Find("link[href], script[src], source[src]").Each(func(_ int, s *goquery.Selection) {
		ref, ok := s.Attr("href")
		if !ok {
			ref = s.AttrOr("src", "")
		}
		a.checkLocal(page, ref, report)
	})
}

// isRemoteFileLink reports whether href still points at a hosted file,
// either site-relative or through the origin.
func (a *Auditor) isRemoteFileLink(href string) bool {
	prefix := a.site.FilePrefix
	if prefix == "" {
		return false
	}
	if strings.HasPrefix(href, prefix) {
		return true
	}
	origin := strings.TrimSuffix(a.site.Origin, "/")
	return origin != "" && strings.HasPrefix(href, origin+prefix)
}

// checkLocal records a missing_asset finding when ref is a relative
// reference into the image or file directory whose target does not exist.
func (a *Auditor) checkLocal(page site.Page, ref string, report *model.AuditReport) {
	target, ok := a.resolveAsset(page.RelPath, ref)
	if !ok {
		return
	}
	if _, err := os.Stat(filepath.Join(a.root, filepath.FromSlash(target))); err != nil {
		report.AddFinding(model.FindingMissingAsset, page.RelPath, ref, target)
	}
}

// resolveAsset returns the root-relative path ref points at from the page
// at relPath, when it lies inside one of the asset directories.
func (a *Auditor) resolveAsset(relPath, ref string) (string, bool) {
	if ref == "" || strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "#") {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false
	}

	target := path.Join(path.Dir(relPath), u.Path)
	for _, dir := range []string{a.site.ImageDir, a.site.FileDir} {
		dir = strings.Trim(filepath.ToSlash(dir), "/")
		if dir != "" && strings.HasPrefix(target, dir+"/") {
			return target, true
		}
	}
	return "", false
}

// imageDir returns the image directory on disk.
func (a *Auditor) imageDir() string {
	return filepath.Join(a.root, filepath.FromSlash(a.site.ImageDir))
}

// listImages returns the image files under the image directory that can
// carry EXIF metadata. A missing directory yields no images.
func (a *Auditor) listImages() ([]string, error) {
	var files []string
	err := filepath.WalkDir(a.imageDir(), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == a.imageDir() {
				return filepath.SkipDir
			}
			return err
		}
		if d.Type().IsRegular() && exifCapable.MatchString(d.Name()) {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

// relToRoot returns p relative to the site root, slash separated.
func (a *Auditor) relToRoot(p string) string {
	rel, err := filepath.Rel(a.root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}
