package markup

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/thlarsen/sitemirror/internal/asset"
	"github.com/thlarsen/sitemirror/internal/model"
	"github.com/thlarsen/sitemirror/internal/site"
)

// lazyLoadAttrs are the site builder's lazy loading attributes. They are
// dropped once an image points at a local file, since they would make the
// browser load the remote copy again.
var lazyLoadAttrs = []string{"data-src", "srcset", "data-image", "data-image-dimensions", "data-load"}

// ImageRewriter localizes <img> tags whose source is remote.
type ImageRewriter struct {
	// Matcher locates the tags.
	Matcher TagMatcher

	// Downloader fetches images into ImageDir.
	Downloader asset.Downloader

	// Root is the site root on disk.
	Root string

	// ImageDir is the image directory relative to Root, slash separated.
	ImageDir string

	// CDNHosts are URL fragments that make a source eligible even when it
	// is not absolute.
	CDNHosts []string

	// Logger receives download failures.
	Logger *slog.Logger
}

// Name returns the step name.
func (r *ImageRewriter) Name() string {
	return "images"
}

// Eligible reports whether src refers to a remote image that should be
// mirrored: it mentions a CDN host, or is absolute, or is protocol-relative.
func (r *ImageRewriter) Eligible(src string) bool {
	if src == "" {
		return false
	}
	if strings.HasPrefix(src, "http") || strings.HasPrefix(src, "//") {
		return true
	}
	for _, host := range r.CDNHosts {
		if host != "" && strings.Contains(src, host) {
			return true
		}
	}
	return false
}

// Do rewrites every eligible image in doc and records each attempt in report.
// A failed download leaves its tag unchanged. The pass stops early when ctx
// is cancelled, and the context error is returned.
func (r *ImageRewriter) Do(ctx context.Context, doc *model.Document, report *model.RunReport) error {
	dir := filepath.Join(r.Root, filepath.FromSlash(r.ImageDir))

	doc.Content = r.Matcher.ReplaceTags(doc.Content, "img", func(tag string) string {
		if ctx.Err() != nil {
			return tag
		}

		// Attr decodes entities, so "&amp;" in the markup is requested
		// and hashed as "&".
		src, ok := Attr(tag, "data-src")
		if !ok || src == "" {
			src, _ = Attr(tag, "src")
		}
		if !r.Eligible(src) {
			return tag
		}

		res, err := r.Downloader.Download(ctx, src, dir)
		rec := model.AssetRecord{
			URL:  asset.NormalizeURL(src),
			Kind: model.AssetImage,
			Page: doc.RelPath,
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				r.logger().Warn("failed to download image", "url", rec.URL, "page", doc.RelPath, "error", err)
			}
			rec.Error = err.Error()
			report.AddAsset(rec)
			return tag
		}

		rec.Filename, rec.Bytes, rec.Cached = res.Filename, res.Bytes, res.Cached
		report.AddAsset(rec)

		out := SetAttr(tag, "src", site.AssetPath(doc.RelPath, r.ImageDir, res.Filename))
		for _, attr := range lazyLoadAttrs {
			out = RemoveAttr(out, attr)
		}
		return out
	})

	return ctx.Err()
}

func (r *ImageRewriter) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
