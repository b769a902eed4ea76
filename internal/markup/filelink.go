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

// FileLinkRewriter localizes <a> tags that link to files hosted by the
// site builder, i.e. whose href starts with Prefix. Other anchors are
// left byte-identical.
type FileLinkRewriter struct {
	Matcher    TagMatcher
	Downloader asset.Downloader

	// Root is the site root on disk.
	Root string

	// FileDir is the file directory relative to Root, slash separated.
	FileDir string

	// Origin is prepended to the href to form the download URL.
	Origin string

	// Prefix selects the anchors to localize, e.g. "/s/".
	Prefix string

	Logger *slog.Logger
}

// Name returns the step name.
func (r *FileLinkRewriter) Name() string {
	return "files"
}

// Do rewrites every matching anchor in doc and records each attempt in report.
func (r *FileLinkRewriter) Do(ctx context.Context, doc *model.Document, report *model.RunReport) error {
	dir := filepath.Join(r.Root, filepath.FromSlash(r.FileDir))
	origin := strings.TrimSuffix(r.Origin, "/")

	doc.Content = r.Matcher.ReplaceTags(doc.Content, "a", func(tag string) string {
		if ctx.Err() != nil || r.Prefix == "" {
			return tag
		}

		href, ok := Attr(tag, "href")
		if !ok || !strings.HasPrefix(href, r.Prefix) {
			return tag
		}

		fullURL := origin + href
		res, err := r.Downloader.Download(ctx, fullURL, dir)
		rec := model.AssetRecord{
			URL:  asset.NormalizeURL(fullURL),
			Kind: model.AssetFile,
			Page: doc.RelPath,
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				r.logger().Warn("failed to download file", "url", rec.URL, "page", doc.RelPath, "error", err)
			}
			rec.Error = err.Error()
			report.AddAsset(rec)
			return tag
		}

		rec.Filename, rec.Bytes, rec.Cached = res.Filename, res.Bytes, res.Cached
		report.AddAsset(rec)

		return SetAttr(tag, "href", site.AssetPath(doc.RelPath, r.FileDir, res.Filename))
	})

	return ctx.Err()
}

func (r *FileLinkRewriter) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
