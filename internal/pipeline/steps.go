package pipeline

import (
	"log/slog"

	"github.com/thlarsen/sitemirror/internal/asset"
	"github.com/thlarsen/sitemirror/internal/config"
	"github.com/thlarsen/sitemirror/internal/markup"
)

// LocalizeConfig holds the site layout the localize steps write into.
type LocalizeConfig struct {
	// Root is the site root on disk.
	Root string

	// ImageDir and FileDir are the asset directories relative to Root.
	ImageDir string
	FileDir  string

	// Origin is the live site the file links are downloaded from.
	Origin string

	// FilePrefix selects the anchors to localize.
	FilePrefix string

	// CDNHosts are the URL fragments that mark an image as remote.
	CDNHosts []string

	// SkipImages and SkipFiles leave out one of the two steps.
	SkipImages bool
	SkipFiles  bool

	Logger *slog.Logger
}

// LocalizeOption configures a LocalizeConfig.
type LocalizeOption func(*LocalizeConfig)

// WithLocalizeRoot sets the site root.
func WithLocalizeRoot(root string) LocalizeOption {
	return func(c *LocalizeConfig) {
		c.Root = root
	}
}

// WithSite copies the layout from a site configuration block.
func WithSite(site config.SiteConfig) LocalizeOption {
	return func(c *LocalizeConfig) {
		c.ImageDir = site.ImageDir
		c.FileDir = site.FileDir
		c.Origin = site.Origin
		c.FilePrefix = site.FilePrefix
		c.CDNHosts = site.CDNHosts
	}
}

// WithOnlyImages drops the file-link step.
func WithOnlyImages() LocalizeOption {
	return func(c *LocalizeConfig) {
		c.SkipFiles = true
	}
}

// WithOnlyFiles drops the image step.
func WithOnlyFiles() LocalizeOption {
	return func(c *LocalizeConfig) {
		c.SkipImages = true
	}
}

// WithLocalizeLogger sets the logger the steps report download failures to.
func WithLocalizeLogger(logger *slog.Logger) LocalizeOption {
	return func(c *LocalizeConfig) {
		c.Logger = logger
	}
}

// LocalizePipeline creates the pipeline that mirrors remote images and
// then remote file links. Both steps share matcher and downloader.
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts localize options (WithSite, etc).
func LocalizePipeline(
	matcher markup.TagMatcher,
	downloader asset.Downloader,
	pipelineOpts []Option,
	localizeOpts ...LocalizeOption,
) *Pipeline {
	p := New(pipelineOpts...)

	defaults := config.DefaultFile().Site
	cfg := &LocalizeConfig{
		Root:       config.DefaultRoot,
		ImageDir:   defaults.ImageDir,
		FileDir:    defaults.FileDir,
		Origin:     defaults.Origin,
		FilePrefix: defaults.FilePrefix,
		CDNHosts:   defaults.CDNHosts,
	}
	for _, opt := range localizeOpts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = p.logger
	}

	if !cfg.SkipImages {
		p.AddStep(&markup.ImageRewriter{
			Matcher:    matcher,
			Downloader: downloader,
			Root:       cfg.Root,
			ImageDir:   cfg.ImageDir,
			CDNHosts:   cfg.CDNHosts,
			Logger:     cfg.Logger,
		})
	}
	if !cfg.SkipFiles {
		p.AddStep(&markup.FileLinkRewriter{
			Matcher:    matcher,
			Downloader: downloader,
			Root:       cfg.Root,
			FileDir:    cfg.FileDir,
			Origin:     cfg.Origin,
			Prefix:     cfg.FilePrefix,
			Logger:     cfg.Logger,
		})
	}

	return p
}
