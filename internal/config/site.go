package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Default site layout values. They describe the exported portfolio site
// this tool was written for; every one of them can be overridden in the
// configuration file.
const (
	DefaultOrigin       = "https://www.thlarsen.com"
	DefaultFilePrefix   = "/s/"
	DefaultPortfolioDir = "portfolio"
	DefaultImageDir     = "assets/images"
	DefaultFileDir      = "assets/files"
	DefaultExtension    = ".jpg"
)

// DefaultCDNHosts are URL fragments that mark an image as hosted on the
// site builder's CDN even when the reference is not absolute.
func DefaultCDNHosts() []string {
	return []string{"squarespace"}
}

// DefaultInsecureHosts are the hosts whose certificates are not verified.
// The legacy origin serves an expired certificate.
func DefaultInsecureHosts() []string {
	return []string{"www.thlarsen.com"}
}

// DefaultRootPages are the top level pages of the site.
func DefaultRootPages() []string {
	return []string{"index.html", "portfolio.html", "resume.html"}
}

// DefaultPages are the page patterns processed by the localize and audit passes.
func DefaultPages() []string {
	return []string{"index.html", "portfolio.html", "resume.html", "portfolio/*.html"}
}

// DefaultProjects are the portfolio project identifiers.
func DefaultProjects() []string {
	return []string{"scorpion", "actuator", "toylab", "microcloud", "cim", "hot-plate-jig"}
}

// SiteConfig describes the layout of the exported site and where its
// remote assets live.
type SiteConfig struct {
	// Origin is prepended to site-relative file links before downloading.
	Origin string `yaml:"origin" validate:"required,url"`

	// FilePrefix marks anchors whose href points at a hosted file.
	FilePrefix string `yaml:"file_prefix" validate:"required,startswith=/"`

	// CDNHosts are URL fragments that make an image reference eligible.
	CDNHosts []string `yaml:"cdn_hosts,omitempty" validate:"dive,required"`

	// InsecureHosts lists hosts whose TLS certificates are not verified.
	InsecureHosts []string `yaml:"insecure_hosts,omitempty" validate:"dive,hostname_rfc1123"`

	// Pages lists page file names and glob patterns relative to the root.
	Pages []string `yaml:"pages" validate:"required,min=1,dive,required"`

	// RootPages are the top level pages updated by the restructure pass.
	RootPages []string `yaml:"root_pages" validate:"required,min=1,dive,required"`

	// PortfolioDir holds the flat project pages.
	PortfolioDir string `yaml:"portfolio_dir" validate:"required"`

	// Projects are the project identifiers whose links are rewritten.
	Projects []string `yaml:"projects" validate:"dive,required,excludesall=/"`

	// ImageDir receives downloaded images, relative to the root.
	ImageDir string `yaml:"image_dir" validate:"required"`

	// FileDir receives downloaded files, relative to the root.
	FileDir string `yaml:"file_dir" validate:"required"`

	// DefaultExtension is used when a URL has no usable extension.
	DefaultExtension string `yaml:"default_extension" validate:"required,startswith=."`

	// Cookie is an HTTP cookie sent with every request.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers included in every request.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the .sitemirror configuration file.
type File struct {
	Site SiteConfig `yaml:"site"`
}

// DefaultFile returns the configuration used when no file is found.
func DefaultFile() *File {
	return &File{
		Site: SiteConfig{
			Origin:           DefaultOrigin,
			FilePrefix:       DefaultFilePrefix,
			CDNHosts:         DefaultCDNHosts(),
			InsecureHosts:    DefaultInsecureHosts(),
			Pages:            DefaultPages(),
			RootPages:        DefaultRootPages(),
			PortfolioDir:     DefaultPortfolioDir,
			Projects:         DefaultProjects(),
			ImageDir:         DefaultImageDir,
			FileDir:          DefaultFileDir,
			DefaultExtension: DefaultExtension,
		},
	}
}

// Validate checks the site section using its struct tags.
// Failures wrap ErrInvalidSiteConfig.
func (f *File) Validate() error {
	validate := validator.New()
	if err := validate.Struct(f.Site); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSiteConfig, err)
	}
	return nil
}
