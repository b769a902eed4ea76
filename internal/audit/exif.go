package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"

	exif "github.com/dsoprea/go-exif/v3"
	"golang.org/x/sync/errgroup"

	"github.com/thlarsen/sitemirror/internal/model"
)

// exifCapable matches file names of formats that carry EXIF metadata.
var exifCapable = regexp.MustCompile(`(?i)\.(jpe?g|tiff?|heic)$`)

// exifTagFindings maps EXIF tag names to the finding they produce.
var exifTagFindings = map[string]string{
	"GPSLatitude":        model.FindingExifGPS,
	"GPSLongitude":       model.FindingExifGPS,
	"GPSAltitude":        model.FindingExifGPS,
	"SerialNumber":       model.FindingExifSerial,
	"CameraSerialNumber": model.FindingExifSerial,
	"BodySerialNumber":   model.FindingExifSerial,
	"LensSerialNumber":   model.FindingExifSerial,
	"Artist":             model.FindingExifAuthor,
	"Copyright":          model.FindingExifAuthor,
	"XPAuthor":           model.FindingExifAuthor,
	"Make":               model.FindingExifCamera,
	"Model":              model.FindingExifCamera,
	"LensModel":          model.FindingExifCamera,
	"Software":           model.FindingExifCamera,
}

// exifFinding is one metadata finding for an image.
type exifFinding struct {
	Type  string
	Tag   string
	Value string
}

// InspectImages reads the EXIF metadata of every mirrored image and
// records a finding per sensitive tag. Images are inspected concurrently,
// bounded by the configured concurrency. Unreadable images and images
// without EXIF data are skipped.
func (a *Auditor) InspectImages(ctx context.Context, report *model.AuditReport) error {
	files, err := a.listImages()
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			findings, err := a.inspectImage(file)
			if err != nil {
				a.logger.Debug("skipping image", "image", file, "error", err)
				return nil
			}

			rel := a.relToRoot(file)
			a.mu.Lock()
			defer a.mu.Unlock()
			report.ImagesInspected++
			for _, f := range findings {
				report.AddFinding(f.Type, rel, f.Value, f.Tag)
			}
			return nil
		})
	}

	return g.Wait()
}

// inspectImage extracts the sensitive EXIF tags of one image file. A file
// without EXIF data yields no findings and no error.
func (a *Auditor) inspectImage(file string) ([]exifFinding, error) {
	f, err := os.Open(file) //nolint:gosec // file comes from walking the image directory
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > a.maxImageSize {
		return nil, fmt.Errorf("image is %d bytes, limit is %d", info.Size(), a.maxImageSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, a.maxImageSize))
	if err != nil {
		return nil, err
	}

	return analyzeEXIF(data), nil
}

// analyzeEXIF returns the sensitive tags found in the EXIF block of data.
func analyzeEXIF(data []byte) []exifFinding {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return nil
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil
	}

	var findings []exifFinding
	seen := make(map[string]bool)
	for _, entry := range entries {
		findingType, ok := exifTagFindings[entry.TagName]
		if !ok || entry.Formatted == "" {
			continue
		}
		// The same tag may appear in both the main and thumbnail IFDs.
		key := entry.TagName + "\x00" + entry.Formatted
		if seen[key] {
			continue
		}
		seen[key] = true

		findings = append(findings, exifFinding{
			Type:  findingType,
			Tag:   entry.TagName,
			Value: entry.Formatted,
		})
	}
	return findings
}
