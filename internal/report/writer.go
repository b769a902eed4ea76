package report

import (
	"fmt"
	"io"
	"time"

	"github.com/thlarsen/sitemirror/internal/model"
)

// Writer defines the interface for report output.
// Implementations write the result of each pass in one format.
type Writer interface {
	// WriteRun outputs the result of a localize pass.
	// Returns the number of bytes written and any error encountered.
	WriteRun(report *model.RunReport) (int, error)

	// WriteRestructure outputs the result of a restructure pass.
	WriteRestructure(report *model.RestructureReport) (int, error)

	// WriteAudit outputs the result of an audit pass.
	WriteAudit(report *model.AuditReport) (int, error)
}

// Format selects a Writer implementation.
type Format int

const (
	// FormatSimple is the human-readable text format.
	FormatSimple Format = iota

	// FormatJSON is indented JSON for tool integration.
	FormatJSON

	// FormatMarkdown is GitHub-flavored Markdown for sharing.
	FormatMarkdown
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatSimple:
		return "simple"
	case FormatJSON:
		return "json"
	case FormatMarkdown:
		return "markdown"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// New returns the Writer for format. version is embedded in JSON output;
// verbose adds per page detail and empty sections to plain text.
func New(format Format, output io.Writer, version string, verbose bool) Writer {
	switch format {
	case FormatJSON:
		return NewFullJSONWriter(output, version, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output, WithVerbose(verbose), WithShowEmpty(verbose))
	}
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteRun outputs the run report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteRun(report *model.RunReport) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteRun(report) })
}

// WriteRestructure outputs the restructure report to all configured Writers.
func (m *MultiWriter) WriteRestructure(report *model.RestructureReport) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteRestructure(report) })
}

// WriteAudit outputs the audit report to all configured Writers.
func (m *MultiWriter) WriteAudit(report *model.AuditReport) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteAudit(report) })
}

func (m *MultiWriter) each(write func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := write(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

const dateLayout = "2006-01-02 15:04:05 MST"

// formatBytes renders n with a binary unit, e.g. "1.5 MiB".
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// severityOrder lists severities from most to least severe.
var severityOrder = []model.Severity{
	model.SeverityCritical,
	model.SeverityHigh,
	model.SeverityMedium,
	model.SeverityLow,
	model.SeverityInfo,
}
