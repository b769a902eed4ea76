package report

import (
	"encoding/json"
	"io"

	"github.com/thlarsen/sitemirror/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// runJSON adds the derived counters to a run report.
type runJSON struct {
	*model.RunReport
	Summary    model.RunSummary `json:"summary"`
	DurationMS int64            `json:"duration_ms"`
}

// restructureJSON adds the replacement total to a restructure report.
type restructureJSON struct {
	*model.RestructureReport
	TotalReplacements int `json:"total_replacements"`
}

// WriteRun outputs the run report with its summary in JSON format.
func (w *JSONWriter) WriteRun(report *model.RunReport) (int, error) {
	return w.writeJSON(w.run(report))
}

// WriteRestructure outputs the restructure report in JSON format.
func (w *JSONWriter) WriteRestructure(report *model.RestructureReport) (int, error) {
	return w.writeJSON(w.restructure(report))
}

// WriteAudit outputs the audit report in JSON format.
func (w *JSONWriter) WriteAudit(report *model.AuditReport) (int, error) {
	return w.writeJSON(report)
}

func (w *JSONWriter) run(report *model.RunReport) runJSON {
	return runJSON{
		RunReport:  report,
		Summary:    report.Summary(),
		DurationMS: report.Duration().Milliseconds(),
	}
}

func (w *JSONWriter) restructure(report *model.RestructureReport) restructureJSON {
	return restructureJSON{
		RestructureReport: report,
		TotalReplacements: report.TotalReplacements(),
	}
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// Envelope wraps a report with the version of the tool that produced it.
type Envelope struct {
	// Version is the sitemirror version that generated this report.
	Version string `json:"version"`

	// Kind is "localize", "restructure" or "audit".
	Kind string `json:"kind"`

	// Report is the wrapped report.
	Report any `json:"report"`
}

// FullJSONWriter outputs reports inside an Envelope.
type FullJSONWriter struct {
	*JSONWriter

	// version is the sitemirror version string.
	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// WriteRun outputs the run report wrapped with metadata.
func (w *FullJSONWriter) WriteRun(report *model.RunReport) (int, error) {
	return w.writeJSON(Envelope{Version: w.version, Kind: "localize", Report: w.run(report)})
}

// WriteRestructure outputs the restructure report wrapped with metadata.
func (w *FullJSONWriter) WriteRestructure(report *model.RestructureReport) (int, error) {
	return w.writeJSON(Envelope{Version: w.version, Kind: "restructure", Report: w.restructure(report)})
}

// WriteAudit outputs the audit report wrapped with metadata.
func (w *FullJSONWriter) WriteAudit(report *model.AuditReport) (int, error) {
	return w.writeJSON(Envelope{Version: w.version, Kind: "audit", Report: report})
}
