package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/thlarsen/sitemirror/internal/model"
)

// SimpleWriter outputs human-readable text reports for the terminal.
// It uses plain ASCII section rules and no colors, so the output can be
// piped to files or other tools.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose adds per-page detail and finding guidance.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteRun outputs the localize report in human-readable format.
func (w *SimpleWriter) WriteRun(report *model.RunReport) (int, error) {
	var sb strings.Builder
	s := report.Summary()

	w.writeTitle(&sb, "LOCALIZE REPORT")
	fmt.Fprintf(&sb, "Run ID:    %s\n", report.RunID)
	fmt.Fprintf(&sb, "Site Root: %s\n", report.Root)
	fmt.Fprintf(&sb, "Matcher:   %s\n", report.Matcher)
	fmt.Fprintf(&sb, "Started:   %s\n", report.StartedAt.Format(dateLayout))
	if d := report.Duration(); d > 0 {
		fmt.Fprintf(&sb, "Duration:  %s\n", formatDuration(d))
	}
	sb.WriteString("\n")

	w.writeSection(&sb, "SUMMARY")
	fmt.Fprintf(&sb, "  Pages processed: %d\n", s.Files)
	fmt.Fprintf(&sb, "  Pages changed:   %d\n", s.FilesChanged)
	fmt.Fprintf(&sb, "  Page errors:     %d\n", s.FileErrors)
	fmt.Fprintf(&sb, "  Downloaded:      %d\n", s.Downloaded)
	fmt.Fprintf(&sb, "  Already local:   %d\n", s.Cached)
	fmt.Fprintf(&sb, "  Failed:          %d\n", s.Failed)
	fmt.Fprintf(&sb, "  Local size:      %s\n", formatBytes(s.Bytes))
	sb.WriteString("\n")

	if w.verbose && len(report.Files) > 0 {
		w.writeSection(&sb, "PAGES")
		for _, f := range report.Files {
			mark := " "
			if f.Changed {
				mark = "*"
			}
			fmt.Fprintf(&sb, "  [%s] %s (images: %d, files: %d)\n", mark, f.Page, f.Images, f.Files)
		}
		sb.WriteString("\n")
	}

	failed := report.FailedAssets()
	if len(failed) > 0 || w.showEmpty {
		w.writeSection(&sb, "FAILED ASSETS")
		if len(failed) == 0 {
			sb.WriteString("  None\n")
		}
		for _, a := range failed {
			fmt.Fprintf(&sb, "  [x] %s\n", a.URL)
			fmt.Fprintf(&sb, "      Page:  %s\n", a.Page)
			fmt.Fprintf(&sb, "      Error: %s\n", a.Error)
		}
		sb.WriteString("\n")
	}

	if s.FileErrors > 0 {
		w.writeSection(&sb, "PAGE ERRORS")
		for _, f := range report.Files {
			if f.Error != "" {
				fmt.Fprintf(&sb, "  [x] %s: %s\n", f.Page, f.Error)
			}
		}
		sb.WriteString("\n")
	}

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteRestructure outputs the restructure report in human-readable format.
func (w *SimpleWriter) WriteRestructure(report *model.RestructureReport) (int, error) {
	var sb strings.Builder

	title := "RESTRUCTURE REPORT"
	if report.DryRun {
		title += " (DRY RUN)"
	}
	w.writeTitle(&sb, title)
	fmt.Fprintf(&sb, "Site Root:    %s\n", report.Root)
	fmt.Fprintf(&sb, "Pages moved:  %d\n", len(report.Moved))
	fmt.Fprintf(&sb, "Replacements: %d\n", report.TotalReplacements())
	sb.WriteString("\n")

	if len(report.Moved) > 0 || w.showEmpty {
		w.writeSection(&sb, "PROJECT PAGES")
		if len(report.Moved) == 0 {
			sb.WriteString("  No project pages to move\n")
		}
		for _, m := range report.Moved {
			fmt.Fprintf(&sb, "  [+] %s\n", m.Title)
			fmt.Fprintf(&sb, "      %s -> %s (%d replacements)\n", m.From, m.To, m.Replacements)
		}
		sb.WriteString("\n")
	}

	if len(report.RootPages) > 0 || w.showEmpty {
		w.writeSection(&sb, "ROOT PAGES")
		if len(report.RootPages) == 0 {
			sb.WriteString("  No root pages found\n")
		}
		for _, p := range report.RootPages {
			fmt.Fprintf(&sb, "  [+] %s (%d replacements)\n", p.Page, p.Replacements)
		}
		sb.WriteString("\n")
	}

	if len(report.Errors) > 0 {
		w.writeSection(&sb, "ERRORS")
		for _, e := range report.Errors {
			fmt.Fprintf(&sb, "  [x] %s\n", e)
		}
		sb.WriteString("\n")
	}

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteAudit outputs the audit report in human-readable format.
func (w *SimpleWriter) WriteAudit(report *model.AuditReport) (int, error) {
	var sb strings.Builder

	w.writeTitle(&sb, "AUDIT REPORT")
	fmt.Fprintf(&sb, "Site Root:        %s\n", report.Root)
	fmt.Fprintf(&sb, "Audit Date:       %s\n", report.DateAudited.Format(dateLayout))
	fmt.Fprintf(&sb, "Pages Scanned:    %d\n", report.PagesScanned)
	fmt.Fprintf(&sb, "Images Inspected: %d\n", report.ImagesInspected)
	sb.WriteString("\n")

	w.writeSection(&sb, "SEVERITY SUMMARY")
	fmt.Fprintf(&sb, "  CRITICAL: %d\n", report.CriticalCount)
	fmt.Fprintf(&sb, "  HIGH:     %d\n", report.HighCount)
	fmt.Fprintf(&sb, "  MEDIUM:   %d\n", report.MediumCount)
	fmt.Fprintf(&sb, "  LOW:      %d\n", report.LowCount)
	fmt.Fprintf(&sb, "  INFO:     %d\n", report.InfoCount)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  TOTAL:    %d findings\n", len(report.Findings))
	sb.WriteString("\n")

	if report.HasFindings() || w.showEmpty {
		w.writeSection(&sb, "FINDINGS")
		for _, severity := range severityOrder {
			findings := report.FindingsBySeverity(severity)
			if len(findings) == 0 && !w.showEmpty {
				continue
			}
			w.writeFindingsForSeverity(&sb, severity, findings)
		}
	}

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// writeFindingsForSeverity writes findings of a specific severity level.
func (w *SimpleWriter) writeFindingsForSeverity(sb *strings.Builder, severity model.Severity, findings []model.Finding) {
	fmt.Fprintf(sb, "[%s] %s\n", w.getSeverityIndicator(severity), severity.String())

	if len(findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	for _, f := range findings {
		fmt.Fprintf(sb, "  * %s in %s\n", f.Type, f.Page)
		if f.Value != "" {
			fmt.Fprintf(sb, "    Value: %s\n", f.Value)
		}
		if f.Detail != "" {
			fmt.Fprintf(sb, "    Detail: %s\n", f.Detail)
		}
		if w.verbose && f.Recommendation != "" {
			fmt.Fprintf(sb, "    Recommendation: %s\n", f.Recommendation)
		}
	}
	sb.WriteString("\n")
}

// getSeverityIndicator returns a visual indicator for the severity level.
func (w *SimpleWriter) getSeverityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

func (w *SimpleWriter) writeTitle(sb *strings.Builder, title string) {
	rule := strings.Repeat("=", 70)
	pad := max((70-len(title))/2, 0)

	sb.WriteString("\n")
	sb.WriteString(rule)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(rule)
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, name string) {
	rule := strings.Repeat("-", 70)
	sb.WriteString(rule)
	sb.WriteString("\n")
	sb.WriteString(name)
	sb.WriteString("\n")
	sb.WriteString(rule)
	sb.WriteString("\n\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by sitemirror\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
