package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/thlarsen/sitemirror/internal/model"
)

// MarkdownWriter outputs reports in GitHub-flavored Markdown, built with
// nao1215/markdown. It is meant to be committed next to the migrated site
// or pasted into an issue.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteRun outputs the localize report in Markdown format.
func (w *MarkdownWriter) WriteRun(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	s := report.Summary()

	md.H1("Localize Report")
	md.PlainText("")

	rows := [][]string{
		{"Run ID", "`" + report.RunID + "`"},
		{"Site Root", "`" + report.Root + "`"},
		{"Matcher", report.Matcher},
		{"Started", report.StartedAt.Format(dateLayout)},
	}
	if d := report.Duration(); d > 0 {
		rows = append(rows, []string{"Duration", formatDuration(d)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Pages processed", strconv.Itoa(s.Files)},
			{"Pages changed", strconv.Itoa(s.FilesChanged)},
			{"Page errors", strconv.Itoa(s.FileErrors)},
			{"Downloaded", strconv.Itoa(s.Downloaded)},
			{"Already local", strconv.Itoa(s.Cached)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"Local size", formatBytes(s.Bytes)},
		},
	})
	md.PlainText("")

	if total := s.Downloaded + s.Cached + s.Failed; total > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Asset Outcomes"),
			piechart.WithShowData(true),
		)
		if s.Downloaded > 0 {
			chart.LabelAndIntValue("Downloaded", uint64(s.Downloaded))
		}
		if s.Cached > 0 {
			chart.LabelAndIntValue("Already local", uint64(s.Cached))
		}
		if s.Failed > 0 {
			chart.LabelAndIntValue("Failed", uint64(s.Failed))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case s.Failed > 0:
		md.Warningf("%d asset(s) could not be downloaded. Their references still point at the remote host.", s.Failed)
	case s.FileErrors > 0:
		md.Warningf("%d page(s) could not be processed.", s.FileErrors)
	default:
		md.Tip("Every remote reference was localized.")
	}
	md.PlainText("")

	if failed := report.FailedAssets(); len(failed) > 0 {
		md.H2("Failed Assets")
		md.PlainText("")
		rows := make([][]string, len(failed))
		for i, a := range failed {
			rows[i] = []string{string(a.Kind), truncateString(a.URL, 60), a.Page, truncateString(a.Error, 60)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Kind", "URL", "Page", "Error"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(report.Files) > 0 {
		rows := make([][]string, len(report.Files))
		for i, f := range report.Files {
			changed := "no"
			if f.Changed {
				changed = "yes"
			}
			errText := f.Error
			if errText == "" {
				errText = "-"
			}
			rows[i] = []string{f.Page, changed, strconv.Itoa(f.Images), strconv.Itoa(f.Files), truncateString(errText, 60)}
		}
		md.H2("Pages")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Page", "Changed", "Images", "Files", "Error"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteRestructure outputs the restructure report in Markdown format.
func (w *MarkdownWriter) WriteRestructure(report *model.RestructureReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Restructure Report")
	md.PlainText("")
	if report.DryRun {
		md.Note("Dry run: no file was changed.")
		md.PlainText("")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site Root", "`" + report.Root + "`"},
			{"Pages moved", strconv.Itoa(len(report.Moved))},
			{"Replacements", strconv.Itoa(report.TotalReplacements())},
		},
	})
	md.PlainText("")

	md.H2("Project Pages")
	md.PlainText("")
	if len(report.Moved) == 0 {
		md.PlainText("No project pages to move.")
	} else {
		rows := make([][]string, len(report.Moved))
		for i, m := range report.Moved {
			rows[i] = []string{m.Title, "`" + m.From + "`", "`" + m.To + "`", strconv.Itoa(m.Replacements)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Project", "From", "To", "Replacements"},
			Rows:   rows,
		})
	}
	md.PlainText("")

	if len(report.RootPages) > 0 {
		items := make([]string, len(report.RootPages))
		for i, p := range report.RootPages {
			items[i] = "`" + p.Page + "`: " + strconv.Itoa(p.Replacements) + " replacements"
		}
		md.H2("Root Pages")
		md.PlainText("")
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(report.Errors) > 0 {
		md.Cautionf("%d page(s) could not be restructured.", len(report.Errors))
		md.PlainText("")
		md.BulletList(report.Errors...)
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteAudit outputs the audit report in Markdown format.
func (w *MarkdownWriter) WriteAudit(report *model.AuditReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Audit Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site Root", "`" + report.Root + "`"},
			{"Audit Date", report.DateAudited.Format(dateLayout)},
			{"Pages Scanned", strconv.Itoa(report.PagesScanned)},
			{"Images Inspected", strconv.Itoa(report.ImagesInspected)},
		},
	})
	md.PlainText("")

	md.H2("Severity Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(report.CriticalCount)},
			{"🟠 High", strconv.Itoa(report.HighCount)},
			{"🟡 Medium", strconv.Itoa(report.MediumCount)},
			{"🔵 Low", strconv.Itoa(report.LowCount)},
			{"⚪ Info", strconv.Itoa(report.InfoCount)},
			{"**Total**", "**" + strconv.Itoa(len(report.Findings)) + "**"},
		},
	})
	md.PlainText("")

	switch {
	case report.CriticalCount > 0:
		md.Cautionf("%d critical finding(s) require immediate attention.", report.CriticalCount)
	case report.HighCount > 0:
		md.Warningf("%d high severity finding(s) should be fixed before publishing.", report.HighCount)
	case report.MediumCount > 0:
		md.Importantf("%d finding(s) show the site still depends on the old host.", report.MediumCount)
	case report.HasFindings():
		md.Note("Only low severity and informational findings detected.")
	default:
		md.Tip("The site is self-contained.")
	}
	md.PlainText("")

	md.H2("Findings")
	md.PlainText("")
	if !report.HasFindings() {
		md.PlainText("No findings.")
		md.PlainText("")
	}

	headers := map[model.Severity]string{
		model.SeverityCritical: "### 🔴 Critical",
		model.SeverityHigh:     "### 🟠 High",
		model.SeverityMedium:   "### 🟡 Medium",
		model.SeverityLow:      "### 🔵 Low",
		model.SeverityInfo:     "### ⚪ Info",
	}
	for _, sev := range severityOrder {
		findings := report.FindingsBySeverity(sev)
		if len(findings) == 0 {
			continue
		}

		md.PlainText(headers[sev])
		md.PlainText("")

		rows := make([][]string, len(findings))
		for i, f := range findings {
			rows[i] = []string{
				f.Type,
				"`" + f.Page + "`",
				truncateString(orDash(f.Value), 50),
				truncateString(orDash(f.Recommendation), 60),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Type", "Page", "Value", "Recommendation"},
			Rows:   rows,
		})
		md.PlainText("")

		for _, f := range findings {
			if f.Detail != "" {
				md.Details(f.Type+" in "+f.Page, f.Detail)
			}
		}
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by sitemirror*")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
