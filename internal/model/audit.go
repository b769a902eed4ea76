package model

import (
	"sort"
	"time"
)

// Finding represents a single audit finding.
type Finding struct {
	// Type is the finding type identifier, one of the Finding* constants.
	Type string `json:"type"`

	// Severity is the risk level.
	Severity Severity `json:"severity"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text"`

	// Page is the page or image the finding was discovered in.
	Page string `json:"page"`

	// Value is the offending reference or metadata value.
	Value string `json:"value,omitempty"`

	// Detail adds context such as the EXIF tag name.
	Detail string `json:"detail,omitempty"`

	// Impact explains why the finding matters.
	Impact string `json:"impact,omitempty"`

	// Recommendation provides guidance on how to address the finding.
	Recommendation string `json:"recommendation,omitempty"`
}

// AuditReport is the result of an audit pass.
type AuditReport struct {
	Root            string    `json:"root"`
	DateAudited     time.Time `json:"date_audited"`
	PagesScanned    int       `json:"pages_scanned"`
	ImagesInspected int       `json:"images_inspected"`
	Findings        []Finding `json:"findings"`

	CriticalCount int `json:"critical_count"`
	HighCount     int `json:"high_count"`
	MediumCount   int `json:"medium_count"`
	LowCount      int `json:"low_count"`
	InfoCount     int `json:"info_count"`
}

// NewAuditReport creates an empty report for root.
func NewAuditReport(root string) *AuditReport {
	return &AuditReport{
		Root:        root,
		DateAudited: time.Now(),
	}
}

// AddFinding records a finding, filling severity and guidance from the
// finding type.
func (r *AuditReport) AddFinding(findingType, page, value, detail string) {
	info := GetFindingInfo(findingType)
	r.Findings = append(r.Findings, Finding{
		Type:           findingType,
		Severity:       info.Severity,
		SeverityText:   info.Severity.String(),
		Page:           page,
		Value:          value,
		Detail:         detail,
		Impact:         info.Impact,
		Recommendation: info.Recommendation,
	})
}

// Finalize sorts findings by severity, most severe first, then by page,
// and updates the per-severity counters.
func (r *AuditReport) Finalize() {
	sort.SliceStable(r.Findings, func(i, j int) bool {
		a, b := r.Findings[i], r.Findings[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		return a.Value < b.Value
	})

	r.CriticalCount, r.HighCount, r.MediumCount, r.LowCount, r.InfoCount = 0, 0, 0, 0, 0
	for _, f := range r.Findings {
		switch f.Severity {
		case SeverityCritical:
			r.CriticalCount++
		case SeverityHigh:
			r.HighCount++
		case SeverityMedium:
			r.MediumCount++
		case SeverityLow:
			r.LowCount++
		case SeverityInfo:
			r.InfoCount++
		}
	}
}

// HasFindings returns true if there are any findings.
func (r *AuditReport) HasFindings() bool {
	return len(r.Findings) > 0
}

// FindingsBySeverity returns findings filtered by severity.
func (r *AuditReport) FindingsBySeverity(severity Severity) []Finding {
	var result []Finding
	for _, f := range r.Findings {
		if f.Severity == severity {
			result = append(result, f)
		}
	}
	return result
}
