package model

import "time"

// AssetKind distinguishes mirrored images from other downloadable files.
type AssetKind string

const (
	// AssetImage is an image referenced by an <img> tag.
	AssetImage AssetKind = "image"

	// AssetFile is a document linked by an <a> tag under the file prefix.
	AssetFile AssetKind = "file"
)

// AssetRecord is the outcome of one localization attempt.
type AssetRecord struct {
	// URL is the normalized remote URL.
	URL string `json:"url"`

	// Filename is the local file name; empty when the download failed.
	Filename string `json:"filename,omitempty"`

	// Kind is image or file.
	Kind AssetKind `json:"kind"`

	// Page is the RelPath of the document that referenced the asset.
	Page string `json:"page"`

	// Bytes is the size of the local file.
	Bytes int64 `json:"bytes,omitempty"`

	// Cached reports that the file already existed locally.
	Cached bool `json:"cached"`

	// Error is the failure message; empty on success.
	Error string `json:"error,omitempty"`

	// Timestamp is when the attempt finished.
	Timestamp time.Time `json:"timestamp"`
}

// Failed reports whether the asset could not be localized.
func (a AssetRecord) Failed() bool {
	return a.Error != ""
}

// FileResult summarizes what a pass did to one document.
type FileResult struct {
	Page    string `json:"page"`
	Changed bool   `json:"changed"`
	Images  int    `json:"images"`
	Files   int    `json:"files"`
	Error   string `json:"error,omitempty"`
}

// RunReport is the result of a localize pass.
type RunReport struct {
	RunID      string        `json:"run_id"`
	Root       string        `json:"root"`
	Matcher    string        `json:"matcher"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Files      []FileResult  `json:"files"`
	Assets     []AssetRecord `json:"assets"`
}

// RunSummary holds the counters printed at the end of a run.
type RunSummary struct {
	Files        int   `json:"files"`
	FilesChanged int   `json:"files_changed"`
	FileErrors   int   `json:"file_errors"`
	Downloaded   int   `json:"downloaded"`
	Cached       int   `json:"cached"`
	Failed       int   `json:"failed"`
	Bytes        int64 `json:"bytes"`
}

// NewRunReport creates an empty report for a run over root.
func NewRunReport(runID, root, matcher string) *RunReport {
	return &RunReport{
		RunID:     runID,
		Root:      root,
		Matcher:   matcher,
		StartedAt: time.Now(),
	}
}

// AddAsset appends an asset record.
func (r *RunReport) AddAsset(rec AssetRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	r.Assets = append(r.Assets, rec)
}

// AddFile appends a file result.
func (r *RunReport) AddFile(res FileResult) {
	r.Files = append(r.Files, res)
}

// Finish stamps the end time.
func (r *RunReport) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns how long the run took, or zero while it is running.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary counts files and assets by outcome.
func (r *RunReport) Summary() RunSummary {
	s := RunSummary{Files: len(r.Files)}
	for _, f := range r.Files {
		if f.Changed {
			s.FilesChanged++
		}
		if f.Error != "" {
			s.FileErrors++
		}
	}
	for _, a := range r.Assets {
		switch {
		case a.Failed():
			s.Failed++
		case a.Cached:
			s.Cached++
			s.Bytes += a.Bytes
		default:
			s.Downloaded++
			s.Bytes += a.Bytes
		}
	}
	return s
}

// FailedAssets returns the records of assets that could not be localized.
func (r *RunReport) FailedAssets() []AssetRecord {
	var failed []AssetRecord
	for _, a := range r.Assets {
		if a.Failed() {
			failed = append(failed, a)
		}
	}
	return failed
}
