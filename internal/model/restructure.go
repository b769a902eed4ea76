package model

// MovedPage describes one project page moved into its own directory.
type MovedPage struct {
	// Project is the project identifier, e.g. "hot-plate-jig".
	Project string `json:"project"`

	// Title is the display name derived from the identifier.
	Title string `json:"title"`

	// From and To are paths relative to the site root.
	From string `json:"from"`
	To   string `json:"to"`

	// Replacements counts rewritten references.
	Replacements int `json:"replacements"`
}

// RootPageUpdate describes the link rewrites applied to a top level page.
type RootPageUpdate struct {
	Page         string `json:"page"`
	Replacements int    `json:"replacements"`
}

// RestructureReport is the result of a restructure pass.
type RestructureReport struct {
	Root      string           `json:"root"`
	DryRun    bool             `json:"dry_run"`
	Moved     []MovedPage      `json:"moved"`
	RootPages []RootPageUpdate `json:"root_pages"`
	Errors    []string         `json:"errors,omitempty"`
}

// TotalReplacements sums the rewritten references over all pages.
func (r *RestructureReport) TotalReplacements() int {
	total := 0
	for _, m := range r.Moved {
		total += m.Replacements
	}
	for _, p := range r.RootPages {
		total += p.Replacements
	}
	return total
}
