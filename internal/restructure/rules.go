package restructure

import (
	"path"
	"strings"
)

// rule is a literal substitution. Rules are applied in order, each over
// the output of the previous one.
type rule struct {
	from, to string
}

func apply(content string, rules []rule) (string, int) {
	total := 0
	for _, rl := range rules {
		n := strings.Count(content, rl.from)
		if n == 0 {
			continue
		}
		content = strings.ReplaceAll(content, rl.from, rl.to)
		total += n
	}
	return content, total
}

// projectRules are applied to a page moving from portfolio/foo.html to
// portfolio/foo/index.html, one directory deeper.
func (r *Restructurer) projectRules() []rule {
	assets := r.assetsDir + "/"
	deep := "../../" + assets

	rules := []rule{
		{`href="../` + assets, `href="` + deep},
		{`href="` + assets, `href="` + deep},
		{`src="../` + assets, `src="` + deep},
		{`src="` + assets, `src="` + deep},
	}
	for _, page := range r.rootPages {
		rules = append(rules, rule{`href="../` + page + `"`, `href="../../` + page + `"`})
	}
	for _, p := range r.projects {
		rules = append(rules, rule{`href="` + p + `.html"`, `href="../` + p + `/"`})
	}
	return rules
}

// rootRules are applied to the top level pages: project links become
// directory links, and the builder's extensionless navigation links become
// links to the root page files.
func (r *Restructurer) rootRules() []rule {
	var rules []rule
	for _, p := range r.projects {
		dirLink := `href="` + r.portfolioDir + "/" + p + `/"`
		rules = append(rules,
			rule{`href="/` + r.portfolioDir + "/" + p + `"`, dirLink},
			rule{`href="` + r.portfolioDir + "/" + p + `.html"`, dirLink},
		)
	}

	home := ""
	for _, page := range r.rootPages {
		name := strings.TrimSuffix(page, path.Ext(page))
		if name == "index" {
			home = page
			continue
		}
		rules = append(rules, rule{`href="/` + name + `"`, `href="` + page + `"`})
	}
	if home != "" {
		rules = append(rules, rule{`href="/"`, `href="` + home + `"`})
	}
	return rules
}
