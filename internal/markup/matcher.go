package markup

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// TagMatcher finds the start tags of one element in a document and
// replaces each with the string returned by fn. Everything outside the
// matched tags is preserved byte for byte, and a tag for which fn returns
// its input is preserved as well.
type TagMatcher interface {
	ReplaceTags(doc, tagName string, fn func(tag string) string) string
}

// Matcher names accepted by NewMatcher.
const (
	MatcherRegex     = "regex"
	MatcherTokenizer = "tokenizer"
)

// NewMatcher returns the TagMatcher registered under name.
func NewMatcher(name string) (TagMatcher, error) {
	switch name {
	case MatcherRegex, "":
		return NewRegexMatcher(), nil
	case MatcherTokenizer:
		return TokenizerMatcher{}, nil
	default:
		return nil, fmt.Errorf("unknown matcher %q", name)
	}
}

// RegexMatcher matches tags with a pattern of the form <name ...>. A tag
// runs to the first '>', so a quoted attribute value containing '>' ends
// the match early, and tags inside comments or scripts are matched too.
// Use TokenizerMatcher where that matters.
type RegexMatcher struct {
	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// NewRegexMatcher creates a RegexMatcher.
func NewRegexMatcher() *RegexMatcher {
	return &RegexMatcher{patterns: make(map[string]*regexp.Regexp)}
}

// ReplaceTags implements TagMatcher.
func (m *RegexMatcher) ReplaceTags(doc, tagName string, fn func(string) string) string {
	return m.pattern(tagName).ReplaceAllStringFunc(doc, fn)
}

func (m *RegexMatcher) pattern(tagName string) *regexp.Regexp {
	name := strings.ToLower(tagName)

	m.mu.Lock()
	defer m.mu.Unlock()

	if re, ok := m.patterns[name]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)<` + regexp.QuoteMeta(name) + `(?:\s[^>]*)?>`)
	m.patterns[name] = re
	return re
}

// TokenizerMatcher walks the document with the x/net/html tokenizer. Only
// real start tags are offered to fn; comments, script bodies and quoted
// attribute values are handled the way a browser would. The raw bytes of
// every token are copied, so untouched markup is not normalized.
//
// The tokenizer reads <noscript> content as raw text. Fallback images live
// there, so that text is matched recursively.
type TokenizerMatcher struct{}

// ReplaceTags implements TagMatcher.
func (TokenizerMatcher) ReplaceTags(doc, tagName string, fn func(string) string) string {
	want := strings.ToLower(tagName)
	z := html.NewTokenizer(strings.NewReader(doc))

	var b strings.Builder
	b.Grow(len(doc))

	inNoscript := false
	for {
		tt := z.Next()
		// Raw must be copied before TagName, which lower-cases the
		// tokenizer's buffer in place.
		raw := string(z.Raw())

		afterNoscript := inNoscript
		inNoscript = false

		switch tt {
		case html.ErrorToken:
			b.WriteString(raw)
			if z.Err() == io.EOF {
				return b.String()
			}
			// The tokenizer only fails on read errors, which a
			// strings.Reader never returns.
			return doc
		case html.TextToken:
			if afterNoscript {
				b.WriteString(TokenizerMatcher{}.ReplaceTags(raw, tagName, fn))
				continue
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			inNoscript = tt == html.StartTagToken && string(name) == "noscript"
			if string(name) == want {
				b.WriteString(fn(raw))
				continue
			}
		}
		b.WriteString(raw)
	}
}
