package markup

import (
	"regexp"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// attrValue matches a double quoted, single quoted or unquoted value.
const attrValue = `(?:"[^"]*"|'[^']*'|[^\s"'=<>` + "`" + `]+)`

// attrPattern holds the expressions for one attribute name. Both require
// whitespace before the name, so "src" never matches inside "data-src",
// and an '=' or a delimiter after it, so "src" never matches "srcset".
type attrPattern struct {
	// assign matches " name=value"; group 1 is the leading whitespace,
	// group 2 the value.
	assign *regexp.Regexp

	// remove matches the attribute with all leading whitespace, with or
	// without a value; group 1 is the delimiter that follows it.
	remove *regexp.Regexp
}

var attrPatterns sync.Map // lower-cased name -> *attrPattern

func patternFor(name string) *attrPattern {
	key := strings.ToLower(name)
	if p, ok := attrPatterns.Load(key); ok {
		return p.(*attrPattern) //nolint:forcetypeassert // only *attrPattern is stored
	}
	quoted := regexp.QuoteMeta(key)
	p := &attrPattern{
		assign: regexp.MustCompile(`(?i)(\s)` + quoted + `\s*=\s*(` + attrValue + `)`),
		remove: regexp.MustCompile(`(?i)\s+` + quoted + `(?:\s*=\s*` + attrValue + `)?([\s/>])`),
	}
	actual, _ := attrPatterns.LoadOrStore(key, p)
	return actual.(*attrPattern) //nolint:forcetypeassert // only *attrPattern is stored
}

// Attr returns the value of attribute name in the raw start tag, with
// quotes removed and character references decoded. ok is false when the
// attribute is absent or has no value.
func Attr(tag, name string) (value string, ok bool) {
	m := patternFor(name).assign.FindStringSubmatch(tag)
	if m == nil {
		return "", false
	}
	return html.UnescapeString(unquote(m[2])), true
}

// SetAttr sets attribute name to value in the raw start tag. An existing
// attribute keeps its position; otherwise the attribute is inserted right
// after the tag name. value must not contain a double quote.
func SetAttr(tag, name, value string) string {
	p := patternFor(name)
	replacement := name + `="` + value + `"`

	if loc := p.assign.FindStringSubmatchIndex(tag); loc != nil {
		// Keep the leading whitespace (group 1), replace the rest.
		return tag[:loc[3]] + replacement + tag[loc[1]:]
	}

	insertAt := tagNameEnd(tag)
	return tag[:insertAt] + " " + replacement + tag[insertAt:]
}

// RemoveAttr deletes every occurrence of attribute name, together with its
// leading whitespace, from the raw start tag.
func RemoveAttr(tag, name string) string {
	return patternFor(name).remove.ReplaceAllString(tag, "$1")
}

// tagNameEnd returns the index just past the element name of a raw start tag.
func tagNameEnd(tag string) int {
	i := strings.IndexByte(tag, '<') + 1
	for i < len(tag) {
		c := tag[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '/' || c == '>' {
			break
		}
		i++
	}
	return i
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
