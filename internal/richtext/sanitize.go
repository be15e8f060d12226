package richtext

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	policy   = newPolicy()
	markdown = goldmark.New()

	htmlTagPattern = regexp.MustCompile(`<(?:[a-zA-Z][a-zA-Z0-9]*|/[a-zA-Z][a-zA-Z0-9]*)[^>]*>`)
)

// newPolicy allows what the editor produces plus the markup goldmark emits
// for plain content.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "div", "span", "br", "b", "strong", "i", "em", "u",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "blockquote", "code", "pre", "hr")
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	p.AllowStyles("font-size").Matching(regexp.MustCompile(`^\d{1,2}(?:\.\d+)?(?:px|rem|em)$`)).Globally()
	p.AllowStyles("font-weight").Matching(regexp.MustCompile(`^(?:normal|bold|[1-9]00)$`)).Globally()
	p.AllowStyles("margin").Matching(regexp.MustCompile(`^[0-9.]+(?:px|rem|em)?(?: [0-9.]+(?:px|rem|em)?){0,3}$`)).Globally()
	p.AllowStyles("text-align").Matching(regexp.MustCompile(`^(?:left|center|right|justify)$`)).Globally()
	return p
}

// Sanitize strips everything outside the editor's vocabulary.
func Sanitize(fragment string) string {
	return policy.Sanitize(fragment)
}

// LooksLikeHTML reports whether s contains at least one tag.
func LooksLikeHTML(s string) bool {
	return htmlTagPattern.MatchString(s)
}

// Render prepares stored content for a page. HTML is sanitized; anything
// else is treated as markdown first.
func Render(content string) template.HTML {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if LooksLikeHTML(content) {
		return template.HTML(Sanitize(content))
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(Sanitize(buf.String()))
}
