package report

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var dangerousElements = []string{
	"script", "iframe", "object", "embed", "form", "input", "button",
	"textarea", "select", "style", "link", "meta", "base",
}

var (
	pairedElementPatterns = func() []*regexp.Regexp {
		out := make([]*regexp.Regexp, 0, len(dangerousElements))
		for _, el := range dangerousElements {
			out = append(out, regexp.MustCompile(`(?is)<\s*`+el+`\b[^>]*>.*?<\s*/\s*`+el+`\s*>`))
		}
		return out
	}()
	loneElementPattern = regexp.MustCompile(`(?i)<\s*/?\s*(?:` + strings.Join(dangerousElements, "|") + `)\b[^>]*>?`)
	schemePattern      = regexp.MustCompile(`(?i)(?:java|vb)script\s*:`)
	dataURLPattern     = regexp.MustCompile(`(?i)\bdata:[a-z]+/[a-z0-9.+-]+[^\s"'<>)]*`)
	eventAttrPattern   = regexp.MustCompile(`(?i)([\s/"'])on[a-z]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]*)`)
	expressionPattern  = regexp.MustCompile(`(?i)expression\s*\(`)
	mozBindingPattern  = regexp.MustCompile(`(?i)-moz-binding`)
)

// StripDangerous removes executable markup from raw model output. Patterns
// are applied repeatedly until the text stops changing, so nested payloads
// such as "<scr<script>ipt>" cannot reassemble.
func StripDangerous(s string) string {
	for {
		next := stripOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func stripOnce(s string) string {
	for _, re := range pairedElementPatterns {
		s = re.ReplaceAllString(s, "")
	}
	s = loneElementPattern.ReplaceAllString(s, "")
	s = schemePattern.ReplaceAllString(s, "")
	s = dataURLPattern.ReplaceAllString(s, "")
	s = eventAttrPattern.ReplaceAllString(s, "$1")
	s = expressionPattern.ReplaceAllString(s, "")
	return mozBindingPattern.ReplaceAllString(s, "")
}

var (
	cssCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)
	cssHexEscape      = regexp.MustCompile(`\\([0-9a-fA-F]{1,6})\s?`)
	cssCharEscape     = regexp.MustCompile(`\\(.)`)
	cssWhitespace     = regexp.MustCompile(`\s+`)
)

var forbiddenCSS = []string{"expression", "url(", "javascript:", "vbscript:", "behavior", "-moz-binding"}

// FilterStyle keeps only the declarations of an inline style attribute that
// are free of script-bearing constructs. Each declaration is decoded until
// stable before it is checked.
func FilterStyle(style string) string {
	kept := make([]string, 0, 4)
	for _, decl := range strings.Split(cssCommentPattern.ReplaceAllString(style, ""), ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" || !strings.Contains(decl, ":") {
			continue
		}
		if !cssValueSafe(decl) {
			continue
		}
		kept = append(kept, decl)
	}
	return strings.Join(kept, "; ")
}

func cssValueSafe(v string) bool {
	decoded := decodeCSS(v)
	for _, bad := range forbiddenCSS {
		if strings.Contains(decoded, bad) {
			return false
		}
	}
	return true
}

func decodeCSS(v string) string {
	for {
		next := cssCommentPattern.ReplaceAllString(v, "")
		next = cssHexEscape.ReplaceAllStringFunc(next, func(m string) string {
			hex := strings.TrimSpace(strings.TrimPrefix(m, `\`))
			n, err := strconv.ParseUint(hex, 16, 32)
			if err != nil || n == 0 || n > 0x10FFFF {
				return ""
			}
			return string(rune(n))
		})
		next = cssCharEscape.ReplaceAllString(next, "$1")
		if next == v {
			break
		}
		v = next
	}
	return cssWhitespace.ReplaceAllString(strings.ToLower(v), "")
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func reportPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements(
			"p", "br", "hr", "h1", "h2", "h3", "h4", "h5", "h6",
			"strong", "b", "em", "i", "u", "s", "del", "blockquote",
			"ul", "ol", "li", "code", "pre", "span", "div",
			"table", "thead", "tbody", "tr", "th", "td",
		)
		p.AllowAttrs("href", "title").OnElements("a")
		p.AllowURLSchemes("http", "https", "mailto")
		p.RequireParseableURLs(true)
		p.AllowAttrs("align").Matching(regexp.MustCompile(`^(?:left|right|center)$`)).OnElements("th", "td")
		p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")
		p.AllowAttrs("style").OnElements("p", "span", "div", "td", "th")
		p.AllowStyles("color", "background-color", "text-align", "font-weight", "font-style", "text-decoration").
			MatchingHandler(cssValueSafe).
			OnElements("p", "span", "div", "td", "th")
		policy = p
	})
	return policy
}

// Rebuild re-serializes HTML through the tag and attribute allow-list.
// Unknown tags are dropped and their text content is kept.
func Rebuild(s string) string {
	return reportPolicy().Sanitize(s)
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
)

// ToHTML converts markdown to HTML without any sanitisation.
func ToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// maxSanitizePasses bounds the strip/rebuild loop in Sanitize.
const maxSanitizePasses = 8

// Sanitize turns untrusted markdown into allow-listed HTML. Rebuild decodes
// character references, so the stage-one patterns run again over its output
// until strip and rebuild both leave the HTML unchanged.
func Sanitize(md string) string {
	stripped := StripDangerous(md)
	rendered, err := ToHTML(stripped)
	if err != nil {
		// fall back to the stripped text; Rebuild still escapes it
		rendered = stripped
	}
	out := Rebuild(rendered)
	for i := 0; i < maxSanitizePasses; i++ {
		next := Rebuild(StripDangerous(out))
		if next == out {
			break
		}
		out = next
	}
	return out
}
