package report

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/assessment"
)

var (
	mdHeading   = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]*`)
	mdBold      = regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`)
	mdItalic    = regexp.MustCompile(`(^|[^*\w])[*_]([^*_\n]+)[*_]`)
	mdCode      = regexp.MustCompile("`([^`]*)`")
	mdLink      = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]*)\)`)
	mdBullet    = regexp.MustCompile(`(?m)^([ \t]*)[*+][ \t]+`)
	mdRule      = regexp.MustCompile(`(?m)^[ \t]*(?:-{3,}|\*{3,}|_{3,})[ \t]*$`)
	htmlTag     = regexp.MustCompile(`<[^>]*>`)
	blankStreak = regexp.MustCompile(`\n{3,}`)
)

// PlainText renders the report for the text/plain email part.
func PlainText(md string) string {
	s := StripDangerous(md)
	s = htmlTag.ReplaceAllString(s, "")
	s = mdRule.ReplaceAllString(s, "")
	s = mdHeading.ReplaceAllString(s, "")
	s = mdLink.ReplaceAllString(s, "$1 ($2)")
	s = mdBullet.ReplaceAllString(s, "$1- ")
	s = mdBold.ReplaceAllString(s, "$2")
	s = mdItalic.ReplaceAllString(s, "$1$2")
	s = mdCode.ReplaceAllString(s, "$1")
	s = blankStreak.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Your AI readiness report</title></head>
<body style="font-family: Arial, sans-serif; color: #222; max-width: 640px; margin: 0 auto;">
<h1>AI readiness report{{if .Company}} for {{.Company}}{{end}}</h1>
<p><strong>Score:</strong> {{.Score}} / {{.MaxScore}}<br><strong>Tier:</strong> {{.Tier}}</p>
<table style="border-collapse: collapse;">
{{range .Sections}}<tr><td style="padding: 2px 12px 2px 0;">{{.Label}}</td><td>{{.Points}} / {{.Cap}}</td></tr>
{{end}}</table>
<hr>
{{.Report}}
</body>
</html>
`))

type emailSection struct {
	Label  string
	Points int
	Cap    int
}

// EmailHTML wraps an already sanitized report in the email layout.
func EmailHTML(company string, res assessment.Result, safeHTML string) (string, error) {
	secs := assessment.Sections()
	rows := make([]emailSection, 0, len(secs))
	for _, s := range secs {
		rows = append(rows, emailSection{Label: s.Label, Points: res.Breakdown[s.Key], Cap: s.Cap})
	}
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, map[string]any{
		"Company":  strings.TrimSpace(company),
		"Score":    res.Score,
		"MaxScore": res.MaxScore,
		"Tier":     string(res.Tier),
		"Sections": rows,
		// safeHTML has been through Sanitize
		"Report": template.HTML(safeHTML),
	})
	if err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}
