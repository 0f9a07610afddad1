package assessment

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Profile is the free-text context sent alongside the answers.
type Profile struct {
	Company string
	Sector  string
	Region  string
}

const (
	notSpecified = "not specified"
	noneLabel    = "none"
	// ReportWordLimit bounds the length of the generated report.
	ReportWordLimit = 600
)

// BuildPrompt renders the instruction for the report-generation call.
func BuildPrompt(res Result, a Answers, p Profile) string {
	a = Normalize(a)
	var b strings.Builder

	b.WriteString("You are an AI adoption consultant for small and medium-sized businesses. ")
	b.WriteString("Write a personalised AI readiness report for the business described below.\n\n")

	b.WriteString("## Business\n")
	fmt.Fprintf(&b, "- Company: %s\n", orDefault(p.Company, notSpecified))
	fmt.Fprintf(&b, "- Sector: %s\n", orDefault(p.Sector, notSpecified))
	fmt.Fprintf(&b, "- Region: %s\n\n", orDefault(p.Region, notSpecified))

	b.WriteString("## Assessment result\n")
	fmt.Fprintf(&b, "- Score: %d out of %d\n", res.Score, res.MaxScore)
	fmt.Fprintf(&b, "- Readiness tier: %s\n", res.Tier)
	for _, s := range sections {
		fmt.Fprintf(&b, "- %s: %d/%d\n", s.Label, res.Breakdown[s.Key], s.Cap)
	}
	b.WriteString("\n## Answers\n")
	for _, q := range questions {
		fmt.Fprintf(&b, "- %s %s\n", q.Prompt, describeAnswer(q, a.Values(q.ID)))
	}

	b.WriteString("\n## Instructions\n")
	b.WriteString("Structure the report in exactly these numbered sections:\n")
	b.WriteString("1. Executive summary of the readiness level\n")
	b.WriteString("2. Strengths to build on\n")
	b.WriteString("3. Key gaps, addressing the stated pain points\n")
	b.WriteString("4. Three prioritised recommendations matched to the stated urgency\n")
	b.WriteString("5. Suggested next steps for the next 90 days\n")
	fmt.Fprintf(&b, "Keep the report under %d words. Use plain markdown (headings, bold, bullet lists) and no HTML.\n", ReportWordLimit)
	return b.String()
}

func describeAnswer(q Question, tokens []string) string {
	if len(tokens) == 0 {
		if q.Arity == Multi {
			return noneLabel
		}
		return notSpecified
	}
	return strings.Join(lo.Map(tokens, func(t string, _ int) string { return q.Label(t) }), ", ")
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
