package assessment

import "github.com/samber/lo"

// painRule flags a section when its answer is empty/"none" (multi-select)
// or falls in a negative set (single-select). The table is independent of
// the point values in the catalog.
type painRule struct {
	question string
	label    string
	negative []string
}

var painRules = []painRule{
	{question: "q1", label: "AI Adoption"},
	{question: "q2", label: "Data Readiness", negative: []string{"scattered", "no_strategy"}},
	{question: "q3", label: "Team Skills", negative: []string{"basic", "none"}},
	{question: "q4", label: "Process Automation"},
	{question: "q6", label: "Leadership Buy-in", negative: []string{"neutral", "skeptical"}},
	{question: "q7", label: "Technology Infrastructure", negative: []string{"on_premise", "legacy"}},
}

// ExtractPainPoints lists the section labels flagged as gaps, in section order.
func ExtractPainPoints(a Answers) []string {
	a = Normalize(a)
	out := make([]string, 0, len(painRules))
	for _, r := range painRules {
		values := a.Values(r.question)
		var flagged bool
		if questionIndex[r.question].Arity == Multi {
			flagged = isEmptyOrNone(values)
		} else {
			flagged = len(values) == 1 && lo.Contains(r.negative, values[0])
		}
		if flagged {
			out = append(out, r.label)
		}
	}
	return out
}
