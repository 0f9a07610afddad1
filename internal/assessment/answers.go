package assessment

import (
	"strings"

	"github.com/samber/lo"
)

// Answers is the fixed-shape answer set collected by the questionnaire.
// q1, q4 and q8 are multi-select; the rest are single-select.
type Answers struct {
	Q1 []string `json:"q1"`
	Q2 string   `json:"q2"`
	Q3 string   `json:"q3"`
	Q4 []string `json:"q4"`
	Q5 string   `json:"q5"`
	Q6 string   `json:"q6"`
	Q7 string   `json:"q7"`
	Q8 []string `json:"q8"`
	Q9 string   `json:"q9"`
}

// Normalize trims tokens, drops duplicates and collapses any multi-select
// that includes "none" down to ["none"].
func Normalize(a Answers) Answers {
	return Answers{
		Q1: normalizeMulti(a.Q1),
		Q2: strings.TrimSpace(a.Q2),
		Q3: strings.TrimSpace(a.Q3),
		Q4: normalizeMulti(a.Q4),
		Q5: strings.TrimSpace(a.Q5),
		Q6: strings.TrimSpace(a.Q6),
		Q7: strings.TrimSpace(a.Q7),
		Q8: normalizeMulti(a.Q8),
		Q9: strings.TrimSpace(a.Q9),
	}
}

func normalizeMulti(in []string) []string {
	tokens := lo.Uniq(lo.FilterMap(in, func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	}))
	if len(tokens) > 1 && lo.Contains(tokens, NoneToken) {
		return []string{NoneToken}
	}
	return tokens
}

// Values returns the selected tokens of a question; single-select answers
// yield at most one element.
func (a Answers) Values(id string) []string {
	switch id {
	case "q1":
		return a.Q1
	case "q4":
		return a.Q4
	case "q8":
		return a.Q8
	}
	var v string
	switch id {
	case "q2":
		v = a.Q2
	case "q3":
		v = a.Q3
	case "q5":
		v = a.Q5
	case "q6":
		v = a.Q6
	case "q7":
		v = a.Q7
	case "q9":
		v = a.Q9
	}
	if v == "" {
		return nil
	}
	return []string{v}
}

func isEmptyOrNone(tokens []string) bool {
	return len(tokens) == 0 || (len(tokens) == 1 && tokens[0] == NoneToken)
}
