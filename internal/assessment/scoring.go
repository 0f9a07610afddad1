package assessment

// Tier is an ordinal readiness label derived from the total score.
type Tier string

const (
	TierAIEnhanced     Tier = "AI-Enhanced"
	TierGettingStarted Tier = "Getting Started"
	TierNotReady       Tier = "Not Ready Yet"
)

const (
	topTierMin    = 21
	middleTierMin = 11
)

// Result is the immutable outcome of scoring one answer set.
type Result struct {
	Score     int            `json:"score"`
	MaxScore  int            `json:"maxScore"`
	Tier      Tier           `json:"tier"`
	Breakdown map[string]int `json:"breakdown"`
}

// TierFor maps a total score to its tier; lower bounds are inclusive.
func TierFor(score int) Tier {
	switch {
	case score >= topTierMin:
		return TierAIEnhanced
	case score >= middleTierMin:
		return TierGettingStarted
	default:
		return TierNotReady
	}
}

// Score computes the weighted score. Unknown tokens contribute 0 points.
func Score(a Answers) Result {
	a = Normalize(a)
	breakdown := make(map[string]int, len(sections))
	total := 0
	for _, s := range sections {
		pts := sectionScore(s, a.Values(s.Question))
		breakdown[s.Key] = pts
		total += pts
	}
	return Result{Score: total, MaxScore: MaxScore, Tier: TierFor(total), Breakdown: breakdown}
}

func sectionScore(s Section, tokens []string) int {
	q := questionIndex[s.Question]
	sum := 0
	for _, t := range tokens {
		if o, ok := q.option(t); ok {
			sum += o.Points
		}
	}
	if sum > s.Cap {
		return s.Cap
	}
	return sum
}

// InBounds reports whether the score lies within [0, MaxScore].
func (r Result) InBounds() bool {
	return r.Score >= 0 && r.Score <= r.MaxScore
}
