package assessment

// Arity describes whether a question takes one token or a set of tokens.
type Arity int

const (
	Single Arity = iota
	Multi
)

// NoneToken is the "none of these" option on multi-select questions.
const NoneToken = "none"

// Option is one selectable answer token.
type Option struct {
	Token  string `json:"token"`
	Label  string `json:"label"`
	Points int    `json:"points"`
}

// Question is a catalog entry. Section is empty for unscored questions.
type Question struct {
	ID         string   `json:"id"`
	Prompt     string   `json:"prompt"`
	Arity      Arity    `json:"arity"`
	MaxEntries int      `json:"maxEntries,omitempty"`
	Section    string   `json:"section,omitempty"`
	Options    []Option `json:"options"`
}

// Section is one of the seven scored question groups.
type Section struct {
	Key      string
	Label    string
	Question string
	Cap      int
}

var sections = []Section{
	{Key: "aiAdoption", Label: "AI Adoption", Question: "q1", Cap: 5},
	{Key: "dataReadiness", Label: "Data Readiness", Question: "q2", Cap: 5},
	{Key: "teamSkills", Label: "Team Skills", Question: "q3", Cap: 4},
	{Key: "processAutomation", Label: "Process Automation", Question: "q4", Cap: 4},
	{Key: "budget", Label: "Budget & Investment", Question: "q5", Cap: 4},
	{Key: "leadership", Label: "Leadership Buy-in", Question: "q6", Cap: 4},
	{Key: "infrastructure", Label: "Technology Infrastructure", Question: "q7", Cap: 3},
}

var questions = []Question{
	{
		ID: "q1", Prompt: "Which AI tools does your business use today?", Arity: Multi, MaxEntries: 6, Section: "aiAdoption",
		Options: []Option{
			{Token: "chatbots", Label: "Chatbots", Points: 1},
			{Token: "content_generation", Label: "Content generation", Points: 1},
			{Token: "data_analysis", Label: "Data analysis", Points: 1},
			{Token: "automation", Label: "Workflow automation", Points: 1},
			{Token: "customer_service", Label: "Customer service tools", Points: 1},
			{Token: "coding_assistants", Label: "Coding assistants", Points: 1},
			{Token: NoneToken, Label: "None yet", Points: 0},
		},
	},
	{
		ID: "q2", Prompt: "How is your business data organised?", Arity: Single, Section: "dataReadiness",
		Options: []Option{
			{Token: "centralized", Label: "Centralised and well maintained", Points: 5},
			{Token: "partially_organized", Label: "Partially organised", Points: 3},
			{Token: "scattered", Label: "Scattered across tools and spreadsheets", Points: 1},
			{Token: "no_strategy", Label: "No data strategy", Points: 0},
		},
	},
	{
		ID: "q3", Prompt: "How would you rate your team's AI skills?", Arity: Single, Section: "teamSkills",
		Options: []Option{
			{Token: "advanced", Label: "Advanced", Points: 4},
			{Token: "intermediate", Label: "Intermediate", Points: 3},
			{Token: "basic", Label: "Basic", Points: 1},
			{Token: "none", Label: "No AI skills", Points: 0},
		},
	},
	{
		ID: "q4", Prompt: "Which processes are already automated?", Arity: Multi, MaxEntries: 5, Section: "processAutomation",
		Options: []Option{
			{Token: "invoicing", Label: "Invoicing", Points: 1},
			{Token: "reporting", Label: "Reporting", Points: 1},
			{Token: "scheduling", Label: "Scheduling", Points: 1},
			{Token: "marketing", Label: "Marketing", Points: 1},
			{Token: "customer_support", Label: "Customer support", Points: 1},
			{Token: NoneToken, Label: "None", Points: 0},
		},
	},
	{
		ID: "q5", Prompt: "What budget is available for AI initiatives?", Arity: Single, Section: "budget",
		Options: []Option{
			{Token: "dedicated", Label: "Dedicated AI budget", Points: 4},
			{Token: "flexible", Label: "Flexible budget for the right project", Points: 3},
			{Token: "limited", Label: "Limited budget", Points: 1},
			{Token: "none", Label: "No budget", Points: 0},
		},
	},
	{
		ID: "q6", Prompt: "How does leadership view AI adoption?", Arity: Single, Section: "leadership",
		Options: []Option{
			{Token: "champion", Label: "Actively championing it", Points: 4},
			{Token: "supportive", Label: "Supportive", Points: 3},
			{Token: "neutral", Label: "Neutral", Points: 1},
			{Token: "skeptical", Label: "Skeptical", Points: 0},
		},
	},
	{
		ID: "q7", Prompt: "What does your technology infrastructure look like?", Arity: Single, Section: "infrastructure",
		Options: []Option{
			{Token: "cloud_native", Label: "Cloud native", Points: 3},
			{Token: "hybrid", Label: "Hybrid cloud and on-premise", Points: 2},
			{Token: "on_premise", Label: "On-premise", Points: 1},
			{Token: "legacy", Label: "Legacy systems", Points: 0},
		},
	},
	{
		ID: "q8", Prompt: "What are your biggest operational pain points?", Arity: Multi, MaxEntries: 3,
		Options: []Option{
			{Token: "manual_data_entry", Label: "Manual data entry"},
			{Token: "slow_reporting", Label: "Slow reporting"},
			{Token: "customer_response_time", Label: "Customer response time"},
			{Token: "inventory_management", Label: "Inventory management"},
			{Token: "hiring", Label: "Hiring and onboarding"},
			{Token: "compliance", Label: "Compliance and paperwork"},
			{Token: NoneToken, Label: "None"},
		},
	},
	{
		ID: "q9", Prompt: "How soon do you want to adopt AI?", Arity: Single,
		Options: []Option{
			{Token: "immediately", Label: "Immediately"},
			{Token: "within_3_months", Label: "Within 3 months"},
			{Token: "within_6_months", Label: "Within 6 months"},
			{Token: "exploring", Label: "Just exploring"},
		},
	},
}

var questionIndex = func() map[string]*Question {
	m := make(map[string]*Question, len(questions))
	for i := range questions {
		m[questions[i].ID] = &questions[i]
	}
	return m
}()

// MaxScore is the sum of all section caps.
const MaxScore = 29

// Catalog returns a copy of the question catalog in declaration order.
func Catalog() []Question {
	out := make([]Question, len(questions))
	for i, q := range questions {
		q.Options = append([]Option(nil), q.Options...)
		out[i] = q
	}
	return out
}

// Sections returns the scored sections in declaration order.
func Sections() []Section {
	return append([]Section(nil), sections...)
}

// Lookup returns the catalog entry for a question id.
func Lookup(id string) (Question, bool) {
	q, ok := questionIndex[id]
	if !ok {
		return Question{}, false
	}
	return *q, true
}

// Tokens lists the option tokens of a question.
func (q Question) Tokens() []string {
	out := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		out = append(out, o.Token)
	}
	return out
}

func (q Question) option(token string) (Option, bool) {
	for _, o := range q.Options {
		if o.Token == token {
			return o, true
		}
	}
	return Option{}, false
}

// Label returns the human label for a token, or the token itself when unknown.
func (q Question) Label(token string) string {
	if o, ok := q.option(token); ok {
		return o.Label
	}
	return token
}
