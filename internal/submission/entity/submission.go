package entity

import (
	"encoding/json"
	"time"
)

// Submission is one completed questionnaire row in the `submissions` table.
// JSON columns are carried as text so both postgres and sqlite accept them.
type Submission struct {
	ID             string     `db:"id"`
	CreatedAt      time.Time  `db:"created_at"`
	UserID         string     `db:"user_id"`
	Company        string     `db:"company"`
	Sector         string     `db:"sector"`
	Region         string     `db:"region"`
	AnswersJSON    string     `db:"answers"`
	Score          int        `db:"score"`
	Tier           string     `db:"tier"`
	BreakdownJSON  string     `db:"breakdown"`
	Report         string     `db:"report"`
	PainPointsJSON string     `db:"pain_points"`
	EmailSent      bool       `db:"email_sent"`
	EmailSentAt    *time.Time `db:"email_sent_at"`

	// Email is joined from users on read.
	Email string `db:"email"`
}

// PainPoints decodes the stored pain-point labels.
func (s Submission) PainPoints() []string {
	var out []string
	if s.PainPointsJSON == "" {
		return []string{}
	}
	if err := json.Unmarshal([]byte(s.PainPointsJSON), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

// View is the admin-facing projection of a Submission.
type View struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"createdAt"`
	UserID      string          `json:"userId"`
	Email       string          `json:"email"`
	Company     string          `json:"company"`
	Sector      string          `json:"sector"`
	Region      string          `json:"region"`
	Answers     json.RawMessage `json:"answers"`
	Score       int             `json:"score"`
	Tier        string          `json:"tier"`
	Breakdown   json.RawMessage `json:"breakdown"`
	Report      string          `json:"report"`
	PainPoints  []string        `json:"painPoints"`
	EmailSent   bool            `json:"emailSent"`
	EmailSentAt *time.Time      `json:"emailSentAt,omitempty"`
}

func (s Submission) View() View {
	return View{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		UserID:      s.UserID,
		Email:       s.Email,
		Company:     s.Company,
		Sector:      s.Sector,
		Region:      s.Region,
		Answers:     rawOrNull(s.AnswersJSON),
		Score:       s.Score,
		Tier:        s.Tier,
		Breakdown:   rawOrNull(s.BreakdownJSON),
		Report:      s.Report,
		PainPoints:  s.PainPoints(),
		EmailSent:   s.EmailSent,
		EmailSentAt: s.EmailSentAt,
	}
}

func rawOrNull(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}
