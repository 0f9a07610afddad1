package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/assessment"
	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/mailer"
	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/ratelimit"
	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/report"
	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/submission/entity"
	"github.com/ovaphlow/pitchfork/service-assessment-go/pkg/utilities"
)

// MaxPayloadBytes is the largest accepted submission body.
const MaxPayloadBytes = 10 * 1024

// PlaceholderReport replaces the narrative when generation fails.
const PlaceholderReport = "We were unable to generate your personalised report right now. " +
	"Your score and breakdown above are accurate; please try again later or contact us for a full consultation."

const (
	emailSubject   = "Your AI readiness report"
	messageEmailed = "Your report has been sent to %s."
	messageNoEmail = "Your report is ready below, but we could not email it right now. Please save a copy from this page."
)

// Limiter gates submissions per client.
type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// Generator produces the narrative report.
type Generator interface {
	Configured() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// Mailer delivers the report email.
type Mailer interface {
	Configured() bool
	Send(ctx context.Context, msg mailer.Message) error
}

// UserStore resolves respondents by email.
type UserStore interface {
	Upsert(ctx context.Context, email string) (string, error)
}

// Store persists and reads submissions.
type Store interface {
	Create(ctx context.Context, s *entity.Submission) error
	List(ctx context.Context) ([]entity.Submission, error)
	ListByUser(ctx context.Context, userID string) ([]entity.Submission, error)
	Delete(ctx context.Context, id string) error
}

// Outcome is the result of an accepted submission.
type Outcome struct {
	Result       assessment.Result
	PainPoints   []string
	Report       string
	EmailSent    bool
	Message      string
	Email        string
	SubmissionID string
}

// Service runs the submission pipeline.
type Service struct {
	limiter   Limiter
	generator Generator
	mailer    Mailer
	users     UserStore
	store     Store
	logger    *zap.SugaredLogger
	newID     func() string
	now       func() time.Time
}

func NewService(limiter Limiter, gen Generator, m Mailer, users UserStore, store Store, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		limiter:   limiter,
		generator: gen,
		mailer:    m,
		users:     users,
		store:     store,
		logger:    logger,
		newID:     utilities.NewSnowflakeID,
		now:       time.Now,
	}
}

// Submit runs one submission end to end. Stages up to scoring reject the
// request; generation, email and persistence degrade without failing it.
func (s *Service) Submit(ctx context.Context, raw []byte, clientIP string) (*Outcome, error) {
	decision, err := s.limiter.Allow(ctx, "submit:"+clientIP)
	if err != nil {
		// a broken counter store must not take the questionnaire down
		s.logger.Warnw("rate limiter unavailable", "err", err)
	} else if !decision.Allowed {
		s.logger.Infow("submission rate limited", "ip", clientIP)
		return nil, &RateLimitError{RetryAfter: decision.RetryAfter(s.now())}
	}

	if !s.generator.Configured() || !s.mailer.Configured() {
		return nil, ErrNotConfigured
	}
	if len(raw) > MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}

	p, err := DecodePayload(raw)
	if err != nil {
		return nil, err
	}
	if !*p.Consent {
		return nil, ErrConsentRequired
	}

	answers := assessment.Normalize(p.Answers())
	res := assessment.Score(answers)
	if !res.InBounds() {
		s.logger.Errorw("score out of bounds", "score", res.Score, "max", res.MaxScore)
		return nil, ErrInvalidScore
	}
	pains := assessment.ExtractPainPoints(answers)
	profile := p.Profile()
	email := strings.TrimSpace(p.Email)

	text, err := s.generator.Generate(ctx, assessment.BuildPrompt(res, answers, profile))
	if err != nil {
		s.logger.Warnw("report generation failed; using placeholder", "err", err)
		text = PlaceholderReport
	}
	safe := report.Sanitize(text)

	emailSent := s.sendReport(ctx, email, profile.Company, res, text, safe)
	var sentAt *time.Time
	if emailSent {
		t := s.now().UTC()
		sentAt = &t
	}

	id := s.persist(ctx, email, profile, answers, res, pains, text, emailSent, sentAt)

	msg := messageNoEmail
	if emailSent {
		msg = fmt.Sprintf(messageEmailed, email)
	}
	return &Outcome{
		Result:       res,
		PainPoints:   pains,
		Report:       safe,
		EmailSent:    emailSent,
		Message:      msg,
		Email:        email,
		SubmissionID: id,
	}, nil
}

func (s *Service) sendReport(ctx context.Context, to, company string, res assessment.Result, text, safe string) bool {
	html, err := report.EmailHTML(company, res, safe)
	if err != nil {
		s.logger.Errorw("render email failed", "err", err)
		return false
	}
	plain := fmt.Sprintf("AI readiness score: %d / %d (%s)\n\n%s", res.Score, res.MaxScore, res.Tier, report.PlainText(text))
	if err := s.mailer.Send(ctx, mailer.Message{To: to, Subject: emailSubject, HTML: html, Text: plain}); err != nil {
		s.logger.Warnw("report email failed", "err", err)
		return false
	}
	return true
}

// persist stores the user and submission. Failures are logged and swallowed.
func (s *Service) persist(ctx context.Context, email string, profile assessment.Profile, answers assessment.Answers,
	res assessment.Result, pains []string, text string, emailSent bool, sentAt *time.Time) string {
	userID, err := s.users.Upsert(ctx, email)
	if err != nil {
		s.logger.Errorw("persist user failed", "err", err)
		return ""
	}
	answersJSON, err := jsonColumn("answers", answers)
	if err != nil {
		s.logger.Errorw("persist submission failed", "err", err)
		return ""
	}
	breakdownJSON, err := jsonColumn("breakdown", res.Breakdown)
	if err != nil {
		s.logger.Errorw("persist submission failed", "err", err)
		return ""
	}
	painsJSON, err := jsonColumn("pain_points", pains)
	if err != nil {
		s.logger.Errorw("persist submission failed", "err", err)
		return ""
	}
	sub := &entity.Submission{
		ID:             s.newID(),
		CreatedAt:      s.now().UTC(),
		UserID:         userID,
		Company:        profile.Company,
		Sector:         profile.Sector,
		Region:         profile.Region,
		AnswersJSON:    answersJSON,
		Score:          res.Score,
		Tier:           string(res.Tier),
		BreakdownJSON:  breakdownJSON,
		Report:         text,
		PainPointsJSON: painsJSON,
		EmailSent:      emailSent,
		EmailSentAt:    sentAt,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		s.logger.Errorw("persist submission failed", "user_id", userID, "err", err)
		return ""
	}
	s.logger.Infow("submission stored", "id", sub.ID, "score", res.Score, "tier", res.Tier, "email_sent", emailSent)
	return sub.ID
}

// jsonColumn encodes v for a text JSON column.
func jsonColumn(name string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return string(b), nil
}

// List returns submissions for the admin view, optionally filtered by user.
func (s *Service) List(ctx context.Context, userID string) ([]entity.View, error) {
	var (
		rows []entity.Submission
		err  error
	)
	if userID != "" {
		rows, err = s.store.ListByUser(ctx, userID)
	} else {
		rows, err = s.store.List(ctx)
	}
	if err != nil {
		return nil, err
	}
	out := make([]entity.View, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.View())
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
