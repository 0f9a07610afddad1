package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/submission/entity"
	"github.com/ovaphlow/pitchfork/service-assessment-go/pkg/database"
)

var ErrNotFound = errors.New("submission not found")

// SubmissionRepo provides data access for the submissions table using sqlx.
type SubmissionRepo struct {
	db *sqlx.DB
}

func NewSubmissionRepo(db *sqlx.DB) *SubmissionRepo { return &SubmissionRepo{db: db} }

const postgresDDL = `
CREATE TABLE IF NOT EXISTS submissions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  company TEXT NOT NULL,
  sector TEXT NOT NULL DEFAULT '',
  region TEXT NOT NULL DEFAULT '',
  answers JSONB NOT NULL,
  score INT NOT NULL,
  tier TEXT NOT NULL,
  breakdown JSONB NOT NULL,
  report TEXT NOT NULL,
  pain_points JSONB NOT NULL,
  email_sent BOOLEAN NOT NULL DEFAULT false,
  email_sent_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_submissions_user_id ON submissions(user_id);
CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at DESC);
`

const sqliteDDL = `
CREATE TABLE IF NOT EXISTS submissions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  company TEXT NOT NULL,
  sector TEXT NOT NULL DEFAULT '',
  region TEXT NOT NULL DEFAULT '',
  answers TEXT NOT NULL,
  score INTEGER NOT NULL,
  tier TEXT NOT NULL,
  breakdown TEXT NOT NULL,
  report TEXT NOT NULL,
  pain_points TEXT NOT NULL,
  email_sent BOOLEAN NOT NULL DEFAULT 0,
  email_sent_at DATETIME,
  created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_user_id ON submissions(user_id);
CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at);
`

// EnsureTable creates the submissions table if not exists (idempotent).
// The users table must exist first.
func (r *SubmissionRepo) EnsureTable(ctx context.Context) error {
	ddl := postgresDDL
	if r.db.DriverName() == database.DriverSQLite {
		ddl = sqliteDDL
	}
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a submission. CreatedAt defaults to now.
func (r *SubmissionRepo) Create(ctx context.Context, s *entity.Submission) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO submissions
		(id, user_id, company, sector, region, answers, score, tier, breakdown, report, pain_points, email_sent, email_sent_at, created_at)
		VALUES (:id, :user_id, :company, :sector, :region, :answers, :score, :tier, :breakdown, :report, :pain_points, :email_sent, :email_sent_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, q, s); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

const selectJoined = `SELECT s.id, s.created_at, s.user_id, s.company, s.sector, s.region,
	s.answers, s.score, s.tier, s.breakdown, s.report, s.pain_points,
	s.email_sent, s.email_sent_at, u.email
  FROM submissions s JOIN users u ON u.id = s.user_id`

// List returns all submissions joined with the respondent email, newest first.
func (r *SubmissionRepo) List(ctx context.Context) ([]entity.Submission, error) {
	out := []entity.Submission{}
	if err := r.db.SelectContext(ctx, &out, selectJoined+` ORDER BY s.created_at DESC, s.id DESC`); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser returns the submissions of a single user, newest first.
func (r *SubmissionRepo) ListByUser(ctx context.Context, userID string) ([]entity.Submission, error) {
	out := []entity.Submission{}
	q := r.db.Rebind(selectJoined + ` WHERE s.user_id = ? ORDER BY s.created_at DESC, s.id DESC`)
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a submission by id or returns ErrNotFound.
func (r *SubmissionRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM submissions WHERE id = ?`), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByUser removes every submission of a user and returns how many went.
func (r *SubmissionRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM submissions WHERE user_id = ?`), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
