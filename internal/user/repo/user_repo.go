package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-assessment-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-assessment-go/pkg/utilities"
)

var ErrNotFound = errors.New("user not found")

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db    *sqlx.DB
	newID func() string
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db, newID: utilities.NewSnowflakeID} }

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC);
`
	if r.db.DriverName() == database.DriverSQLite {
		ddl = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at);
`
	}
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// NormalizeEmail is the canonical form used for the unique email key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UpsertByEmail returns the id of the user with this email, creating the
// row when it does not exist yet.
func (r *UserRepo) UpsertByEmail(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", errors.New("email required")
	}
	q := r.db.Rebind(`INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET email = excluded.email
		RETURNING id`)
	var id string
	if err := r.db.QueryRowxContext(ctx, q, r.newID(), email, time.Now().UTC()).Scan(&id); err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}
	return id, nil
}

// GetByID fetches a user or returns ErrNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	err := r.db.GetContext(ctx, &u, r.db.Rebind(`SELECT id, email, created_at FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns every user with its submission count, newest first.
func (r *UserRepo) List(ctx context.Context) ([]entity.User, error) {
	const q = `SELECT u.id, u.email, u.created_at, COUNT(s.id) AS submission_count
	  FROM users u LEFT JOIN submissions s ON s.user_id = u.id
	  GROUP BY u.id, u.email, u.created_at
	  ORDER BY u.created_at DESC, u.id DESC`
	out := []entity.User{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a user row or returns ErrNotFound. Submissions referencing
// the user must be removed first.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
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
