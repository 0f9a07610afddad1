package entity

import "time"

// User is a respondent identified by email in the `users` table.
// Email is stored lower-cased and is unique.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	// SubmissionCount is filled by list queries only.
	SubmissionCount int64 `db:"submission_count" json:"submissionCount"`
}
