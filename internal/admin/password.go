package admin

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier checks a login attempt against the configured secret.
type PasswordVerifier interface {
	Verify(pw string) bool
}

// PlainVerifier compares against a password held in configuration.
type PlainVerifier struct{ Password string }

// Verify rejects on length mismatch before the constant-time comparison,
// so only the length can leak through timing.
func (v PlainVerifier) Verify(pw string) bool {
	if v.Password == "" || len(pw) != len(v.Password) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(pw), []byte(v.Password)) == 1
}

// BcryptVerifier compares against a bcrypt hash.
type BcryptVerifier struct{ Hash string }

func (v BcryptVerifier) Verify(pw string) bool {
	if v.Hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(v.Hash), []byte(pw)) == nil
}

// NewPasswordVerifier prefers the hash when both forms are configured.
func NewPasswordVerifier(cfg Config) PasswordVerifier {
	if cfg.PasswordHash != "" {
		return BcryptVerifier{Hash: cfg.PasswordHash}
	}
	return PlainVerifier{Password: cfg.Password}
}
