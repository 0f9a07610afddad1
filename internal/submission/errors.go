package submission

import (
	"errors"
	"fmt"
	"strings"
	"time"

	subrepo "github.com/ovaphlow/pitchfork/service-assessment-go/internal/submission/repo"
)

var (
	ErrNotFound        = subrepo.ErrNotFound
	ErrNotConfigured   = errors.New("submission: server is not configured")
	ErrPayloadTooLarge = errors.New("submission: payload too large")
	ErrConsentRequired = errors.New("submission: consent is required")
	ErrInvalidScore    = errors.New("submission: score out of bounds")
)

// RateLimitError is returned when the client exceeded its submission quota.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("submission: rate limited, retry after %s", e.RetryAfter)
}

// ValidationError lists every field violation of a payload.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "submission: invalid payload: " + strings.Join(e.Messages, "; ")
}
