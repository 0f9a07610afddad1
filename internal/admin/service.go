package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/ratelimit"
)

var (
	ErrNotConfigured = errors.New("admin: not configured")
	ErrCSRF          = errors.New("admin: invalid csrf token")
)

// BlockedError is returned while an address is locked out.
type BlockedError struct {
	Until time.Time
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("admin: login blocked until %s", e.Until.UTC().Format(time.RFC3339))
}

// InvalidPasswordError carries the attempts left before a lockout. Until is
// set when this failure triggered the lockout.
type InvalidPasswordError struct {
	Remaining int
	Until     time.Time
}

func (e *InvalidPasswordError) Error() string {
	return fmt.Sprintf("admin: invalid password, %d attempts remaining", e.Remaining)
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token             string
	ExpiresAt         time.Time
	RemainingAttempts int
}

// Service authenticates the admin and guards the admin routes.
type Service struct {
	cfg      Config
	verifier PasswordVerifier
	tokens   *TokenIssuer
	csrf     *CSRFStore
	guard    *ratelimit.BruteForceGuard
	requests *ratelimit.Limiter
	logger   *zap.SugaredLogger
}

// NewService wires the login guard and the admin request limiter onto store.
func NewService(cfg Config, store ratelimit.Store, csrf *CSRFStore, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cfg = cfg.withDefaults()
	return &Service{
		cfg:      cfg,
		verifier: NewPasswordVerifier(cfg),
		tokens:   NewTokenIssuer(cfg),
		csrf:     csrf,
		guard:    ratelimit.NewBruteForceGuard(store),
		requests: ratelimit.NewLimiter(store, 100, 15*time.Minute),
		logger:   logger,
	}
}

// IssueCSRF hands out a login anti-forgery token.
func (s *Service) IssueCSRF() (string, time.Time) {
	return s.csrf.Issue()
}

// Login checks, in order: lockout, CSRF, configuration, password.
func (s *Service) Login(ctx context.Context, ip, password, csrfCookie, csrfBody string) (*LoginResult, error) {
	key := "login:" + ip
	until, blocked, err := s.guard.Check(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check lockout: %w", err)
	}
	if blocked {
		s.logger.Warnw("admin login while blocked", "ip", ip, "until", until)
		return nil, &BlockedError{Until: until}
	}
	if !s.csrf.Validate(csrfCookie, csrfBody) {
		s.logger.Warnw("admin login csrf mismatch", "ip", ip)
		return nil, ErrCSRF
	}
	if !s.cfg.Configured() {
		return nil, ErrNotConfigured
	}

	if !s.verifier.Verify(password) {
		remaining, until, err := s.guard.Fail(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("record failed login: %w", err)
		}
		s.logger.Warnw("admin login failed", "ip", ip, "remaining", remaining)
		return nil, &InvalidPasswordError{Remaining: remaining, Until: until}
	}

	if err := s.guard.Succeed(ctx, key); err != nil {
		s.logger.Warnw("reset login counter failed", "ip", ip, "err", err)
	}
	token, exp, err := s.tokens.Issue()
	if err != nil {
		return nil, err
	}
	s.logger.Infow("admin login", "ip", ip)
	return &LoginResult{Token: token, ExpiresAt: exp, RemainingAttempts: s.guard.MaxAttempts}, nil
}

// AllowRequest counts one admin request against the per-address limiter.
func (s *Service) AllowRequest(ctx context.Context, ip string) (ratelimit.Decision, error) {
	return s.requests.Allow(ctx, "admin:"+ip)
}

// Authenticate verifies a bearer token.
func (s *Service) Authenticate(token string) (*Claims, error) {
	return s.tokens.Verify(token)
}
