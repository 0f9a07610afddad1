package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-assessment-go/internal/user/repo"
)

var ErrUserNotFound = errors.New("user not found")

// SubmissionRemover deletes the submissions that reference a user.
type SubmissionRemover interface {
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// UserService manages respondents.
type UserService struct {
	repo        *userrepo.UserRepo
	submissions SubmissionRemover
	logger      *zap.SugaredLogger
}

func NewUserService(db *sqlx.DB, submissions SubmissionRemover, logger *zap.SugaredLogger) *UserService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &UserService{repo: userrepo.NewUserRepo(db), submissions: submissions, logger: logger}
}

func (s *UserService) EnsureTable(ctx context.Context) error {
	return s.repo.EnsureTable(ctx)
}

// Upsert returns the id of the respondent with this email, creating it if needed.
func (s *UserService) Upsert(ctx context.Context, email string) (string, error) {
	return s.repo.UpsertByEmail(ctx, email)
}

func (s *UserService) List(ctx context.Context) ([]entity.User, error) {
	return s.repo.List(ctx)
}

// DeleteUser removes the user's submissions and then the user. The two
// deletes are separate statements; a failure in between leaves the user
// without submissions.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	n, err := s.submissions.DeleteByUser(ctx, id)
	if err != nil {
		return fmt.Errorf("delete submissions: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Infow("user deleted", "user_id", id, "submissions", n)
	return nil
}
