package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/submission/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-assessment-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-assessment-go/pkg/database"
)

func setup(t *testing.T) (*SubmissionRepo, *userrepo.UserRepo) {
	t.Helper()
	raw, err := database.Connect(database.Config{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	db := sqlx.NewDb(raw, database.DriverSQLite)
	t.Cleanup(func() { _ = db.Close() })

	users := userrepo.NewUserRepo(db)
	subs := NewSubmissionRepo(db)
	ctx := context.Background()
	require.NoError(t, users.EnsureTable(ctx))
	require.NoError(t, subs.EnsureTable(ctx))
	return subs, users
}

func row(id, userID string, at time.Time) *entity.Submission {
	return &entity.Submission{
		ID: id, CreatedAt: at, UserID: userID, Company: "Acme", Sector: "Retail",
		AnswersJSON: `{"q2":"centralized"}`, Score: 21, Tier: "AI-Enhanced",
		BreakdownJSON: `{"dataReadiness":5}`, Report: "# hi", PainPointsJSON: `["Team Skills"]`,
	}
}

func TestCreateAndList(t *testing.T) {
	subs, users := setup(t)
	ctx := context.Background()
	alice, err := users.UpsertByEmail(ctx, "alice@acme.test")
	require.NoError(t, err)
	bob, err := users.UpsertByEmail(ctx, "bob@acme.test")
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	sent := base.Add(time.Minute)
	first := row("s1", alice, base)
	first.EmailSent = true
	first.EmailSentAt = &sent
	require.NoError(t, subs.Create(ctx, first))
	require.NoError(t, subs.Create(ctx, row("s2", bob, base.Add(time.Hour))))
	require.NoError(t, subs.Create(ctx, row("s3", alice, base.Add(2*time.Hour))))

	all, err := subs.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"s3", "s2", "s1"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "bob@acme.test", all[1].Email)

	last := all[2]
	assert.True(t, last.EmailSent)
	require.NotNil(t, last.EmailSentAt)
	assert.True(t, sent.Equal(*last.EmailSentAt))
	assert.Equal(t, []string{"Team Skills"}, last.PainPoints())
	assert.JSONEq(t, `{"q2":"centralized"}`, last.AnswersJSON)

	mine, err := subs.ListByUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "s3", mine[0].ID)
	assert.Nil(t, mine[0].EmailSentAt)

	none, err := subs.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCreateRequiresExistingUser(t *testing.T) {
	subs, _ := setup(t)
	err := subs.Create(context.Background(), row("s1", "ghost", time.Now().UTC()))
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	subs, users := setup(t)
	ctx := context.Background()
	uid, err := users.UpsertByEmail(ctx, "carol@acme.test")
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, subs.Create(ctx, row("s1", uid, now)))
	require.NoError(t, subs.Create(ctx, row("s2", uid, now.Add(time.Second))))
	require.NoError(t, subs.Create(ctx, row("s3", uid, now.Add(2*time.Second))))

	require.NoError(t, subs.Delete(ctx, "s1"))
	assert.True(t, errors.Is(subs.Delete(ctx, "s1"), ErrNotFound))

	n, err := subs.DeleteByUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = subs.DeleteByUser(ctx, uid)
	require.NoError(t, err)
	assert.Zero(t, n)
}
