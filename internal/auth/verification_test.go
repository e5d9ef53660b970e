package auth

import (
	"context"
	"testing"
	"time"

	"github.com/angelviera/shoplane-backend/internal/users"
	"github.com/angelviera/shoplane-backend/pkg/config"
	"github.com/angelviera/shoplane-backend/pkg/db"
	"github.com/angelviera/shoplane-backend/pkg/db/models"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testVerificationCfg() config.VerificationConfig {
	return config.VerificationConfig{
		CodeTTL:     15 * time.Minute,
		CodeLength:  6,
		MaxAttempts: 5,
		IssueWindow: time.Hour,
		IssueLimit:  5,
	}
}

func newVerificationService(t *testing.T, conn *gorm.DB, mailer *capturingMailer, now func() time.Time) VerificationService {
	t.Helper()
	svc, err := NewVerificationService(VerificationServiceParams{
		UserRepo: users.NewRepository(conn),
		CodeRepo: NewVerificationCodeRepository(conn),
		TxRunner: db.FromConn(conn),
		Mailer:   mailer,
		Config:   testVerificationCfg(),
		Now:      now,
	})
	require.NoError(t, err)
	return svc
}

func latestCode(t *testing.T, conn *gorm.DB, userID any) *models.VerificationCode {
	t.Helper()
	var row models.VerificationCode
	require.NoError(t, conn.Where("user_id = ?", userID).Order("created_at DESC").First(&row).Error)
	return &row
}

func TestRequestCode_IssuesAndMails(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedActiveUser(t, conn, "codes@example.com", "Secret123!")
	mailer := &capturingMailer{}
	svc := newVerificationService(t, conn, mailer, nil)

	mailer.expect(1)
	require.NoError(t, svc.RequestCode(ctx, user.ID))

	row := latestCode(t, conn, user.ID)
	require.Len(t, row.Code, 6)
	require.Zero(t, row.Attempts)

	sent := mailer.wait(t)
	require.Len(t, sent, 1)
	require.Equal(t, user.Email, sent[0].To)
	require.Contains(t, sent[0].Body, row.Code)
}

func TestRequestCode_IssueLimit(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedActiveUser(t, conn, "limit@example.com", "Secret123!")
	mailer := &capturingMailer{}
	svc := newVerificationService(t, conn, mailer, nil)

	mailer.expect(5)
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.RequestCode(ctx, user.ID))
	}
	mailer.wait(t)

	err := svc.RequestCode(ctx, user.ID)
	requireCode(t, err, pkgerrors.CodeRateLimit)
}

func TestRequestCode_AlreadyVerified(t *testing.T) {
	conn := openTestDB(t)
	user := seedActiveUser(t, conn, "verified@example.com", "Secret123!")
	require.NoError(t, conn.Model(user).Update("is_verified", true).Error)
	svc := newVerificationService(t, conn, &capturingMailer{}, nil)

	err := svc.RequestCode(context.Background(), user.ID)
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestVerifyEmail_Succeeds(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedActiveUser(t, conn, "verify@example.com", "Secret123!")
	mailer := &capturingMailer{}
	svc := newVerificationService(t, conn, mailer, nil)

	mailer.expect(2)
	require.NoError(t, svc.RequestCode(ctx, user.ID))
	require.NoError(t, conn.Model(latestCode(t, conn, user.ID)).
		UpdateColumn("created_at", time.Now().UTC().Add(-time.Minute)).Error)
	require.NoError(t, svc.RequestCode(ctx, user.ID))
	mailer.wait(t)

	require.NoError(t, svc.VerifyEmail(ctx, user.ID, latestCode(t, conn, user.ID).Code))

	var reloaded models.User
	require.NoError(t, conn.First(&reloaded, "id = ?", user.ID).Error)
	require.True(t, reloaded.IsVerified)

	// Success clears every outstanding code.
	var remaining int64
	require.NoError(t, conn.Model(&models.VerificationCode{}).
		Where("user_id = ?", user.ID).Count(&remaining).Error)
	require.Zero(t, remaining)
}

func TestVerifyEmail_OnlyLatestCodeCounts(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedActiveUser(t, conn, "stale@example.com", "Secret123!")
	mailer := &capturingMailer{}
	svc := newVerificationService(t, conn, mailer, nil)

	mailer.expect(2)
	require.NoError(t, svc.RequestCode(ctx, user.ID))
	first := latestCode(t, conn, user.ID)
	// Backdate the first issue so ordering is unambiguous.
	require.NoError(t, conn.Model(first).UpdateColumn("created_at", time.Now().UTC().Add(-time.Minute)).Error)
	require.NoError(t, svc.RequestCode(ctx, user.ID))
	mailer.wait(t)

	second := latestCode(t, conn, user.ID)
	require.NotEqual(t, first.ID, second.ID)

	err := svc.VerifyEmail(ctx, user.ID, first.Code)
	if first.Code != second.Code {
		requireCode(t, err, pkgerrors.CodeValidation)
	}
	require.NoError(t, svc.VerifyEmail(ctx, user.ID, second.Code))
}

func TestVerifyEmail_MismatchBurnsAttempt(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedActiveUser(t, conn, "burn@example.com", "Secret123!")
	mailer := &capturingMailer{}
	svc := newVerificationService(t, conn, mailer, nil)

	mailer.expect(1)
	require.NoError(t, svc.RequestCode(ctx, user.ID))
	mailer.wait(t)

	err := svc.VerifyEmail(ctx, user.ID, "WRONG1")
	requireCode(t, err, pkgerrors.CodeValidation)
	require.Equal(t, 1, latestCode(t, conn, user.ID).Attempts)
}

func TestVerifyEmail_AttemptCeiling(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedActiveUser(t, conn, "ceiling@example.com", "Secret123!")
	mailer := &capturingMailer{}
	svc := newVerificationService(t, conn, mailer, nil)

	mailer.expect(1)
	require.NoError(t, svc.RequestCode(ctx, user.ID))
	mailer.wait(t)
	code := latestCode(t, conn, user.ID)

	for i := 0; i < 5; i++ {
		requireCode(t, svc.VerifyEmail(ctx, user.ID, "WRONG1"), pkgerrors.CodeValidation)
	}

	// Even the right code is refused once the ceiling is hit.
	requireCode(t, svc.VerifyEmail(ctx, user.ID, code.Code), pkgerrors.CodeRateLimit)
}

func TestVerifyEmail_Expired(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedActiveUser(t, conn, "expired@example.com", "Secret123!")
	mailer := &capturingMailer{}

	issuedAt := time.Now().UTC().Add(-time.Hour)
	clock := issuedAt
	svc := newVerificationService(t, conn, mailer, func() time.Time { return clock })

	mailer.expect(1)
	require.NoError(t, svc.RequestCode(ctx, user.ID))
	mailer.wait(t)
	code := latestCode(t, conn, user.ID)

	clock = issuedAt.Add(16 * time.Minute)
	requireCode(t, svc.VerifyEmail(ctx, user.ID, code.Code), pkgerrors.CodeValidation)
}

func TestVerifyEmail_NoCodeIssued(t *testing.T) {
	conn := openTestDB(t)
	user := seedActiveUser(t, conn, "nocode@example.com", "Secret123!")
	svc := newVerificationService(t, conn, &capturingMailer{}, nil)

	requireCode(t, svc.VerifyEmail(context.Background(), user.ID, "ABC234"), pkgerrors.CodeNotFound)
}
