package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelviera/shoplane-backend/internal/users"
	pkgauth "github.com/angelviera/shoplane-backend/pkg/auth"
	"github.com/angelviera/shoplane-backend/pkg/config"
	"github.com/angelviera/shoplane-backend/pkg/db"
	"github.com/angelviera/shoplane-backend/pkg/db/models"
	"github.com/angelviera/shoplane-backend/pkg/mail"
	"github.com/angelviera/shoplane-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache DSN keeps every pooled connection on the same
	// in-memory database; with plain ":memory:" a query issued while a
	// transaction pins the first connection gets a second, empty database.
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.VerificationCode{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func testPasswordCfg() config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1}
}

func testMinter(t *testing.T) *pkgauth.Minter {
	t.Helper()
	minter, err := pkgauth.NewMinter(config.JWTConfig{
		Issuer:            "shoplane-test",
		AccessSecret:      "access-secret",
		RefreshSecret:     "refresh-secret",
		AccessTTLMinutes:  15,
		RefreshTTLMinutes: 60,
		ResetTTLMinutes:   60,
	})
	require.NoError(t, err)
	return minter
}

func seedActiveUser(t *testing.T, conn *gorm.DB, email, password string) *models.User {
	t.Helper()

	hash, err := security.HashPassword(password, testPasswordCfg())
	require.NoError(t, err)

	user := users.CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
	}.ToModel()
	require.NoError(t, conn.Create(user).Error)
	return user
}

// capturingMailer records messages instead of dialing SMTP.
type capturingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	wg   sync.WaitGroup
}

func (m *capturingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	m.wg.Done()
	return nil
}

func (m *capturingMailer) expect(n int) {
	m.wg.Add(n)
}

func (m *capturingMailer) wait(t *testing.T) []mail.Message {
	t.Helper()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mail")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

func newLoginService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:         users.NewRepository(conn),
		RefreshTokenRepo: NewRefreshTokenRepository(conn),
		TxRunner:         db.FromConn(conn),
		Minter:           testMinter(t),
		RefreshTTL:       time.Hour,
	})
	require.NoError(t, err)
	return svc
}
