package auth

import (
	"context"
	"testing"

	domain "github.com/example/marketplace-chat/domain/user"
	"github.com/example/marketplace-chat/modules/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewAuthService(NewUserRepository(db), NewPasswordHasher(bcrypt.MinCost), NewJWTManager(testJWTConfig())), db
}

func TestAuthService_Register(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, domain.RoleBuyer, user.Role)
	assert.True(t, user.IsActive)

	_, err = svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name    string
		in      RegisterInput
		wantErr error
	}{
		{
			name:    "missing name",
			in:      RegisterInput{Name: "  ", Email: "a@example.com", Password: "password123"},
			wantErr: ErrNameRequired,
		},
		{
			name:    "bad email",
			in:      RegisterInput{Name: "A", Email: "not-an-email", Password: "password123"},
			wantErr: ErrInvalidEmail,
		},
		{
			name:    "short password",
			in:      RegisterInput{Name: "A", Email: "a@example.com", Password: "1234567"},
			wantErr: ErrWeakPassword,
		},
		{
			name:    "long password",
			in:      RegisterInput{Name: "A", Email: "a@example.com", Password: string(make([]byte, 73))},
			wantErr: ErrPasswordTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAuthService_LoginAndValidate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "password123"})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "bob@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	tokens, user, err := svc.Login(ctx, "bob@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, "Bearer", tokens.TokenType)

	identity, err := svc.ValidateToken(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, identity.UserID)
	assert.Equal(t, domain.RoleBuyer, identity.Role)

	_, err = svc.ValidateToken(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_RefreshPicksUpRoleChange(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Sam", Email: "sam@example.com", Password: "password123"})
	require.NoError(t, err)
	tokens, _, err := svc.Login(ctx, "sam@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, db.Model(&domain.User{}).Where("id = ?", user.ID).Update("role", domain.RoleSeller).Error)

	refreshed, err := svc.RefreshTokens(ctx, tokens.RefreshToken)
	require.NoError(t, err)

	identity, err := svc.ValidateToken(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSeller, identity.Role)
}

func TestAuthService_DisabledAccount(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Dan", Email: "dan@example.com", Password: "password123"})
	require.NoError(t, err)
	tokens, _, err := svc.Login(ctx, "dan@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, db.Model(&domain.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)

	_, err = svc.ValidateToken(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrAccountDisabled)

	_, _, err = svc.Login(ctx, "dan@example.com", "password123")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestAuthService_TokenForDeletedUser(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "password123"})
	require.NoError(t, err)
	tokens, _, err := svc.Login(ctx, "eve@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, db.Delete(&domain.User{}, user.ID).Error)

	_, err = svc.ValidateToken(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_SuspendAndActivate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Fay", Email: "fay@example.com", Password: "password123"})
	require.NoError(t, err)
	tokens, _, err := svc.Login(ctx, "fay@example.com", "password123")
	require.NoError(t, err)

	suspended, err := svc.SetActive(ctx, user.ID, false)
	require.NoError(t, err)
	assert.False(t, suspended.IsActive)

	_, err = svc.ValidateToken(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrAccountDisabled)

	activated, err := svc.SetActive(ctx, user.ID, true)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	identity, err := svc.ValidateToken(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)

	_, err = svc.SetActive(ctx, 4242, false)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
