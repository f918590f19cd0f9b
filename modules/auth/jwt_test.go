package auth

import (
	"testing"
	"time"

	domain "github.com/example/marketplace-chat/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:            "test-secret-key",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		Issuer:               "test-issuer",
	}
}

func TestJWTManager_AccessTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())
	user := &domain.User{ID: 42, Email: "seller@example.com", Role: domain.RoleSeller}

	token, err := manager.GenerateAccessToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.ValidateAccessToken(token)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "seller@example.com", claims.Email)
	assert.Equal(t, domain.RoleSeller, claims.Role)
	assert.Equal(t, "test-issuer", claims.Issuer)
}

func TestJWTManager_TokenTypeMismatch(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())
	user := &domain.User{ID: 7, Email: "buyer@example.com", Role: domain.RoleBuyer}

	refresh, err := manager.GenerateRefreshToken(user)
	require.NoError(t, err)
	_, err = manager.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	access, err := manager.GenerateAccessToken(user)
	require.NoError(t, err)
	_, err = manager.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_Rejections(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())
	user := &domain.User{ID: 7, Email: "buyer@example.com", Role: domain.RoleBuyer}

	expiredCfg := testJWTConfig()
	expiredCfg.AccessTokenDuration = -time.Minute
	expired, err := NewJWTManager(expiredCfg).GenerateAccessToken(user)
	require.NoError(t, err)

	otherCfg := testJWTConfig()
	otherCfg.SecretKey = "another-secret"
	foreign, err := NewJWTManager(otherCfg).GenerateAccessToken(user)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, JWTClaims{
		TokenType:        tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-number",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("test-secret-key"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "empty", token: "", wantErr: ErrInvalidToken},
		{name: "garbage", token: "not.a.jwt", wantErr: ErrInvalidToken},
		{name: "expired", token: expired, wantErr: ErrExpiredToken},
		{name: "wrong secret", token: foreign, wantErr: ErrInvalidToken},
		{name: "alg none", token: noneToken, wantErr: ErrInvalidToken},
		{name: "non numeric subject", token: badSubject, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestJWTManager_AccessTokenDuration(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())
	assert.Equal(t, int64(900), manager.AccessTokenDuration())
}
