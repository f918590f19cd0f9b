package auth

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/marketplace-chat/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort is the view other modules have of the auth module.
type AuthPort interface {
	ValidateToken(ctx context.Context, token string) (*domain.Identity, error)
	GetUser(ctx context.Context, userID int64) (*UserView, error)
}

// AuthAdapter implements AuthPort over the auth service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*AuthAdapter)(nil)

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{container: container}
}

// ValidateToken resolves an access token. A rejected token yields an error
// wrapping ErrInvalidToken; other errors mean the service could not be reached.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*domain.Identity, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse

	if err := helper.CallRequestReplyService(
		ctx, a.container, "validate-token", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("validate-token request failed: %w", err)
	}

	if !resp.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, resp.Error)
	}

	return &domain.Identity{
		UserID: resp.UserID,
		Email:  resp.Email,
		Role:   resp.Role,
	}, nil
}

// Resolve satisfies the chat identity resolver.
func (a *AuthAdapter) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	identity, err := a.ValidateToken(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}
	return *identity, nil
}

// GetUser retrieves a user by ID.
func (a *AuthAdapter) GetUser(ctx context.Context, userID int64) (*UserView, error) {
	req := GetUserRequest{UserID: userID}
	var resp GetUserResponse

	if err := helper.CallRequestReplyService(
		ctx, a.container, "get-user", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("get-user request failed: %w", err)
	}
	if !resp.Found {
		return nil, ErrUserNotFound
	}
	return &resp.User, nil
}

// Register creates a buyer account. Validation failures come back as errors
// whose text carries the service sentinel.
func (a *AuthAdapter) Register(ctx context.Context, req RegisterRequest) (*UserView, error) {
	var resp RegisterResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "register", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp.User, nil
}

// Login exchanges credentials for a token pair.
func (a *AuthAdapter) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	req := LoginRequest{Email: email, Password: password}
	var resp LoginResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "login", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a new pair.
func (a *AuthAdapter) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	req := RefreshRequest{RefreshToken: refreshToken}
	var resp RefreshResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "refresh-token", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("refresh-token request failed: %w", err)
	}
	return &resp.TokenPair, nil
}

// SetUserActive suspends or reactivates an account.
func (a *AuthAdapter) SetUserActive(ctx context.Context, userID int64, active bool) (*UserView, error) {
	req := SetUserActiveRequest{UserID: userID, Active: active}
	var resp SetUserActiveResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "set-user-active", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("set-user-active request failed: %w", err)
	}
	return &resp.User, nil
}
