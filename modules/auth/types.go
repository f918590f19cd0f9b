package auth

import (
	"time"

	domain "github.com/example/marketplace-chat/domain/user"
)

// UserView is the public representation of an account.
type UserView struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Phone          string      `json:"phone,omitempty"`
	Role           domain.Role `json:"role"`
	ProfilePicture string      `json:"profile_picture,omitempty"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewUserView converts a user entity to its public form.
func NewUserView(u *domain.User) UserView {
	return UserView{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Phone:          u.Phone,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
		IsActive:       u.IsActive,
		CreatedAt:      u.CreatedAt,
	}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// RegisterResponse represents a user registration response.
type RegisterResponse struct {
	User UserView `json:"user"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a user login response with tokens.
type LoginResponse struct {
	domain.TokenPair
	User UserView `json:"user"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse represents a token refresh response.
type RefreshResponse struct {
	domain.TokenPair
}

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse carries validation failures in Error rather than as a
// transport error so callers can tell a bad token from an unreachable service.
type ValidateTokenResponse struct {
	Valid  bool        `json:"valid"`
	UserID int64       `json:"user_id,omitempty"`
	Email  string      `json:"email,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// GetUserRequest represents a get user request.
type GetUserRequest struct {
	UserID int64 `json:"user_id"`
}

// GetUserResponse represents a get user response.
type GetUserResponse struct {
	Found bool     `json:"found"`
	User  UserView `json:"user"`
}

// SetUserActiveRequest suspends or reactivates an account.
type SetUserActiveRequest struct {
	UserID int64 `json:"user_id"`
	Active bool  `json:"active"`
}

// SetUserActiveResponse carries the updated account.
type SetUserActiveResponse struct {
	User UserView `json:"user"`
}
