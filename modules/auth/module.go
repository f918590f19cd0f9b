package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/gorm"
)

// DBProvider supplies the shared database connection once it is open.
type DBProvider interface {
	DB() *gorm.DB
}

// Config configures the auth module.
type Config struct {
	JWT        JWTConfig
	BcryptCost int
}

// AuthModule provides account and token services.
type AuthModule struct {
	cfg     Config
	dbs     DBProvider
	service *AuthService
	logger  types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*AuthModule)(nil)
	_ mono.ServiceProviderModule = (*AuthModule)(nil)
	_ mono.HealthCheckableModule = (*AuthModule)(nil)
)

// NewModule creates a new AuthModule.
func NewModule(cfg Config, dbs DBProvider, logger types.Logger) *AuthModule {
	return &AuthModule{
		cfg:    cfg,
		dbs:    dbs,
		logger: logger,
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Start wires the service onto the shared database.
func (m *AuthModule) Start(_ context.Context) error {
	db := m.dbs.DB()
	if db == nil {
		return errors.New("database not started")
	}

	m.service = NewAuthService(
		NewUserRepository(db),
		NewPasswordHasher(m.cfg.BcryptCost),
		NewJWTManager(m.cfg.JWT),
	)

	m.logger.Info("Auth module started", "issuer", m.cfg.JWT.Issuer, "accessTTL", m.cfg.JWT.AccessTokenDuration)
	return nil
}

// Stop shuts down the module.
func (m *AuthModule) Stop(_ context.Context) error {
	m.logger.Info("Auth module stopped")
	return nil
}

// Service returns the underlying service, or nil before Start.
func (m *AuthModule) Service() *AuthService {
	return m.service
}

// Health reports whether the module has been started.
func (m *AuthModule) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "register", json.Unmarshal, json.Marshal, m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register register service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "login", json.Unmarshal, json.Marshal, m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "refresh-token", json.Unmarshal, json.Marshal, m.handleRefresh,
	); err != nil {
		return fmt.Errorf("failed to register refresh-token service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "validate-token", json.Unmarshal, json.Marshal, m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "get-user", json.Unmarshal, json.Marshal, m.handleGetUser,
	); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "set-user-active", json.Unmarshal, json.Marshal, m.handleSetUserActive,
	); err != nil {
		return fmt.Errorf("failed to register set-user-active service: %w", err)
	}

	m.logger.Info("Registered auth services",
		"services", []string{"register", "login", "refresh-token", "validate-token", "get-user", "set-user-active"})
	return nil
}

func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (RegisterResponse, error) {
	user, err := m.service.Register(ctx, RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		return RegisterResponse{}, err
	}

	m.logger.Info("User registered", "userID", user.ID)
	return RegisterResponse{User: NewUserView(user)}, nil
}

func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (LoginResponse, error) {
	tokens, user, err := m.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		return LoginResponse{}, err
	}
	return LoginResponse{TokenPair: *tokens, User: NewUserView(user)}, nil
}

func (m *AuthModule) handleRefresh(ctx context.Context, req RefreshRequest, _ *mono.Msg) (RefreshResponse, error) {
	tokens, err := m.service.RefreshTokens(ctx, req.RefreshToken)
	if err != nil {
		return RefreshResponse{}, err
	}
	return RefreshResponse{TokenPair: *tokens}, nil
}

func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	identity, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		switch {
		case errors.Is(err, ErrExpiredToken):
			return ValidateTokenResponse{Error: "token expired"}, nil
		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrAccountDisabled):
			return ValidateTokenResponse{Error: err.Error()}, nil
		default:
			return ValidateTokenResponse{}, err
		}
	}

	return ValidateTokenResponse{
		Valid:  true,
		UserID: identity.UserID,
		Email:  identity.Email,
		Role:   identity.Role,
	}, nil
}

func (m *AuthModule) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (GetUserResponse, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return GetUserResponse{}, nil
		}
		return GetUserResponse{}, err
	}
	return GetUserResponse{Found: true, User: NewUserView(user)}, nil
}

func (m *AuthModule) handleSetUserActive(ctx context.Context, req SetUserActiveRequest, _ *mono.Msg) (SetUserActiveResponse, error) {
	user, err := m.service.SetActive(ctx, req.UserID, req.Active)
	if err != nil {
		return SetUserActiveResponse{}, err
	}
	m.logger.Info("User active flag changed", "userID", user.ID, "active", user.IsActive)
	return SetUserActiveResponse{User: NewUserView(user)}, nil
}
