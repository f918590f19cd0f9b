package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/marketplace-chat/domain/user"
)

// ErrUnauthenticated is returned when a channel credential cannot be resolved.
var ErrUnauthenticated = errors.New("unauthenticated")

// IdentityResolver turns a bearer token into an identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (user.Identity, error)
}

// AuthGate resolves the credential presented when a channel opens.
type AuthGate struct {
	resolver IdentityResolver
}

// NewAuthGate creates an AuthGate.
func NewAuthGate(resolver IdentityResolver) *AuthGate {
	return &AuthGate{resolver: resolver}
}

// Resolve returns the identity behind token or an error wrapping ErrUnauthenticated.
func (g *AuthGate) Resolve(ctx context.Context, token string) (user.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Identity{}, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	identity, err := g.resolver.Resolve(ctx, token)
	if err != nil {
		return user.Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if identity.UserID <= 0 {
		return user.Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return identity, nil
}
