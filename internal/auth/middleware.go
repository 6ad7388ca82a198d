package auth

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// TokenResolver is the slice of the storage contract the guard needs.
type TokenResolver interface {
	GetUserByToken(ctx context.Context, token string) (*domain.User, error)
}

// Principal represents the authenticated caller.
type Principal struct {
	User  *domain.User
	Token string
}

// Middleware validates API keys from the access_token header and loads the
// owning user. A token only reaches the storage lookup after its integrity
// stamp checks out against the shared secret.
type Middleware struct {
	secret string
	store  TokenResolver
}

// NewMiddleware constructs the guard.
func NewMiddleware(secret string, store TokenResolver) *Middleware {
	return &Middleware{secret: secret, store: store}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	token := c.Get("access_token")
	if token == "" {
		return apperrors.NewUnauthorized("missing access_token header")
	}
	if !ValidateAPIKey(token, m.secret) {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.store.GetUserByToken(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNotActive) {
			return apperrors.NewUnauthorized("invalid token")
		}
		return err
	}

	c.Locals(principalKey, &Principal{User: user, Token: token})
	return c.Next()
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	principal, ok := c.Locals(principalKey).(*Principal)
	return principal, ok
}

// RequireRole restricts a route to the listed roles. With no roles given any
// authenticated caller passes.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowed) == 0 {
			return c.Next()
		}
		for _, role := range allowed {
			if principal.User.Role == role {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient role")
	}
}
