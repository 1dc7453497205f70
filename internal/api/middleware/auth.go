package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

// Context keys set by Auth.
const (
	IdentityKey = "identity"
	RoleKey     = "role"

	tokenCookie = "token"
)

// Auth verifies the bearer token, falling back to the token cookie, and
// stores the caller's domain.Identity in the context.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := extractToken(c)
			if err != nil {
				return err
			}

			identity, err := verifier.Verify(raw)
			if err != nil {
				return domain.ErrInvalidToken
			}

			c.Set(IdentityKey, *identity)
			c.Set(RoleKey, identity.Role)

			return next(c)
		}
	}
}

func extractToken(c echo.Context) (string, error) {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", domain.ErrInvalidToken
		}
		return strings.TrimSpace(parts[1]), nil
	}

	if cookie, err := c.Cookie(tokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", domain.ErrUnauthenticated
}
