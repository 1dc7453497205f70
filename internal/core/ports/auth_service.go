package ports

import (
	"context"

	"github.com/coursereg/registration-system/internal/core/domain"
)

// RegisterInput carries the self-registration form.
type RegisterInput struct {
	FullName string
	Username string
	Email    string
	Password string
}

// AuthService defines account registration and login use cases.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	// AdminLogin only matches accounts with the admin role.
	AdminLogin(ctx context.Context, email, password string) (string, *domain.User, error)
}

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// TokenVerifier turns a presented token into an Identity.
// It returns domain.ErrInvalidToken for any malformed, forged or expired token.
type TokenVerifier interface {
	Verify(token string) (*domain.Identity, error)
}
