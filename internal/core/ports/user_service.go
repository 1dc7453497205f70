package ports

import (
	"context"

	"github.com/coursereg/registration-system/internal/core/domain"
)

// CreateUserInput is the admin form for a new account.
type CreateUserInput struct {
	FullName string
	Username string
	Email    string
	Password string
	Role     string
}

// UpdateUserInput is the admin form for editing an account.
type UpdateUserInput struct {
	ID       int64
	FullName string
	Email    string
	Role     string
}

// UserService defines admin account management.
type UserService interface {
	List(ctx context.Context) ([]*domain.User, error)
	Create(ctx context.Context, in CreateUserInput) (*domain.User, error)
	Update(ctx context.Context, in UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, id int64, requester domain.Identity) error
}
