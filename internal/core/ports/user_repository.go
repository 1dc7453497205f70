package ports

import (
	"context"

	"github.com/coursereg/registration-system/internal/core/domain"
)

// UserRepository defines persistence for accounts. Create and Update map
// unique violations to domain.ErrDuplicateEmail or domain.ErrDuplicateUsername.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	// Delete removes the user and, by cascade, their registrations.
	Delete(ctx context.Context, id int64) error
}
