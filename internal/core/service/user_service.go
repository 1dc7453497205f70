package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

type userService struct {
	repo ports.UserRepository
	log  zerolog.Logger
}

// NewUserService returns the admin account management use cases.
func NewUserService(repo ports.UserRepository, log zerolog.Logger) ports.UserService {
	return &userService{repo: repo, log: log}
}

func (s *userService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *userService) Create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = domain.RoleStudent
	}
	if !domain.ValidRole(role) {
		return nil, domain.NewValidationError("role must be one of: admin student")
	}

	user := &domain.User{
		FullName: strings.TrimSpace(in.FullName),
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
		Role:     role,
	}
	if err := validateAccount(user, in.Password); err != nil {
		return nil, err
	}
	if err := ensureUnique(ctx, s.repo, user.Email, user.Username); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Int64("user_id", created.ID).Str("role", created.Role).Msg("user created by admin")
	return created, nil
}

// Update changes profile fields and role. A role change takes effect at the
// user's next login; tokens already issued keep their claims until expiry.
func (s *userService) Update(ctx context.Context, in ports.UpdateUserInput) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, in.ID)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	fullName := strings.TrimSpace(in.FullName)
	email := strings.TrimSpace(in.Email)
	role := strings.TrimSpace(in.Role)
	if fullName == "" || email == "" {
		return nil, domain.NewValidationError("full_name and email are required")
	}
	if !strings.Contains(email, "@") {
		return nil, domain.NewValidationError("email must be a valid email")
	}
	if !domain.ValidRole(role) {
		return nil, domain.NewValidationError("role must be one of: admin student")
	}

	if email != user.Email {
		other, err := s.repo.FindByEmail(ctx, email)
		switch {
		case err == nil && other.ID != user.ID:
			return nil, domain.ErrDuplicateEmail
		case err != nil && !errors.Is(err, domain.ErrUserNotFound):
			return nil, fmt.Errorf("update user: check email: %w", err)
		}
	}

	user.FullName = fullName
	user.Email = email
	user.Role = role
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// Delete removes an account and its registrations. Admins cannot delete
// their own account.
func (s *userService) Delete(ctx context.Context, id int64, requester domain.Identity) error {
	if !requester.IsAdmin() || requester.UserID == id {
		return domain.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.log.Info().Int64("user_id", id).Int64("admin_id", requester.UserID).Msg("user deleted")
	return nil
}
