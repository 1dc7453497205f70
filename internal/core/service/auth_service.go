package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
	"github.com/coursereg/registration-system/internal/pkg/metrics"
)

const (
	minPasswordLen = 6
	// bcrypt only accepts passwords up to 72 bytes.
	maxPasswordLen = 72
)

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// AuthService implements self-registration and login.
type AuthService struct {
	repo   ports.UserRepository
	tokens ports.TokenIssuer
	log    zerolog.Logger
}

func NewAuthService(repo ports.UserRepository, tokens ports.TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, log: log}
}

// Register creates a student account. The email and username checks are a
// fast path; the store's unique constraints decide races.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	user := &domain.User{
		FullName: strings.TrimSpace(in.FullName),
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
		Role:     domain.RoleStudent,
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
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Int64("user_id", created.ID).Str("username", created.Username).Msg("student registered")
	return created, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.authenticate(ctx, email, password, "")
}

func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.authenticate(ctx, email, password, domain.RoleAdmin)
}

// authenticate returns ErrInvalidCredentials for an unknown email, a role
// mismatch and a wrong password alike.
func (s *AuthService) authenticate(ctx context.Context, email, password, role string) (string, *domain.User, error) {
	kind := "user"
	if role != "" {
		kind = role
	}

	token, user, err := s.checkCredentials(ctx, strings.TrimSpace(email), password, role)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(kind, "failure").Inc()
		return "", nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues(kind, "success").Inc()
	return token, user, nil
}

func (s *AuthService) checkCredentials(ctx context.Context, email, password, role string) (string, *domain.User, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Burn a comparison so unknown emails cost the same as known ones.
		_ = bcrypt.CompareHashAndPassword(fallbackHash(), []byte(password))
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if role != "" && user.Role != role {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}
	return token, user, nil
}

func validateAccount(user *domain.User, password string) error {
	if user.FullName == "" || user.Username == "" || user.Email == "" || password == "" {
		return domain.NewValidationError("full_name, username, email and password are required")
	}
	if !strings.Contains(user.Email, "@") {
		return domain.NewValidationError("email must be a valid email")
	}
	if len(password) < minPasswordLen {
		return domain.NewValidationError("password must be at least %d characters", minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return domain.NewValidationError("password must be at most %d bytes", maxPasswordLen)
	}
	return nil
}

// ensureUnique checks email before username, matching the order users see
// the errors in.
func ensureUnique(ctx context.Context, repo ports.UserRepository, email, username string) error {
	if _, err := repo.FindByEmail(ctx, email); err == nil {
		return domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("check email: %w", err)
	}

	if _, err := repo.FindByUsername(ctx, username); err == nil {
		return domain.ErrDuplicateUsername
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("check username: %w", err)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func fallbackHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	return dummyHash
}
