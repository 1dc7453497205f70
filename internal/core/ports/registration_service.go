package ports

import (
	"context"

	"github.com/coursereg/registration-system/internal/core/domain"
)

// RegisterCourseInput carries a registration request. The student is the
// requester; IdempotencyKey is optional.
type RegisterCourseInput struct {
	Requester      domain.Identity
	CourseID       int64
	IdempotencyKey string
}

// RegistrationResult is returned by Register.
type RegistrationResult struct {
	RegistrationID int64  `json:"registration_id"`
	CourseID       int64  `json:"course_id"`
	Status         string `json:"status"`
	Message        string `json:"message"`
	// Restored is true when a dropped row was flipped back to registered.
	Restored bool `json:"restored"`
	// Replayed is true when the result came from the idempotency store.
	Replayed bool `json:"-"`
}

// IdempotencyStore remembers registration results per (scope, key).
type IdempotencyStore interface {
	Lookup(ctx context.Context, scope, key string) (*RegistrationResult, bool, error)
	Save(ctx context.Context, scope, key string, result *RegistrationResult) error
}

// AuditPublisher accepts ledger transitions for the audit trail. Publish
// must not block the caller.
type AuditPublisher interface {
	Publish(event domain.RegistrationEvent)
}

// AuditRepository persists and reads the audit trail.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.RegistrationEvent) error
	ListByRegistration(ctx context.Context, registrationID int64) ([]*domain.RegistrationEvent, error)
}

// RegistrationService defines the ledger use cases.
type RegistrationService interface {
	Register(ctx context.Context, in RegisterCourseInput) (*RegistrationResult, error)
	Drop(ctx context.Context, registrationID int64, requester domain.Identity) error
	SetStatus(ctx context.Context, registrationID int64, status domain.RegistrationStatus, requester domain.Identity) (*domain.Registration, error)
	ListForStudent(ctx context.Context, studentID int64, requester domain.Identity) ([]*domain.RegistrationView, error)
	ListAll(ctx context.Context, requester domain.Identity, limit int) ([]*domain.RegistrationView, error)
	History(ctx context.Context, registrationID int64, requester domain.Identity) ([]*domain.RegistrationEvent, error)
}

// DashboardService defines the admin overview.
type DashboardService interface {
	Stats(ctx context.Context) (*domain.DashboardStats, error)
}
