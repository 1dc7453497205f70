package ports

import (
	"context"

	"github.com/coursereg/registration-system/internal/core/domain"
)

// CourseTx is a unit of work bound to one locked course. Every method acts on
// that course only.
type CourseTx interface {
	CountActive(ctx context.Context) (int, error)
	// FindByStudent returns the pair row or domain.ErrRegistrationNotFound.
	FindByStudent(ctx context.Context, studentID int64) (*domain.Registration, error)
	Insert(ctx context.Context, studentID int64) (*domain.Registration, error)
	SetStatus(ctx context.Context, registrationID int64, status domain.RegistrationStatus) (*domain.Registration, error)
	// UpdateCourse writes the course fields; sessions are replaced when non-nil.
	UpdateCourse(ctx context.Context, course *domain.Course, sessions []domain.ClassSession) error
	DeleteCourse(ctx context.Context) error
}

// CourseTxFunc runs inside WithCourseLock. Returning an error rolls back.
type CourseTxFunc func(ctx context.Context, tx CourseTx, course *domain.Course) error

// RegistrationRepository defines the ledger store.
type RegistrationRepository interface {
	// WithCourseLock runs fn in a transaction holding an exclusive lock on the
	// course. Concurrent callers for the same course are serialized. It returns
	// domain.ErrCourseNotFound when the course does not exist.
	WithCourseLock(ctx context.Context, courseID int64, fn CourseTxFunc) error
	FindByID(ctx context.Context, id int64) (*domain.Registration, error)
	// SetStatus is a single-statement write used for drops, which never need
	// a capacity check.
	SetStatus(ctx context.Context, id int64, status domain.RegistrationStatus) (*domain.Registration, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*domain.RegistrationView, error)
	// ListAll returns rows of every status, newest first. limit <= 0 means no limit.
	ListAll(ctx context.Context, limit int) ([]*domain.RegistrationView, error)
}

// StatsRepository computes dashboard aggregates.
type StatsRepository interface {
	Stats(ctx context.Context, recentLimit int) (*domain.DashboardStats, error)
}
