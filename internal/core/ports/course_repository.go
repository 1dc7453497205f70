package ports

import (
	"context"

	"github.com/coursereg/registration-system/internal/core/domain"
)

// CourseRepository defines catalog reads and course creation. Changes to an
// existing course go through RegistrationRepository.WithCourseLock so they
// serialize with enrollment.
type CourseRepository interface {
	Create(ctx context.Context, course *domain.Course, sessions []domain.ClassSession) (*domain.Course, error)
	FindByID(ctx context.Context, id int64) (*domain.Course, error)
	FindByCode(ctx context.Context, code string) (*domain.Course, error)
	// List returns every course, newest first, with EnrolledCount set.
	List(ctx context.Context) ([]*domain.Course, error)
	Sessions(ctx context.Context, courseID int64) ([]domain.ClassSession, error)
	// EnrolledStudents returns students with an active registration, newest first.
	EnrolledStudents(ctx context.Context, courseID int64) ([]domain.EnrolledStudent, error)
	// StudentSchedule returns sessions of every course the student is registered
	// for, ordered by weekday then start time.
	StudentSchedule(ctx context.Context, studentID int64) ([]domain.ScheduleEntry, error)
}
