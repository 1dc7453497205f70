package ports

import (
	"context"

	"github.com/coursereg/registration-system/internal/core/domain"
)

// SessionInput is one weekly meeting in a course form.
type SessionInput struct {
	DayOfWeek string
	StartTime string
	EndTime   string
	Room      string
}

// CourseInput is the admin course form. A nil Sessions leaves existing
// sessions untouched on update.
type CourseInput struct {
	CourseCode  string
	Title       string
	Description string
	Instructor  string
	Department  string
	Credits     int
	Schedule    string
	MaxStudents int
	Sessions    []SessionInput
}

// CourseListCache holds the display copy of the public course list.
type CourseListCache interface {
	Get() ([]*domain.Course, bool)
	Set(courses []*domain.Course)
	Invalidate()
}

// CourseService defines catalog use cases.
type CourseService interface {
	List(ctx context.Context) ([]*domain.Course, error)
	Get(ctx context.Context, id int64) (*domain.CourseDetail, error)
	Create(ctx context.Context, in CourseInput) (*domain.Course, error)
	Update(ctx context.Context, id int64, in CourseInput) (*domain.Course, error)
	Delete(ctx context.Context, id int64) error
	StudentSchedule(ctx context.Context, studentID int64, requester domain.Identity) ([]domain.ScheduleEntry, error)
}
