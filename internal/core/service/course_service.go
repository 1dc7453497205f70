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
	"github.com/coursereg/registration-system/internal/pkg/metrics"
)

type courseService struct {
	courses ports.CourseRepository
	ledger  ports.RegistrationRepository
	cache   ports.CourseListCache
	log     zerolog.Logger
}

// NewCourseService returns the catalog use cases. cache may be nil.
func NewCourseService(
	courses ports.CourseRepository,
	ledger ports.RegistrationRepository,
	cache ports.CourseListCache,
	log zerolog.Logger,
) ports.CourseService {
	return &courseService{courses: courses, ledger: ledger, cache: cache, log: log}
}

// List returns the public catalog. The result may come from the display
// cache; enrolled counts there can lag the ledger by the cache TTL.
func (s *courseService) List(ctx context.Context) ([]*domain.Course, error) {
	if s.cache != nil {
		if courses, ok := s.cache.Get(); ok {
			return courses, nil
		}
	}

	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(courses)
	}
	return courses, nil
}

func (s *courseService) Get(ctx context.Context, id int64) (*domain.CourseDetail, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}

	sessions, err := s.courses.Sessions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get course sessions: %w", err)
	}

	students, err := s.courses.EnrolledStudents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get course roster: %w", err)
	}

	return &domain.CourseDetail{Course: *course, Sessions: sessions, Students: students}, nil
}

func (s *courseService) Create(ctx context.Context, in ports.CourseInput) (*domain.Course, error) {
	course, sessions, err := buildCourse(in)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(ctx, course.CourseCode, 0); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	course.CreatedAt, course.UpdatedAt = now, now

	created, err := s.courses.Create(ctx, course, sessions)
	if err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	s.invalidate()

	s.log.Info().Int64("course_id", created.ID).Str("code", created.CourseCode).Msg("course created")
	return created, nil
}

// Update runs under the course lock so a capacity change cannot interleave
// with a registration.
func (s *courseService) Update(ctx context.Context, id int64, in ports.CourseInput) (*domain.Course, error) {
	changes, sessions, err := buildCourse(in)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(ctx, changes.CourseCode, id); err != nil {
		return nil, err
	}
	if in.Sessions == nil {
		sessions = nil
	}

	var updated domain.Course
	start := time.Now()
	err = s.ledger.WithCourseLock(ctx, id, func(ctx context.Context, tx ports.CourseTx, current *domain.Course) error {
		active, err := tx.CountActive(ctx)
		if err != nil {
			return fmt.Errorf("count active: %w", err)
		}
		if changes.MaxStudents < active {
			return domain.ErrCapacityBelowEnrollment
		}

		updated = *current
		updated.CourseCode = changes.CourseCode
		updated.Title = changes.Title
		updated.Description = changes.Description
		updated.Instructor = changes.Instructor
		updated.Department = changes.Department
		updated.Credits = changes.Credits
		updated.Schedule = changes.Schedule
		updated.MaxStudents = changes.MaxStudents
		updated.EnrolledCount = active
		updated.UpdatedAt = time.Now().UTC()

		return tx.UpdateCourse(ctx, &updated, sessions)
	})
	metrics.LedgerLockDuration.WithLabelValues("update_course").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	s.invalidate()

	s.log.Info().Int64("course_id", id).Msg("course updated")
	return &updated, nil
}

// Delete refuses while any registration of the course is active.
func (s *courseService) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.ledger.WithCourseLock(ctx, id, func(ctx context.Context, tx ports.CourseTx, _ *domain.Course) error {
		active, err := tx.CountActive(ctx)
		if err != nil {
			return fmt.Errorf("count active: %w", err)
		}
		if active > 0 {
			return domain.ErrHasActiveRegistrations
		}
		return tx.DeleteCourse(ctx)
	})
	metrics.LedgerLockDuration.WithLabelValues("delete_course").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	s.invalidate()

	s.log.Info().Int64("course_id", id).Msg("course deleted")
	return nil
}

func (s *courseService) StudentSchedule(ctx context.Context, studentID int64, requester domain.Identity) ([]domain.ScheduleEntry, error) {
	if !requester.CanActFor(studentID) {
		return nil, domain.ErrForbidden
	}
	entries, err := s.courses.StudentSchedule(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("student schedule: %w", err)
	}
	return entries, nil
}

// ensureCodeFree rejects a course code held by a course other than selfID.
func (s *courseService) ensureCodeFree(ctx context.Context, code string, selfID int64) error {
	if code == "" {
		return nil
	}
	existing, err := s.courses.FindByCode(ctx, code)
	switch {
	case errors.Is(err, domain.ErrCourseNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check course code: %w", err)
	case existing.ID != selfID:
		return domain.ErrDuplicateCourseCode
	}
	return nil
}

func (s *courseService) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

func buildCourse(in ports.CourseInput) (*domain.Course, []domain.ClassSession, error) {
	course := &domain.Course{
		CourseCode:  strings.TrimSpace(in.CourseCode),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Instructor:  strings.TrimSpace(in.Instructor),
		Department:  strings.TrimSpace(in.Department),
		Credits:     in.Credits,
		Schedule:    strings.TrimSpace(in.Schedule),
		MaxStudents: in.MaxStudents,
	}

	if course.Title == "" {
		return nil, nil, domain.NewValidationError("title is required")
	}
	if course.MaxStudents < 1 {
		return nil, nil, domain.NewValidationError("max_students must be at least 1")
	}
	if course.Credits < 0 {
		return nil, nil, domain.NewValidationError("credits cannot be negative")
	}

	sessions := make([]domain.ClassSession, 0, len(in.Sessions))
	for _, si := range in.Sessions {
		session := domain.ClassSession{
			DayOfWeek: strings.TrimSpace(si.DayOfWeek),
			StartTime: strings.TrimSpace(si.StartTime),
			EndTime:   strings.TrimSpace(si.EndTime),
			Room:      strings.TrimSpace(si.Room),
		}
		if err := session.Validate(); err != nil {
			return nil, nil, err
		}
		sessions = append(sessions, session)
	}
	return course, sessions, nil
}
