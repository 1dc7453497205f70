package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
	"github.com/coursereg/registration-system/internal/core/service"
	"github.com/coursereg/registration-system/internal/infrastructure/db/sqlite"
)

type fixture struct {
	db      *sqlite.DB
	users   ports.UserRepository
	courses ports.CourseRepository
	ledger  *sqlite.RegistrationRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "coursereg.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &fixture{
		db:      db,
		users:   sqlite.NewUserRepository(db),
		courses: sqlite.NewCourseRepository(db),
		ledger:  sqlite.NewRegistrationRepository(db),
	}
}

func (f *fixture) student(t *testing.T, username string) *domain.User {
	t.Helper()
	now := time.Now()
	u, err := f.users.Create(context.Background(), &domain.User{
		Username:     username,
		Email:        username + "@example.edu",
		PasswordHash: "x",
		FullName:     username,
		Role:         domain.RoleStudent,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) course(t *testing.T, code string, capacity int) *domain.Course {
	t.Helper()
	now := time.Now()
	c, err := f.courses.Create(context.Background(), &domain.Course{
		CourseCode:  code,
		Title:       code + " title",
		MaxStudents: capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, []domain.ClassSession{
		{DayOfWeek: "Wednesday", StartTime: "10:00", EndTime: "11:00", Room: "B2"},
		{DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", Room: "A1"},
	})
	require.NoError(t, err)
	return c
}

func identity(u *domain.User) domain.Identity {
	return domain.Identity{UserID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, FullName: u.FullName}
}

func TestUserRepository_UniqueConstraints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.student(t, "ana")

	_, err := f.users.Create(ctx, &domain.User{Username: "other", Email: u.Email, PasswordHash: "x", FullName: "o", Role: domain.RoleStudent})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	_, err = f.users.Create(ctx, &domain.User{Username: u.Username, Email: "new@example.edu", PasswordHash: "x", FullName: "o", Role: domain.RoleStudent})
	assert.ErrorIs(t, err, domain.ErrDuplicateUsername)

	got, err := f.users.FindByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.users.FindByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, f.users.Delete(ctx, u.ID))
	assert.ErrorIs(t, f.users.Delete(ctx, u.ID), domain.ErrUserNotFound)
}

func TestCourseRepository_CatalogReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.course(t, "CS101", 3)

	_, err := f.courses.Create(ctx, &domain.Course{CourseCode: "CS101", Title: "dup", MaxStudents: 1}, nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateCourseCode)

	// Courses without a code do not collide with each other.
	_, err = f.courses.Create(ctx, &domain.Course{Title: "a", MaxStudents: 1}, nil)
	require.NoError(t, err)
	_, err = f.courses.Create(ctx, &domain.Course{Title: "b", MaxStudents: 1}, nil)
	require.NoError(t, err)

	s := f.student(t, "ben")
	require.NoError(t, f.ledger.WithCourseLock(ctx, c.ID, func(ctx context.Context, tx ports.CourseTx, _ *domain.Course) error {
		_, err := tx.Insert(ctx, s.ID)
		return err
	}))

	got, err := f.courses.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.EnrolledCount)
	assert.Equal(t, "CS101", got.CourseCode)

	roster, err := f.courses.EnrolledStudents(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, s.ID, roster[0].ID)

	schedule, err := f.courses.StudentSchedule(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.Equal(t, "Monday", schedule[0].DayOfWeek)
	assert.Equal(t, "CS101", schedule[0].CourseCode)

	all, err := f.courses.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRegistrationRepository_LockedWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.course(t, "CS200", 2)
	s := f.student(t, "cy")

	var regID int64
	err := f.ledger.WithCourseLock(ctx, c.ID, func(ctx context.Context, tx ports.CourseTx, course *domain.Course) error {
		assert.Equal(t, 2, course.MaxStudents)
		reg, err := tx.Insert(ctx, s.ID)
		if err != nil {
			return err
		}
		regID = reg.ID

		_, err = tx.Insert(ctx, s.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)

		n, err := tx.CountActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return nil
	})
	require.NoError(t, err)

	dropped, err := f.ledger.SetStatus(ctx, regID, domain.StatusDropped)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDropped, dropped.Status)

	err = f.ledger.WithCourseLock(ctx, c.ID, func(ctx context.Context, tx ports.CourseTx, _ *domain.Course) error {
		existing, err := tx.FindByStudent(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, regID, existing.ID)
		_, err = tx.SetStatus(ctx, existing.ID, domain.StatusRegistered)
		return err
	})
	require.NoError(t, err)

	views, err := f.ledger.ListByStudent(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, domain.StatusRegistered, views[0].Status)
	assert.Equal(t, "CS200", views[0].CourseCode)
	assert.Equal(t, s.Email, views[0].StudentEmail)

	_, err = f.ledger.SetStatus(ctx, 999, domain.StatusDropped)
	assert.ErrorIs(t, err, domain.ErrRegistrationNotFound)

	err = f.ledger.WithCourseLock(ctx, 999, func(context.Context, ports.CourseTx, *domain.Course) error { return nil })
	assert.ErrorIs(t, err, domain.ErrCourseNotFound)
}

func TestRegistrationRepository_RollbackOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.course(t, "CS210", 2)
	s := f.student(t, "dee")

	err := f.ledger.WithCourseLock(ctx, c.ID, func(ctx context.Context, tx ports.CourseTx, _ *domain.Course) error {
		if _, err := tx.Insert(ctx, s.ID); err != nil {
			return err
		}
		return domain.ErrCourseFull
	})
	require.ErrorIs(t, err, domain.ErrCourseFull)

	views, err := f.ledger.ListByStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestRegistrationRepository_UpdateAndDeleteCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.course(t, "CS300", 5)

	err := f.ledger.WithCourseLock(ctx, c.ID, func(ctx context.Context, tx ports.CourseTx, course *domain.Course) error {
		course.Title = "Renamed"
		course.MaxStudents = 7
		return tx.UpdateCourse(ctx, course, []domain.ClassSession{
			{DayOfWeek: "Friday", StartTime: "13:00", EndTime: "14:30", Room: "C3"},
		})
	})
	require.NoError(t, err)

	got, err := f.courses.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, 7, got.MaxStudents)

	sessions, err := f.courses.Sessions(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Friday", sessions[0].DayOfWeek)

	err = f.ledger.WithCourseLock(ctx, c.ID, func(ctx context.Context, tx ports.CourseTx, _ *domain.Course) error {
		return tx.DeleteCourse(ctx)
	})
	require.NoError(t, err)

	_, err = f.courses.FindByID(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrCourseNotFound)

	sessions, err = f.courses.Sessions(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRegistrationRepository_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := service.NewRegistrationService(f.ledger, zerolog.Nop())
	c := f.course(t, "CS400", 10)

	for _, name := range []string{"e1", "e2", "e3"} {
		s := f.student(t, name)
		_, err := svc.Register(ctx, ports.RegisterCourseInput{Requester: identity(s), CourseID: c.ID})
		require.NoError(t, err)
	}

	stats, err := f.ledger.Stats(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalStudents)
	assert.EqualValues(t, 1, stats.TotalCourses)
	assert.EqualValues(t, 3, stats.ActiveRegistrations)
	assert.Len(t, stats.RecentRegistrations, 2)

	all, err := f.ledger.ListAll(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRegister_ConcurrentLastSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := service.NewRegistrationService(f.ledger, zerolog.Nop())

	const capacity, contenders = 3, 12
	c := f.course(t, "CS500", capacity)

	students := make([]*domain.User, contenders)
	for i := range students {
		students[i] = f.student(t, "race"+string(rune('a'+i)))
	}

	var (
		wg               sync.WaitGroup
		mu               sync.Mutex
		succeeded, fulls int
	)
	for _, s := range students {
		wg.Add(1)
		go func(s *domain.User) {
			defer wg.Done()
			_, err := svc.Register(ctx, ports.RegisterCourseInput{Requester: identity(s), CourseID: c.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, domain.ErrCourseFull):
				fulls++
			}
		}(s)
	}
	wg.Wait()

	assert.Equal(t, capacity, succeeded)
	assert.Equal(t, contenders-capacity, fulls)

	got, err := f.courses.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, got.EnrolledCount)
}
