package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

// courseSelect annotates each course with its active registration count.
const courseSelect = `
	SELECT c.id, c.course_code, c.title, c.description, c.instructor, c.department,
	       c.credits, c.schedule, c.max_students, c.created_at, c.updated_at,
	       (SELECT COUNT(*) FROM registrations r WHERE r.course_id = c.id AND r.status = 'registered')
	FROM courses c`

// CourseRepository implements ports.CourseRepository on PostgreSQL.
type CourseRepository struct {
	db *DB
}

func NewCourseRepository(db *DB) ports.CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) Create(ctx context.Context, course *domain.Course, sessions []domain.ClassSession) (*domain.Course, error) {
	const q = `
		INSERT INTO courses (course_code, title, description, instructor, department, credits, schedule, max_students, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	created := *course
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, q,
			nullIfEmpty(course.CourseCode), course.Title, course.Description, course.Instructor, course.Department,
			course.Credits, course.Schedule, course.MaxStudents, course.CreatedAt, course.UpdatedAt,
		).Scan(&created.ID)
		if err != nil {
			return mapCourseError(err)
		}
		return insertSessions(ctx, tx, created.ID, sessions)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*domain.Course, error) {
	c, err := scanCourse(r.db.Pool.QueryRow(ctx, courseSelect+` WHERE c.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCourseNotFound
	}
	return c, err
}

func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*domain.Course, error) {
	c, err := scanCourse(r.db.Pool.QueryRow(ctx, courseSelect+` WHERE c.course_code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCourseNotFound
	}
	return c, err
}

func (r *CourseRepository) List(ctx context.Context) ([]*domain.Course, error) {
	rows, err := r.db.Pool.Query(ctx, courseSelect+` ORDER BY c.created_at DESC, c.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	courses := []*domain.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (r *CourseRepository) Sessions(ctx context.Context, courseID int64) ([]domain.ClassSession, error) {
	const q = `
		SELECT id, course_id, day_of_week, start_time, end_time, room
		FROM class_sessions WHERE course_id = $1 ORDER BY id`

	rows, err := r.db.Pool.Query(ctx, q, courseID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.ClassSession{}
	for rows.Next() {
		var s domain.ClassSession
		if err := rows.Scan(&s.ID, &s.CourseID, &s.DayOfWeek, &s.StartTime, &s.EndTime, &s.Room); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *CourseRepository) EnrolledStudents(ctx context.Context, courseID int64) ([]domain.EnrolledStudent, error) {
	const q = `
		SELECT u.id, u.full_name, u.email, r.registration_date
		FROM registrations r
		JOIN users u ON u.id = r.student_id
		WHERE r.course_id = $1 AND r.status = 'registered'
		ORDER BY r.registration_date DESC, r.id DESC`

	rows, err := r.db.Pool.Query(ctx, q, courseID)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	students := []domain.EnrolledStudent{}
	for rows.Next() {
		var s domain.EnrolledStudent
		if err := rows.Scan(&s.ID, &s.FullName, &s.Email, &s.RegistrationDate); err != nil {
			return nil, fmt.Errorf("scan roster: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

func (r *CourseRepository) StudentSchedule(ctx context.Context, studentID int64) ([]domain.ScheduleEntry, error) {
	const q = `
		SELECT s.id, s.course_id, s.day_of_week, s.start_time, s.end_time, s.room,
		       c.course_code, c.title, c.instructor
		FROM registrations r
		JOIN courses c ON c.id = r.course_id
		JOIN class_sessions s ON s.course_id = c.id
		WHERE r.student_id = $1 AND r.status = 'registered'
		ORDER BY CASE s.day_of_week
		    WHEN 'Monday' THEN 0 WHEN 'Tuesday' THEN 1 WHEN 'Wednesday' THEN 2
		    WHEN 'Thursday' THEN 3 WHEN 'Friday' THEN 4 WHEN 'Saturday' THEN 5
		    ELSE 6 END, s.start_time`

	rows, err := r.db.Pool.Query(ctx, q, studentID)
	if err != nil {
		return nil, fmt.Errorf("query schedule: %w", err)
	}
	defer rows.Close()

	entries := []domain.ScheduleEntry{}
	for rows.Next() {
		var (
			e    domain.ScheduleEntry
			code *string
		)
		if err := rows.Scan(&e.ID, &e.CourseID, &e.DayOfWeek, &e.StartTime, &e.EndTime, &e.Room, &code, &e.Title, &e.Instructor); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		e.CourseCode = derefString(code)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func insertSessions(ctx context.Context, tx pgx.Tx, courseID int64, sessions []domain.ClassSession) error {
	const q = `
		INSERT INTO class_sessions (course_id, day_of_week, start_time, end_time, room)
		VALUES ($1, $2, $3, $4, $5)`

	for _, s := range sessions {
		if _, err := tx.Exec(ctx, q, courseID, s.DayOfWeek, s.StartTime, s.EndTime, s.Room); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	}
	return nil
}

func scanCourse(row pgx.Row) (*domain.Course, error) {
	var (
		c    domain.Course
		code *string
	)
	err := row.Scan(&c.ID, &code, &c.Title, &c.Description, &c.Instructor, &c.Department,
		&c.Credits, &c.Schedule, &c.MaxStudents, &c.CreatedAt, &c.UpdatedAt, &c.EnrolledCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan course: %w", err)
	}
	c.CourseCode = derefString(code)
	return &c, nil
}

func mapCourseError(err error) error {
	if isUniqueViolation(err, "courses_course_code_key") {
		return domain.ErrDuplicateCourseCode
	}
	return fmt.Errorf("write course: %w", err)
}
