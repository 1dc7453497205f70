package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

const courseSelect = `
	SELECT c.id, c.course_code, c.title, c.description, c.instructor, c.department,
	       c.credits, c.schedule, c.max_students, c.created_at, c.updated_at,
	       (SELECT COUNT(*) FROM registrations r WHERE r.course_id = c.id AND r.status = 'registered') AS enrolled_count
	FROM courses c`

// CourseRepository implements ports.CourseRepository on SQLite.
type CourseRepository struct {
	db *DB
}

func NewCourseRepository(db *DB) ports.CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) Create(ctx context.Context, course *domain.Course, sessions []domain.ClassSession) (*domain.Course, error) {
	const q = `
		INSERT INTO courses (course_code, title, description, instructor, department, credits, schedule, max_students, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	created := *course
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, q,
			nullIfEmpty(course.CourseCode), course.Title, course.Description, course.Instructor, course.Department,
			course.Credits, course.Schedule, course.MaxStudents, toMillis(course.CreatedAt), toMillis(course.UpdatedAt),
		)
		if err != nil {
			return mapCourseError(err)
		}
		if created.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("course id: %w", err)
		}
		return insertSessions(ctx, tx, created.ID, sessions)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*domain.Course, error) {
	return r.findOne(ctx, courseSelect+` WHERE c.id = ?`, id)
}

func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*domain.Course, error) {
	return r.findOne(ctx, courseSelect+` WHERE c.course_code = ?`, code)
}

func (r *CourseRepository) List(ctx context.Context) ([]*domain.Course, error) {
	var rows []courseRow
	if err := r.db.x.SelectContext(ctx, &rows, courseSelect+` ORDER BY c.created_at DESC, c.id DESC`); err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}

	courses := make([]*domain.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toDomain())
	}
	return courses, nil
}

func (r *CourseRepository) Sessions(ctx context.Context, courseID int64) ([]domain.ClassSession, error) {
	const q = `
		SELECT id, course_id, day_of_week, start_time, end_time, room
		FROM class_sessions WHERE course_id = ? ORDER BY id`

	var rows []sessionRow
	if err := r.db.x.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}

	sessions := make([]domain.ClassSession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.session())
	}
	return sessions, nil
}

func (r *CourseRepository) EnrolledStudents(ctx context.Context, courseID int64) ([]domain.EnrolledStudent, error) {
	const q = `
		SELECT u.id, u.full_name, u.email, r.registration_date
		FROM registrations r
		JOIN users u ON u.id = r.student_id
		WHERE r.course_id = ? AND r.status = 'registered'
		ORDER BY r.registration_date DESC, r.id DESC`

	var rows []rosterRow
	if err := r.db.x.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}

	students := make([]domain.EnrolledStudent, 0, len(rows))
	for _, row := range rows {
		students = append(students, domain.EnrolledStudent{
			ID:               row.ID,
			FullName:         row.FullName,
			Email:            row.Email,
			RegistrationDate: fromMillis(row.RegistrationDate),
		})
	}
	return students, nil
}

func (r *CourseRepository) StudentSchedule(ctx context.Context, studentID int64) ([]domain.ScheduleEntry, error) {
	const q = `
		SELECT s.id, s.course_id, s.day_of_week, s.start_time, s.end_time, s.room,
		       c.course_code, c.title, c.instructor
		FROM registrations r
		JOIN courses c ON c.id = r.course_id
		JOIN class_sessions s ON s.course_id = c.id
		WHERE r.student_id = ? AND r.status = 'registered'
		ORDER BY CASE s.day_of_week
		    WHEN 'Monday' THEN 0 WHEN 'Tuesday' THEN 1 WHEN 'Wednesday' THEN 2
		    WHEN 'Thursday' THEN 3 WHEN 'Friday' THEN 4 WHEN 'Saturday' THEN 5
		    ELSE 6 END, s.start_time`

	var rows []sessionRow
	if err := r.db.x.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, fmt.Errorf("query schedule: %w", err)
	}

	entries := make([]domain.ScheduleEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.ScheduleEntry{
			ClassSession: row.session(),
			CourseCode:   row.CourseCode.String,
			Title:        row.Title,
			Instructor:   row.Instructor,
		})
	}
	return entries, nil
}

func (r *CourseRepository) findOne(ctx context.Context, q string, arg any) (*domain.Course, error) {
	var row courseRow
	if err := r.db.x.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return row.toDomain(), nil
}

func insertSessions(ctx context.Context, tx *sqlx.Tx, courseID int64, sessions []domain.ClassSession) error {
	const q = `
		INSERT INTO class_sessions (course_id, day_of_week, start_time, end_time, room)
		VALUES (?, ?, ?, ?, ?)`

	for _, s := range sessions {
		if _, err := tx.ExecContext(ctx, q, courseID, s.DayOfWeek, s.StartTime, s.EndTime, s.Room); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	}
	return nil
}

func mapCourseError(err error) error {
	if isUniqueViolation(err, "courses.course_code") {
		return domain.ErrDuplicateCourseCode
	}
	return fmt.Errorf("write course: %w", err)
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
