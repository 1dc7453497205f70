package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

const registrationColumns = `id, student_id, course_id, status, registration_date, updated_at`

const viewSelect = `
	SELECT r.id, r.student_id, r.course_id, r.status, r.registration_date, r.updated_at,
	       u.full_name AS student_name, u.email AS student_email, c.course_code,
	       c.title AS course_title, c.instructor, c.credits, c.schedule
	FROM registrations r
	JOIN users u ON u.id = r.student_id
	JOIN courses c ON c.id = r.course_id`

// RegistrationRepository implements the ledger and stats ports on SQLite.
// The course lock is the database write lock taken by BEGIN IMMEDIATE, which
// is coarser than a row lock but gives the same guarantee.
type RegistrationRepository struct {
	db *DB
}

func NewRegistrationRepository(db *DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

var (
	_ ports.RegistrationRepository = (*RegistrationRepository)(nil)
	_ ports.StatsRepository        = (*RegistrationRepository)(nil)
)

func (r *RegistrationRepository) WithCourseLock(ctx context.Context, courseID int64, fn ports.CourseTxFunc) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		const q = `
			SELECT id, course_code, title, description, instructor, department,
			       credits, schedule, max_students, created_at, updated_at, 0 AS enrolled_count
			FROM courses WHERE id = ?`

		var row courseRow
		if err := tx.GetContext(ctx, &row, q, courseID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrCourseNotFound
			}
			return fmt.Errorf("lock course: %w", err)
		}
		return fn(ctx, &courseTx{tx: tx, courseID: courseID}, row.toDomain())
	})
}

func (r *RegistrationRepository) FindByID(ctx context.Context, id int64) (*domain.Registration, error) {
	var row registrationRow
	err := r.db.x.GetContext(ctx, &row, `SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return row.toDomain(), nil
}

func (r *RegistrationRepository) SetStatus(ctx context.Context, id int64, status domain.RegistrationStatus) (*domain.Registration, error) {
	return setStatus(ctx, r.db.x, id, status)
}

func (r *RegistrationRepository) ListByStudent(ctx context.Context, studentID int64) ([]*domain.RegistrationView, error) {
	return r.queryViews(ctx, viewSelect+` WHERE r.student_id = ? ORDER BY r.registration_date DESC, r.id DESC`, studentID)
}

func (r *RegistrationRepository) ListAll(ctx context.Context, limit int) ([]*domain.RegistrationView, error) {
	q := viewSelect + ` ORDER BY r.registration_date DESC, r.id DESC`
	if limit > 0 {
		return r.queryViews(ctx, q+` LIMIT ?`, limit)
	}
	return r.queryViews(ctx, q)
}

func (r *RegistrationRepository) Stats(ctx context.Context, recentLimit int) (*domain.DashboardStats, error) {
	const q = `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role = 'student'),
			(SELECT COUNT(*) FROM courses),
			(SELECT COUNT(*) FROM registrations WHERE status = 'registered')`

	var stats domain.DashboardStats
	if err := r.db.x.QueryRowContext(ctx, q).Scan(&stats.TotalStudents, &stats.TotalCourses, &stats.ActiveRegistrations); err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	recent, err := r.queryViews(ctx,
		viewSelect+` WHERE r.status = 'registered' ORDER BY r.registration_date DESC, r.id DESC LIMIT ?`, recentLimit)
	if err != nil {
		return nil, err
	}
	stats.RecentRegistrations = recent
	return &stats, nil
}

func (r *RegistrationRepository) queryViews(ctx context.Context, q string, args ...any) ([]*domain.RegistrationView, error) {
	var rows []viewRow
	if err := r.db.x.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}

	views := make([]*domain.RegistrationView, 0, len(rows))
	for _, row := range rows {
		views = append(views, row.toDomain())
	}
	return views, nil
}

// courseTx implements ports.CourseTx inside an IMMEDIATE transaction.
type courseTx struct {
	tx       *sqlx.Tx
	courseID int64
}

func (t *courseTx) CountActive(ctx context.Context) (int, error) {
	var n int
	err := t.tx.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM registrations WHERE course_id = ? AND status = 'registered'`, t.courseID)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

func (t *courseTx) FindByStudent(ctx context.Context, studentID int64) (*domain.Registration, error) {
	var row registrationRow
	err := t.tx.GetContext(ctx, &row,
		`SELECT `+registrationColumns+` FROM registrations WHERE student_id = ? AND course_id = ?`,
		studentID, t.courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return row.toDomain(), nil
}

func (t *courseTx) Insert(ctx context.Context, studentID int64) (*domain.Registration, error) {
	now := toMillis(time.Now())
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO registrations (student_id, course_id, status, registration_date, updated_at)
		 VALUES (?, ?, 'registered', ?, ?)`,
		studentID, t.courseID, now, now)
	if isUniqueViolation(err, "registrations.student_id") {
		return nil, domain.ErrAlreadyRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("registration id: %w", err)
	}
	return &domain.Registration{
		ID:               id,
		StudentID:        studentID,
		CourseID:         t.courseID,
		Status:           domain.StatusRegistered,
		RegistrationDate: fromMillis(now),
		UpdatedAt:        fromMillis(now),
	}, nil
}

func (t *courseTx) SetStatus(ctx context.Context, id int64, status domain.RegistrationStatus) (*domain.Registration, error) {
	return setStatus(ctx, t.tx, id, status)
}

func (t *courseTx) UpdateCourse(ctx context.Context, c *domain.Course, sessions []domain.ClassSession) error {
	const q = `
		UPDATE courses SET course_code = ?, title = ?, description = ?, instructor = ?, department = ?,
		       credits = ?, schedule = ?, max_students = ?, updated_at = ?
		WHERE id = ?`

	_, err := t.tx.ExecContext(ctx, q,
		nullIfEmpty(c.CourseCode), c.Title, c.Description, c.Instructor, c.Department,
		c.Credits, c.Schedule, c.MaxStudents, toMillis(c.UpdatedAt), t.courseID,
	)
	if err != nil {
		return mapCourseError(err)
	}
	if sessions == nil {
		return nil
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM class_sessions WHERE course_id = ?`, t.courseID); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return insertSessions(ctx, t.tx, t.courseID, sessions)
}

func (t *courseTx) DeleteCourse(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, t.courseID); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

func setStatus(ctx context.Context, q sqlx.QueryerContext, id int64, status domain.RegistrationStatus) (*domain.Registration, error) {
	var row registrationRow
	err := sqlx.GetContext(ctx, q, &row,
		`UPDATE registrations SET status = ?, updated_at = ? WHERE id = ? RETURNING `+registrationColumns,
		string(status), toMillis(time.Now()), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}
	return row.toDomain(), nil
}
