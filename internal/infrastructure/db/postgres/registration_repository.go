package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

const registrationColumns = `id, student_id, course_id, status, registration_date, updated_at`

const viewSelect = `
	SELECT r.id, r.student_id, r.course_id, r.status, r.registration_date, r.updated_at,
	       u.full_name, u.email, c.course_code, c.title, c.instructor, c.credits, c.schedule
	FROM registrations r
	JOIN users u ON u.id = r.student_id
	JOIN courses c ON c.id = r.course_id`

// RegistrationRepository implements the ledger and stats ports on PostgreSQL.
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

// WithCourseLock takes a FOR UPDATE lock on the course row; the lock is held
// until fn returns and the transaction ends.
func (r *RegistrationRepository) WithCourseLock(ctx context.Context, courseID int64, fn ports.CourseTxFunc) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		const q = `
			SELECT id, course_code, title, description, instructor, department,
			       credits, schedule, max_students, created_at, updated_at, 0
			FROM courses WHERE id = $1 FOR UPDATE`

		course, err := scanCourse(tx.QueryRow(ctx, q, courseID))
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrCourseNotFound
		}
		if err != nil {
			return err
		}
		return fn(ctx, &courseTx{tx: tx, courseID: courseID}, course)
	})
}

func (r *RegistrationRepository) FindByID(ctx context.Context, id int64) (*domain.Registration, error) {
	reg, err := scanRegistration(r.db.Pool.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRegistrationNotFound
	}
	return reg, err
}

func (r *RegistrationRepository) SetStatus(ctx context.Context, id int64, status domain.RegistrationStatus) (*domain.Registration, error) {
	return setStatus(ctx, r.db.Pool, id, status)
}

func (r *RegistrationRepository) ListByStudent(ctx context.Context, studentID int64) ([]*domain.RegistrationView, error) {
	return r.queryViews(ctx, viewSelect+` WHERE r.student_id = $1 ORDER BY r.registration_date DESC, r.id DESC`, studentID)
}

func (r *RegistrationRepository) ListAll(ctx context.Context, limit int) ([]*domain.RegistrationView, error) {
	q := viewSelect + ` ORDER BY r.registration_date DESC, r.id DESC`
	if limit > 0 {
		return r.queryViews(ctx, q+` LIMIT $1`, limit)
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
	if err := r.db.Pool.QueryRow(ctx, q).Scan(&stats.TotalStudents, &stats.TotalCourses, &stats.ActiveRegistrations); err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	recent, err := r.queryViews(ctx,
		viewSelect+` WHERE r.status = 'registered' ORDER BY r.registration_date DESC, r.id DESC LIMIT $1`, recentLimit)
	if err != nil {
		return nil, err
	}
	stats.RecentRegistrations = recent
	return &stats, nil
}

func (r *RegistrationRepository) queryViews(ctx context.Context, q string, args ...any) ([]*domain.RegistrationView, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	views := []*domain.RegistrationView{}
	for rows.Next() {
		var (
			v    domain.RegistrationView
			code *string
		)
		err := rows.Scan(&v.ID, &v.StudentID, &v.CourseID, &v.Status, &v.RegistrationDate, &v.UpdatedAt,
			&v.StudentName, &v.StudentEmail, &code, &v.CourseTitle, &v.Instructor, &v.Credits, &v.Schedule)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		v.CourseCode = derefString(code)
		views = append(views, &v)
	}
	return views, rows.Err()
}

// courseTx implements ports.CourseTx over a transaction that holds the
// course row lock.
type courseTx struct {
	tx       pgx.Tx
	courseID int64
}

func (t *courseTx) CountActive(ctx context.Context) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE course_id = $1 AND status = 'registered'`, t.courseID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

func (t *courseTx) FindByStudent(ctx context.Context, studentID int64) (*domain.Registration, error) {
	reg, err := scanRegistration(t.tx.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE student_id = $1 AND course_id = $2`,
		studentID, t.courseID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRegistrationNotFound
	}
	return reg, err
}

func (t *courseTx) Insert(ctx context.Context, studentID int64) (*domain.Registration, error) {
	reg, err := scanRegistration(t.tx.QueryRow(ctx,
		`INSERT INTO registrations (student_id, course_id, status) VALUES ($1, $2, 'registered')
		 RETURNING `+registrationColumns,
		studentID, t.courseID,
	))
	if isUniqueViolation(err, "registrations_student_course_key") {
		return nil, domain.ErrAlreadyRegistered
	}
	return reg, err
}

func (t *courseTx) SetStatus(ctx context.Context, id int64, status domain.RegistrationStatus) (*domain.Registration, error) {
	return setStatus(ctx, t.tx, id, status)
}

func (t *courseTx) UpdateCourse(ctx context.Context, c *domain.Course, sessions []domain.ClassSession) error {
	const q = `
		UPDATE courses SET course_code = $1, title = $2, description = $3, instructor = $4, department = $5,
		       credits = $6, schedule = $7, max_students = $8, updated_at = $9
		WHERE id = $10`

	_, err := t.tx.Exec(ctx, q,
		nullIfEmpty(c.CourseCode), c.Title, c.Description, c.Instructor, c.Department,
		c.Credits, c.Schedule, c.MaxStudents, c.UpdatedAt, t.courseID,
	)
	if err != nil {
		return mapCourseError(err)
	}
	if sessions == nil {
		return nil
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM class_sessions WHERE course_id = $1`, t.courseID); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return insertSessions(ctx, t.tx, t.courseID, sessions)
}

func (t *courseTx) DeleteCourse(ctx context.Context) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM courses WHERE id = $1`, t.courseID); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func setStatus(ctx context.Context, q querier, id int64, status domain.RegistrationStatus) (*domain.Registration, error) {
	reg, err := scanRegistration(q.QueryRow(ctx,
		`UPDATE registrations SET status = $1, updated_at = now() WHERE id = $2 RETURNING `+registrationColumns,
		string(status), id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRegistrationNotFound
	}
	return reg, err
}

func scanRegistration(row pgx.Row) (*domain.Registration, error) {
	var reg domain.Registration
	if err := row.Scan(&reg.ID, &reg.StudentID, &reg.CourseID, &reg.Status, &reg.RegistrationDate, &reg.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	return &reg, nil
}
