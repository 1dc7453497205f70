package sqlite

import (
	"database/sql"

	"github.com/coursereg/registration-system/internal/core/domain"
)

type userRow struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	FullName     string `db:"full_name"`
	Role         string `db:"role"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FullName:     r.FullName,
		Role:         r.Role,
		CreatedAt:    fromMillis(r.CreatedAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
	}
}

type courseRow struct {
	ID            int64          `db:"id"`
	CourseCode    sql.NullString `db:"course_code"`
	Title         string         `db:"title"`
	Description   string         `db:"description"`
	Instructor    string         `db:"instructor"`
	Department    string         `db:"department"`
	Credits       int            `db:"credits"`
	Schedule      string         `db:"schedule"`
	MaxStudents   int            `db:"max_students"`
	CreatedAt     int64          `db:"created_at"`
	UpdatedAt     int64          `db:"updated_at"`
	EnrolledCount int            `db:"enrolled_count"`
}

func (r courseRow) toDomain() *domain.Course {
	return &domain.Course{
		ID:            r.ID,
		CourseCode:    r.CourseCode.String,
		Title:         r.Title,
		Description:   r.Description,
		Instructor:    r.Instructor,
		Department:    r.Department,
		Credits:       r.Credits,
		Schedule:      r.Schedule,
		MaxStudents:   r.MaxStudents,
		EnrolledCount: r.EnrolledCount,
		CreatedAt:     fromMillis(r.CreatedAt),
		UpdatedAt:     fromMillis(r.UpdatedAt),
	}
}

type sessionRow struct {
	ID         int64          `db:"id"`
	CourseID   int64          `db:"course_id"`
	DayOfWeek  string         `db:"day_of_week"`
	StartTime  string         `db:"start_time"`
	EndTime    string         `db:"end_time"`
	Room       string         `db:"room"`
	CourseCode sql.NullString `db:"course_code"`
	Title      string         `db:"title"`
	Instructor string         `db:"instructor"`
}

func (r sessionRow) session() domain.ClassSession {
	return domain.ClassSession{
		ID:        r.ID,
		CourseID:  r.CourseID,
		DayOfWeek: r.DayOfWeek,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Room:      r.Room,
	}
}

type rosterRow struct {
	ID               int64  `db:"id"`
	FullName         string `db:"full_name"`
	Email            string `db:"email"`
	RegistrationDate int64  `db:"registration_date"`
}

type registrationRow struct {
	ID               int64  `db:"id"`
	StudentID        int64  `db:"student_id"`
	CourseID         int64  `db:"course_id"`
	Status           string `db:"status"`
	RegistrationDate int64  `db:"registration_date"`
	UpdatedAt        int64  `db:"updated_at"`
}

func (r registrationRow) toDomain() *domain.Registration {
	return &domain.Registration{
		ID:               r.ID,
		StudentID:        r.StudentID,
		CourseID:         r.CourseID,
		Status:           domain.RegistrationStatus(r.Status),
		RegistrationDate: fromMillis(r.RegistrationDate),
		UpdatedAt:        fromMillis(r.UpdatedAt),
	}
}

type viewRow struct {
	registrationRow
	StudentName  string         `db:"student_name"`
	StudentEmail string         `db:"student_email"`
	CourseCode   sql.NullString `db:"course_code"`
	CourseTitle  string         `db:"course_title"`
	Instructor   string         `db:"instructor"`
	Credits      int            `db:"credits"`
	Schedule     string         `db:"schedule"`
}

func (r viewRow) toDomain() *domain.RegistrationView {
	return &domain.RegistrationView{
		Registration: *r.registrationRow.toDomain(),
		StudentName:  r.StudentName,
		StudentEmail: r.StudentEmail,
		CourseCode:   r.CourseCode.String,
		CourseTitle:  r.CourseTitle,
		Instructor:   r.Instructor,
		Credits:      r.Credits,
		Schedule:     r.Schedule,
	}
}
