package domain

import (
	"errors"
	"time"
)

// RegistrationStatus is the state of a (student, course) ledger row.
type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "registered"
	StatusDropped    RegistrationStatus = "dropped"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrCourseFull           = errors.New("course is full")
	ErrAlreadyRegistered    = errors.New("already registered for this course")
)

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	return s == StatusRegistered || s == StatusDropped
}

// Registration is the single ledger row for a (student, course) pair. The row
// is reused when a dropped student registers again.
type Registration struct {
	ID               int64              `json:"id"`
	StudentID        int64              `json:"student_id"`
	CourseID         int64              `json:"course_id"`
	Status           RegistrationStatus `json:"status"`
	RegistrationDate time.Time          `json:"registration_date"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// RegistrationView joins a ledger row with student and course metadata.
type RegistrationView struct {
	Registration
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	CourseCode   string `json:"course_code,omitempty"`
	CourseTitle  string `json:"course_title"`
	Instructor   string `json:"instructor"`
	Credits      int    `json:"credits"`
	Schedule     string `json:"schedule"`
}

// LedgerAction names a transition recorded in the audit trail.
type LedgerAction string

const (
	ActionRegistered    LedgerAction = "registered"
	ActionRestored      LedgerAction = "restored"
	ActionDropped       LedgerAction = "dropped"
	ActionStatusChanged LedgerAction = "status_changed"
)

// RegistrationEvent is an audit record of one ledger transition.
type RegistrationEvent struct {
	RegistrationID int64              `json:"registration_id" bson:"registration_id"`
	StudentID      int64              `json:"student_id" bson:"student_id"`
	CourseID       int64              `json:"course_id" bson:"course_id"`
	Action         LedgerAction       `json:"action" bson:"action"`
	Status         RegistrationStatus `json:"status" bson:"status"`
	ActorID        int64              `json:"actor_id" bson:"actor_id"`
	ActorRole      string             `json:"actor_role" bson:"actor_role"`
	OccurredAt     time.Time          `json:"occurred_at" bson:"occurred_at"`
}

// DashboardStats summarises the system for the admin dashboard.
type DashboardStats struct {
	TotalStudents       int64               `json:"totalStudents"`
	TotalCourses        int64               `json:"totalCourses"`
	ActiveRegistrations int64               `json:"activeRegistrations"`
	RecentRegistrations []*RegistrationView `json:"recentRegistrations"`
}
