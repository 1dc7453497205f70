package domain

import (
	"errors"
	"regexp"
	"time"
)

var (
	ErrCourseNotFound          = errors.New("course not found")
	ErrDuplicateCourseCode     = errors.New("course code already exists")
	ErrHasActiveRegistrations  = errors.New("cannot delete course with active registrations")
	ErrCapacityBelowEnrollment = errors.New("max_students cannot be lower than current enrollment")
)

// Course is a catalog entry. EnrolledCount is derived from the ledger at read
// time and is display-only.
type Course struct {
	ID            int64     `json:"id"`
	CourseCode    string    `json:"course_code,omitempty"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Instructor    string    `json:"instructor"`
	Department    string    `json:"department"`
	Credits       int       `json:"credits"`
	Schedule      string    `json:"schedule"`
	MaxStudents   int       `json:"max_students"`
	EnrolledCount int       `json:"enrolled_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ClassSession is one weekly meeting of a course.
type ClassSession struct {
	ID        int64  `json:"id"`
	CourseID  int64  `json:"course_id"`
	DayOfWeek string `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Room      string `json:"room,omitempty"`
}

// EnrolledStudent is a registered student as listed on a course page.
type EnrolledStudent struct {
	ID               int64     `json:"id"`
	FullName         string    `json:"full_name"`
	Email            string    `json:"email"`
	RegistrationDate time.Time `json:"registration_date"`
}

// CourseDetail is a course with its sessions and active roster.
type CourseDetail struct {
	Course
	Sessions []ClassSession   `json:"schedule_details"`
	Students []EnrolledStudent `json:"enrolled_students"`
}

// ScheduleEntry is a session of a course the student is registered for.
type ScheduleEntry struct {
	ClassSession
	CourseCode string `json:"course_code,omitempty"`
	Title      string `json:"title"`
	Instructor string `json:"instructor"`
}

var weekdays = map[string]int{
	"Monday":    0,
	"Tuesday":   1,
	"Wednesday": 2,
	"Thursday":  3,
	"Friday":    4,
	"Saturday":  5,
	"Sunday":    6,
}

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// WeekdayIndex returns the Monday-based position of day, or -1.
func WeekdayIndex(day string) int {
	if i, ok := weekdays[day]; ok {
		return i
	}
	return -1
}

// Validate checks the session's day and HH:MM bounds.
func (s ClassSession) Validate() error {
	if WeekdayIndex(s.DayOfWeek) < 0 {
		return NewValidationError("day_of_week must be a weekday name such as Monday")
	}
	if !clockPattern.MatchString(s.StartTime) || !clockPattern.MatchString(s.EndTime) {
		return NewValidationError("start_time and end_time must use HH:MM")
	}
	if s.EndTime <= s.StartTime {
		return NewValidationError("end_time must be after start_time")
	}
	return nil
}
