package domain

import (
	"errors"
	"time"
)

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User models an account holder. Students register for courses; admins
// manage the catalog, accounts and the ledger.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidRole reports whether role is one the system recognises.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStudent
}

// Identity is the principal carried by a verified token. Its fields are
// stamped at login and are not re-read from the credential store.
type Identity struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanActFor reports whether the identity may read or change data owned by
// the given student.
func (i Identity) CanActFor(studentID int64) bool {
	return i.IsAdmin() || i.UserID == studentID
}
