package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/coursereg/registration-system/internal/core/domain"
)

func TestHTTPErrorHandler_Mapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", domain.NewValidationError("title is required"), http.StatusBadRequest, "title is required"},
		{"course full wrapped", fmt.Errorf("register: %w", domain.ErrCourseFull), http.StatusBadRequest, "Course is full"},
		{"already registered", domain.ErrAlreadyRegistered, http.StatusBadRequest, "Already registered for this course"},
		{"duplicate email", domain.ErrDuplicateEmail, http.StatusBadRequest, "Email already registered"},
		{"duplicate username", domain.ErrDuplicateUsername, http.StatusBadRequest, "Username already taken"},
		{"duplicate code", domain.ErrDuplicateCourseCode, http.StatusBadRequest, "Course code already exists"},
		{"active registrations", domain.ErrHasActiveRegistrations, http.StatusBadRequest, "Cannot delete course with active registrations"},
		{"capacity below enrollment", domain.ErrCapacityBelowEnrollment, http.StatusBadRequest, "Capacity cannot be lower than current enrollment"},
		{"bad credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
		{"no token", domain.ErrUnauthenticated, http.StatusUnauthorized, "Access token required"},
		{"bad token", domain.ErrInvalidToken, http.StatusUnauthorized, "Invalid or expired token"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "Access denied"},
		{"course missing", domain.ErrCourseNotFound, http.StatusNotFound, "Course not found"},
		{"registration missing", fmt.Errorf("drop: %w", domain.ErrRegistrationNotFound), http.StatusNotFound, "Registration not found"},
		{"user missing", domain.ErrUserNotFound, http.StatusNotFound, "User not found"},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed"), http.StatusMethodNotAllowed, "method not allowed"},
		{"unexpected", errors.New("pq: connection refused"), http.StatusInternalServerError, "Server error"},
	}

	h := NewHTTPErrorHandler(zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			h(tt.err, c)

			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body["success"] != false {
				t.Fatalf("expected success=false, got %v", body["success"])
			}
			if body["error"] != tt.msg {
				t.Fatalf("expected %q, got %q", tt.msg, body["error"])
			}
		})
	}
}

func TestHTTPErrorHandler_CommittedResponseUntouched(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = c.String(http.StatusOK, "done")

	NewHTTPErrorHandler(zerolog.Nop())(domain.ErrForbidden, c)

	if rec.Code != http.StatusOK || rec.Body.String() != "done" {
		t.Fatalf("committed response was modified: %d %q", rec.Code, rec.Body.String())
	}
}
