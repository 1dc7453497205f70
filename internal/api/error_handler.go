package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/coursereg/registration-system/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain
// errors to status codes and renders {"success": false, "error": "<message>"}.
// Unexpected errors are logged and never leak their cause to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Success: false, Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Msg
	}

	switch {
	case errors.Is(err, domain.ErrCourseFull):
		return http.StatusBadRequest, "Course is full"
	case errors.Is(err, domain.ErrAlreadyRegistered):
		return http.StatusBadRequest, "Already registered for this course"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusBadRequest, "Email already registered"
	case errors.Is(err, domain.ErrDuplicateUsername):
		return http.StatusBadRequest, "Username already taken"
	case errors.Is(err, domain.ErrDuplicateCourseCode):
		return http.StatusBadRequest, "Course code already exists"
	case errors.Is(err, domain.ErrHasActiveRegistrations):
		return http.StatusBadRequest, "Cannot delete course with active registrations"
	case errors.Is(err, domain.ErrCapacityBelowEnrollment):
		return http.StatusBadRequest, "Capacity cannot be lower than current enrollment"

	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "Access token required"
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid or expired token"

	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Access denied"

	case errors.Is(err, domain.ErrCourseNotFound):
		return http.StatusNotFound, "Course not found"
	case errors.Is(err, domain.ErrRegistrationNotFound):
		return http.StatusNotFound, "Registration not found"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("unhandled error")

	return http.StatusInternalServerError, "Server error"
}
