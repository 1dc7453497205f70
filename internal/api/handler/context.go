package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/coursereg/registration-system/internal/api/middleware"
	"github.com/coursereg/registration-system/internal/core/domain"
)

// ctxIdentity returns the caller identity set by the Auth middleware. A
// missing identity means the route was mounted without Auth.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := c.Get(middleware.IdentityKey).(domain.Identity)
	if !ok || id.UserID == 0 {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return id, nil
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("%s must be a positive integer", name)
	}
	return id, nil
}

// bindAndValidate decodes the body into req and runs the struct validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError("invalid payload")
	}
	return c.Validate(req)
}

// messageResponse is the success envelope for calls without a payload.
type messageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message"`
}

func ok(message string) messageResponse {
	return messageResponse{Success: true, Message: message}
}

// errorResponse documents the error envelope rendered by the HTTP error handler.
type errorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error"`
}
