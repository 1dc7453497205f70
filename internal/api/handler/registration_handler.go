package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	maxIdempotencyKeyLen = 255
	headerReplayed       = "Idempotent-Replayed"
	recentLimit          = 5
)

// RegistrationHandler serves the ledger endpoints.
type RegistrationHandler struct {
	service ports.RegistrationService
}

func NewRegistrationHandler(service ports.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

type registerCourseRequest struct {
	CourseID int64 `json:"course_id" validate:"required,gt=0"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=registered dropped"`
}

type registerCourseResponse struct {
	Success        bool   `json:"success" example:"true"`
	Message        string `json:"message" example:"Successfully registered for the course"`
	RegistrationID int64  `json:"registrationId"`
}

type registrationListResponse struct {
	Success       bool                       `json:"success" example:"true"`
	Registrations []*domain.RegistrationView `json:"registrations"`
}

type registrationResponse struct {
	Success      bool                 `json:"success" example:"true"`
	Message      string               `json:"message"`
	Registration *domain.Registration `json:"registration"`
}

type historyResponse struct {
	Success bool                        `json:"success" example:"true"`
	Events  []*domain.RegistrationEvent `json:"events"`
}

// Register enrolls the caller in a course.
//
// @Summary      Register for a course
// @Description  Re-registering a dropped course restores the original row. Send an
// @Description  Idempotency-Key header to make retries safe.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string                 false  "Client retry key"
// @Param        body             body      registerCourseRequest  true   "Course"
// @Success      200              {object}  registerCourseResponse
// @Failure      400              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Router       /registrations [post]
func (h *RegistrationHandler) Register(c echo.Context) error {
	requester, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	var req registerCourseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	key := c.Request().Header.Get(headerIdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return domain.NewValidationError("%s must be at most %d bytes", headerIdempotencyKey, maxIdempotencyKeyLen)
	}

	result, err := h.service.Register(c.Request().Context(), ports.RegisterCourseInput{
		Requester:      requester,
		CourseID:       req.CourseID,
		IdempotencyKey: key,
	})
	if err != nil {
		return err
	}

	if result.Replayed {
		c.Response().Header().Set(headerReplayed, "true")
	}
	return c.JSON(http.StatusOK, registerCourseResponse{
		Success:        true,
		Message:        result.Message,
		RegistrationID: result.RegistrationID,
	})
}

// Drop unregisters the caller (or, for admins, anyone) from a course.
//
// @Summary      Drop a registration
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Registration ID"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /registrations/{id} [delete]
func (h *RegistrationHandler) Drop(c echo.Context) error {
	requester, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Drop(c.Request().Context(), id, requester); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("Course dropped successfully"))
}

// ListForStudent returns a student's registrations of every status.
//
// @Summary      List a student's registrations
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        studentId  path      int  true  "Student ID"
// @Success      200        {object}  registrationListResponse
// @Failure      403        {object}  errorResponse
// @Router       /registrations/student/{studentId} [get]
func (h *RegistrationHandler) ListForStudent(c echo.Context) error {
	requester, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	studentID, err := pathID(c, "studentId")
	if err != nil {
		return err
	}
	views, err := h.service.ListForStudent(c.Request().Context(), studentID, requester)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, registrationListResponse{Success: true, Registrations: views})
}

// History returns the audit trail of a registration.
//
// @Summary      Registration history
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Registration ID"
// @Success      200  {object}  historyResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /registrations/{id}/history [get]
func (h *RegistrationHandler) History(c echo.Context) error {
	requester, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	events, err := h.service.History(c.Request().Context(), id, requester)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, historyResponse{Success: true, Events: events})
}

// ListAll returns every registration, dropped included.
//
// @Summary      List all registrations
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  registrationListResponse
// @Failure      403  {object}  errorResponse
// @Router       /admin/registrations [get]
func (h *RegistrationHandler) ListAll(c echo.Context) error {
	return h.list(c, 0)
}

// Recent returns the five newest registrations, dropped included.
//
// @Summary      Recent registrations
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  registrationListResponse
// @Failure      403  {object}  errorResponse
// @Router       /admin/recent-registrations [get]
func (h *RegistrationHandler) Recent(c echo.Context) error {
	return h.list(c, recentLimit)
}

func (h *RegistrationHandler) list(c echo.Context, limit int) error {
	requester, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	views, err := h.service.ListAll(c.Request().Context(), requester, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, registrationListResponse{Success: true, Registrations: views})
}

// UpdateStatus sets a registration's status directly.
//
// @Summary      Set registration status
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                  true  "Registration ID"
// @Param        body  body      updateStatusRequest  true  "Status"
// @Success      200   {object}  registrationResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /admin/registrations/{id} [put]
func (h *RegistrationHandler) UpdateStatus(c echo.Context) error {
	requester, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	reg, err := h.service.SetStatus(c.Request().Context(), id, domain.RegistrationStatus(req.Status), requester)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, registrationResponse{
		Success:      true,
		Message:      "Registration status updated successfully",
		Registration: reg,
	})
}
