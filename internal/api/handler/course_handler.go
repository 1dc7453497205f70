package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

// CourseHandler serves the catalog and per-student schedules.
type CourseHandler struct {
	service ports.CourseService
}

func NewCourseHandler(service ports.CourseService) *CourseHandler {
	return &CourseHandler{service: service}
}

type sessionRequest struct {
	DayOfWeek string `json:"day_of_week" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Room      string `json:"room"`
}

// courseRequest is shared by create and update. Omitting sessions on update
// keeps the existing ones; an empty list clears them.
type courseRequest struct {
	CourseCode  string           `json:"course_code"`
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description"`
	Instructor  string           `json:"instructor"`
	Department  string           `json:"department"`
	Credits     int              `json:"credits" validate:"gte=0"`
	Schedule    string           `json:"schedule"`
	MaxStudents int              `json:"max_students" validate:"gte=1"`
	Sessions    []sessionRequest `json:"sessions" validate:"omitempty,dive"`
}

func (r courseRequest) toInput() ports.CourseInput {
	in := ports.CourseInput{
		CourseCode:  r.CourseCode,
		Title:       r.Title,
		Description: r.Description,
		Instructor:  r.Instructor,
		Department:  r.Department,
		Credits:     r.Credits,
		Schedule:    r.Schedule,
		MaxStudents: r.MaxStudents,
	}
	if r.Sessions != nil {
		in.Sessions = make([]ports.SessionInput, 0, len(r.Sessions))
		for _, s := range r.Sessions {
			in.Sessions = append(in.Sessions, ports.SessionInput(s))
		}
	}
	return in
}

type courseListResponse struct {
	Success bool             `json:"success" example:"true"`
	Courses []*domain.Course `json:"courses"`
}

type courseDetailResponse struct {
	Success bool                 `json:"success" example:"true"`
	Course  *domain.CourseDetail `json:"course"`
}

type courseCreatedResponse struct {
	Success  bool   `json:"success" example:"true"`
	Message  string `json:"message" example:"Course created successfully"`
	CourseID int64  `json:"courseId"`
}

type scheduleResponse struct {
	Success  bool                   `json:"success" example:"true"`
	Schedule []domain.ScheduleEntry `json:"schedule"`
}

// List returns the catalog, newest first.
//
// @Summary      List courses
// @Tags         courses
// @Produce      json
// @Success      200  {object}  courseListResponse
// @Failure      500  {object}  errorResponse
// @Router       /courses [get]
func (h *CourseHandler) List(c echo.Context) error {
	courses, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, courseListResponse{Success: true, Courses: courses})
}

// Get returns one course with its sessions and roster.
//
// @Summary      Get a course
// @Tags         courses
// @Produce      json
// @Param        id   path      int  true  "Course ID"
// @Success      200  {object}  courseDetailResponse
// @Failure      404  {object}  errorResponse
// @Router       /courses/{id} [get]
func (h *CourseHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, courseDetailResponse{Success: true, Course: detail})
}

// Create adds a course.
//
// @Summary      Create a course
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      courseRequest  true  "Course"
// @Success      200   {object}  courseCreatedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /admin/courses [post]
func (h *CourseHandler) Create(c echo.Context) error {
	var req courseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	course, err := h.service.Create(c.Request().Context(), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, courseCreatedResponse{Success: true, Message: "Course created successfully", CourseID: course.ID})
}

// Update replaces a course's fields.
//
// @Summary      Update a course
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int            true  "Course ID"
// @Param        body  body      courseRequest  true  "Course"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /admin/courses/{id} [put]
func (h *CourseHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req courseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if _, err := h.service.Update(c.Request().Context(), id, req.toInput()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("Course updated successfully"))
}

// Delete removes a course with no active registrations.
//
// @Summary      Delete a course
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Course ID"
// @Success      200  {object}  messageResponse
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /admin/courses/{id} [delete]
func (h *CourseHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("Course deleted successfully"))
}

// StudentSchedule returns the weekly sessions of a student's courses.
//
// @Summary      Student weekly schedule
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        studentId  path      int  true  "Student ID"
// @Success      200        {object}  scheduleResponse
// @Failure      403        {object}  errorResponse
// @Router       /schedule/student/{studentId} [get]
func (h *CourseHandler) StudentSchedule(c echo.Context) error {
	requester, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	studentID, err := pathID(c, "studentId")
	if err != nil {
		return err
	}
	entries, err := h.service.StudentSchedule(c.Request().Context(), studentID, requester)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scheduleResponse{Success: true, Schedule: entries})
}
