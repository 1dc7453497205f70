package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

// UserHandler serves admin account management.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

type createUserRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"required,oneof=student admin"`
}

type updateUserRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,oneof=student admin"`
}

type userListResponse struct {
	Success bool           `json:"success" example:"true"`
	Users   []*domain.User `json:"users"`
}

type userCreatedResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"User created successfully"`
	UserID  int64  `json:"userId"`
}

// List returns every account, newest first.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userListResponse
// @Failure      403  {object}  errorResponse
// @Router       /admin/users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userListResponse{Success: true, Users: users})
}

// Create adds an account with any role.
//
// @Summary      Create a user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "User"
// @Success      200   {object}  userCreatedResponse
// @Failure      400   {object}  errorResponse
// @Router       /admin/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.service.Create(c.Request().Context(), ports.CreateUserInput{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userCreatedResponse{Success: true, Message: "User created successfully", UserID: user.ID})
}

// Update edits name, email and role.
//
// @Summary      Update a user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "User ID"
// @Param        body  body      updateUserRequest  true  "User"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /admin/users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	_, err = h.service.Update(c.Request().Context(), ports.UpdateUserInput{
		ID:       id,
		FullName: req.FullName,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("User updated successfully"))
}

// Delete removes an account and its registrations.
//
// @Summary      Delete a user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /admin/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	requester, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id, requester); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("User deleted successfully"))
}
