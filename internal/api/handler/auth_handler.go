package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	cookieTTL   time.Duration
	secure      bool
}

// NewAuthHandler returns the auth endpoints. When cookieTTL is positive a
// successful login also sets an HttpOnly token cookie with that lifetime.
func NewAuthHandler(authService ports.AuthService, cookieTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{authService: authService, cookieTTL: cookieTTL, secure: secureCookie}
}

type registerRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Registration successful"`
	UserID  int64  `json:"userId"`
}

type loginResponse struct {
	Success bool         `json:"success" example:"true"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
}

// Register creates a student account.
//
// @Summary      Register a student account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      200   {object}  registerResponse
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, registerResponse{Success: true, Message: "Registration successful", UserID: user.ID})
}

// Login authenticates any account and returns a token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	return h.login(c, h.authService.Login)
}

// AdminLogin authenticates admin accounts only.
//
// @Summary      Admin login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /admin/login [post]
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	return h.login(c, h.authService.AdminLogin)
}

type loginFunc func(ctx context.Context, email, password string) (string, *domain.User, error)

func (h *AuthHandler) login(c echo.Context, fn loginFunc) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, user, err := fn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	if h.cookieTTL > 0 {
		c.SetCookie(&http.Cookie{
			Name:     "token",
			Value:    token,
			Path:     "/",
			MaxAge:   int(h.cookieTTL.Seconds()),
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	return c.JSON(http.StatusOK, loginResponse{Success: true, Token: token, User: user})
}
