package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/coursereg/registration-system/internal/api/handler"
	"github.com/coursereg/registration-system/internal/api/middleware"
	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

// Deps carries everything the HTTP layer needs. Tracer and Health are optional.
type Deps struct {
	Auth          ports.AuthService
	Courses       ports.CourseService
	Registrations ports.RegistrationService
	Users         ports.UserService
	Dashboard     ports.DashboardService
	Tokens        ports.TokenVerifier
	Health        map[string]handler.Pinger
	Tracer        trace.Tracer
	Log           zerolog.Logger

	// CookieTTL enables the HttpOnly login cookie when positive.
	CookieTTL    time.Duration
	SecureCookie bool
	// Metrics mounts the Prometheus middleware and /metrics. Tests leave it
	// off so repeated routers do not register collectors twice.
	Metrics bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)
	e.Validator = handler.NewValidator()

	tracer := d.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("coursereg")
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(middleware.Tracing(tracer))
	if d.Metrics {
		e.Use(echoprometheus.NewMiddleware("coursereg"))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth, d.CookieTTL, d.SecureCookie)
	courseHandler := handler.NewCourseHandler(d.Courses)
	registrationHandler := handler.NewRegistrationHandler(d.Registrations)
	userHandler := handler.NewUserHandler(d.Users)
	dashboardHandler := handler.NewDashboardHandler(d.Dashboard)
	healthHandler := handler.NewHealthHandler(d.Health)

	authMiddleware := middleware.Auth(d.Tokens)
	studentOnly := middleware.RBAC(domain.RoleStudent)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	base := e.Group("/api")
	base.GET("/health", healthHandler.Liveness)

	// --- Public ---
	base.POST("/register", authHandler.Register)
	base.POST("/login", authHandler.Login)
	base.POST("/admin/login", authHandler.AdminLogin)
	base.GET("/courses", courseHandler.List)
	base.GET("/courses/:id", courseHandler.Get)

	// --- Authenticated ---
	base.POST("/registrations", registrationHandler.Register, authMiddleware, studentOnly)
	base.DELETE("/registrations/:id", registrationHandler.Drop, authMiddleware)
	base.GET("/registrations/student/:studentId", registrationHandler.ListForStudent, authMiddleware)
	base.GET("/registrations/:id/history", registrationHandler.History, authMiddleware)
	base.GET("/schedule/student/:studentId", courseHandler.StudentSchedule, authMiddleware)

	// --- Admin ---
	admin := base.Group("/admin", authMiddleware, adminOnly)
	admin.GET("/courses", courseHandler.List)
	admin.POST("/courses", courseHandler.Create)
	admin.PUT("/courses/:id", courseHandler.Update)
	admin.DELETE("/courses/:id", courseHandler.Delete)
	admin.GET("/registrations", registrationHandler.ListAll)
	admin.GET("/recent-registrations", registrationHandler.Recent)
	admin.PUT("/registrations/:id", registrationHandler.UpdateStatus)
	admin.GET("/dashboard-stats", dashboardHandler.Stats)
	admin.GET("/users", userHandler.List)
	admin.POST("/users", userHandler.Create)
	admin.PUT("/users/:id", userHandler.Update)
	admin.DELETE("/users/:id", userHandler.Delete)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= 500 {
				evt = log.Error()
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
