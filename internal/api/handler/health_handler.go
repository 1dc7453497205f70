package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
)

const readinessTimeout = 3 * time.Second

// Pinger is a dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	deps map[string]Pinger
	now  func() time.Time
}

// NewHealthHandler checks every named dependency on readiness. Optional
// dependencies that are not configured should simply be left out.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps, now: time.Now}
}

type livenessResponse struct {
	Success   bool   `json:"success" example:"true"`
	Message   string `json:"message" example:"Server is running"`
	Timestamp string `json:"timestamp"`
}

type dependencyStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Success      bool               `json:"success"`
	Status       string             `json:"status"`
	Dependencies []dependencyStatus `json:"dependencies"`
}

// Liveness reports that the process is serving.
//
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  livenessResponse
// @Router       /health [get]
func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, livenessResponse{
		Success:   true,
		Message:   "Server is running",
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// Readiness pings every dependency and returns 503 when any is down.
//
// @Summary      Readiness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  readinessResponse
// @Failure      503  {object}  readinessResponse
// @Router       /health/ready [get]
func (h *HealthHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	deps := make([]dependencyStatus, 0, len(names))
	for _, name := range names {
		if err := h.deps[name].Ping(ctx); err != nil {
			deps = append(deps, dependencyStatus{Name: name, Status: "unhealthy", Error: err.Error()})
			healthy = false
			continue
		}
		deps = append(deps, dependencyStatus{Name: name, Status: "ok"})
	}

	resp := readinessResponse{Success: healthy, Status: "ok", Dependencies: deps}
	code := http.StatusOK
	if !healthy {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}
