package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

type DashboardHandler struct {
	service ports.DashboardService
}

func NewDashboardHandler(service ports.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

type dashboardResponse struct {
	Success bool                   `json:"success" example:"true"`
	Stats   *domain.DashboardStats `json:"stats"`
}

// Stats returns the admin overview counters.
//
// @Summary      Dashboard statistics
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dashboardResponse
// @Failure      403  {object}  errorResponse
// @Router       /admin/dashboard-stats [get]
func (h *DashboardHandler) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dashboardResponse{Success: true, Stats: stats})
}
