package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aitrainer/trainer-backend/internal/middleware"
	"github.com/aitrainer/trainer-backend/internal/response"
	"github.com/aitrainer/trainer-backend/internal/service"
)

// DashboardHandler handles the home dashboard.
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetDashboardData godoc
// GET /api/v1/dashboard
// Returns the user's name, statistics, accuracy and recent exam results.
func (h *DashboardHandler) GetDashboardData(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	data, err := h.dashboardService.GetDashboardData(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, data)
}
