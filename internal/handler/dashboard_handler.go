package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/literacy-tracker-api/internal/service"
	appErrors "github.com/noah-isme/literacy-tracker-api/pkg/errors"
	"github.com/noah-isme/literacy-tracker-api/pkg/response"
)

// DashboardHandler exposes teacher-wide aggregate endpoints.
type DashboardHandler struct {
	stats    *service.StatsService
	progress *service.ProgressService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(stats *service.StatsService, progress *service.ProgressService) *DashboardHandler {
	return &DashboardHandler{stats: stats, progress: progress}
}

// Statistics godoc
// @Summary Tier distribution across all of the teacher's students
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/statistics [get]
func (h *DashboardHandler) Statistics(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stats, cached, err := h.stats.Overview(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, map[string]interface{}{"cached": cached})
}

// Progress godoc
// @Summary Month-bucketed progress across all of the teacher's students
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param includeAllMonths query bool false "Emit all twelve months"
// @Success 200 {object} response.Envelope
// @Router /dashboard/progress [get]
func (h *DashboardHandler) Progress(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	includeAll := c.Query("includeAllMonths") == "true"
	points, cached, err := h.progress.Group(c.Request.Context(), claims.UserID, "", includeAll)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, points, nil, map[string]interface{}{"cached": cached})
}
