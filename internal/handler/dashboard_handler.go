package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hcf-itd/asset-registry-api/internal/dto"
	"github.com/hcf-itd/asset-registry-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context) (*dto.DashboardSummary, error)
}

// DashboardHandler serves the aggregated inventory summary.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Aggregated inventory counts and expiry buckets
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
