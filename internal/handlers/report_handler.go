package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/corplearn/training-service/internal/services"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	BaseHandler
	statsService services.StatsService
}

func NewReportHandler(statsService services.StatsService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler:  NewBaseHandler(logger),
		statsService: statsService,
	}
}

// GetUsageSummary returns per-user attempt and pass-rate aggregates. Admin only.
// @Summary Usage summary
// @Tags reports
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /reports/usage [get]
func (h *ReportHandler) GetUsageSummary(c *gin.Context) {
	usage, err := h.statsService.GetUsageSummary(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"usage": usage})
}

// ExportUsageSummary downloads the usage report as an xlsx workbook. Admin only.
// @Summary Export usage summary
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Router /reports/usage/export [get]
func (h *ReportHandler) ExportUsageSummary(c *gin.Context) {
	data, err := h.statsService.ExportUsageSummary(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("usage-report-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
