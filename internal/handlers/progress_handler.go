package handlers

import (
	"log/slog"
	"net/http"

	"github.com/corplearn/training-service/internal/auth"
	"github.com/corplearn/training-service/internal/models"
	"github.com/corplearn/training-service/internal/repositories"
	"github.com/corplearn/training-service/internal/services"
	"github.com/gin-gonic/gin"
)

type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
}

func NewProgressHandler(progressService services.ProgressService, logger *slog.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
	}
}

// AssignCourse assigns a course to a user. Admin only.
// @Summary Assign course
// @Tags progress
// @Accept json
// @Produce json
// @Param assignment body services.AssignCourseRequest true "Assignment data"
// @Success 201 {object} models.UserCourseRecord
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /progress/assignments [post]
func (h *ProgressHandler) AssignCourse(c *gin.Context) {
	var req services.AssignCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	record, err := h.progressService.AssignCourse(c.Request.Context(), &req, auth.CurrentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// ReissueCourse resets a user's certification for a course. Admin only.
// @Summary Re-issue course
// @Description Clears completion and counters and sets a new due date, restarting the certification cycle
// @Tags progress
// @Accept json
// @Produce json
// @Param reissue body services.ReissueCourseRequest true "Re-issue data"
// @Success 200 {object} models.UserCourseRecord
// @Failure 404 {object} ErrorResponse
// @Router /progress/reissue [post]
func (h *ProgressHandler) ReissueCourse(c *gin.Context) {
	var req services.ReissueCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	record, err := h.progressService.Reissue(c.Request.Context(), &req, auth.CurrentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetMyRecords lists the caller's assigned courses with due-status badges
// @Summary Get my records
// @Tags progress
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /progress/my-records [get]
func (h *ProgressHandler) GetMyRecords(c *gin.Context) {
	records, err := h.progressService.GetUserRecords(c.Request.Context(), auth.CurrentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records})
}

// GetMyRecord returns the caller's record for one course
// @Summary Get my record
// @Tags progress
// @Produce json
// @Param course_id path uint true "Course ID"
// @Success 200 {object} services.RecordView
// @Failure 404 {object} ErrorResponse
// @Router /progress/my-records/{course_id} [get]
func (h *ProgressHandler) GetMyRecord(c *gin.Context) {
	courseID := h.parseIDParam(c, "course_id")
	if courseID == 0 {
		return
	}

	record, err := h.progressService.GetRecord(c.Request.Context(), auth.CurrentUserID(c), courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// ListRecords lists course records across users. Admin only.
// @Summary List records
// @Tags progress
// @Produce json
// @Param status query string false "Record status filter"
// @Param user_id query string false "User filter"
// @Param course_id query int false "Course filter"
// @Success 200 {object} SuccessResponse
// @Router /progress/records [get]
func (h *ProgressHandler) ListRecords(c *gin.Context) {
	filters := h.parseRecordFilters(c)

	records, total, err := h.progressService.ListRecords(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   total,
	})
}

func (h *ProgressHandler) parseRecordFilters(c *gin.Context) repositories.RecordFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)

	filters := repositories.RecordFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.CourseRecordStatus(statusStr)
		filters.Status = &status
	}
	if userID := c.Query("user_id"); userID != "" {
		filters.UserID = &userID
	}
	if courseID := h.parseIntQuery(c, "course_id", 0); courseID > 0 {
		id := uint(courseID)
		filters.CourseID = &id
	}

	return filters
}
