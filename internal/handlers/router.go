package handlers

import (
	"log/slog"
	"net/http"

	"github.com/corplearn/training-service/internal/auth"
	"github.com/corplearn/training-service/internal/services"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	sessionHandler  *SessionHandler
	courseHandler   *CourseHandler
	progressHandler *ProgressHandler
	reportHandler   *ReportHandler
	authenticator   *auth.Authenticator
}

func NewHandlerManager(
	sessionService services.SessionService,
	courseService services.CourseService,
	progressService services.ProgressService,
	statsService services.StatsService,
	authenticator *auth.Authenticator,
	logger *slog.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler:  NewSessionHandler(sessionService, logger),
		courseHandler:   NewCourseHandler(courseService, logger),
		progressHandler: NewProgressHandler(progressService, logger),
		reportHandler:   NewReportHandler(statsService, logger),
		authenticator:   authenticator,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "training-service",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(hm.authenticator.Middleware())
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.StartSession)
			sessions.POST("/:id/answer", hm.sessionHandler.SelectAnswer)
			sessions.POST("/:id/advance", hm.sessionHandler.Advance)
			sessions.POST("/:id/reset", hm.sessionHandler.Reset)
			sessions.GET("/:id/progress", hm.sessionHandler.GetProgress)
			sessions.DELETE("/:id", hm.sessionHandler.ExitSession)
		}

		courses := v1.Group("/courses")
		{
			courses.GET("", hm.courseHandler.ListCourses)
			courses.GET("/:id", hm.courseHandler.GetCourse)

			admin := courses.Group("", auth.RequireAdmin())
			{
				admin.POST("", hm.courseHandler.CreateCourse)
				admin.POST("/:id/activate", hm.courseHandler.ActivateCourse)
				admin.POST("/:id/archive", hm.courseHandler.ArchiveCourse)
				admin.POST("/:id/questions", hm.courseHandler.AddQuestions)
				admin.GET("/:id/questions", hm.courseHandler.ListQuestions)
				admin.DELETE("/:id/questions/:question_id", hm.courseHandler.DeleteQuestion)
			}
		}

		progress := v1.Group("/progress")
		{
			progress.GET("/my-records", hm.progressHandler.GetMyRecords)
			progress.GET("/my-records/:course_id", hm.progressHandler.GetMyRecord)

			admin := progress.Group("", auth.RequireAdmin())
			{
				admin.POST("/assignments", hm.progressHandler.AssignCourse)
				admin.POST("/reissue", hm.progressHandler.ReissueCourse)
				admin.GET("/records", hm.progressHandler.ListRecords)
			}
		}

		reports := v1.Group("/reports", auth.RequireAdmin())
		{
			reports.GET("/usage", hm.reportHandler.GetUsageSummary)
			reports.GET("/usage/export", hm.reportHandler.ExportUsageSummary)
		}
	}
}
