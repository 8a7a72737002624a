package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corplearn/training-service/internal/events"
	"github.com/corplearn/training-service/internal/models"
	"github.com/corplearn/training-service/internal/repositories"
	"github.com/corplearn/training-service/internal/validator"
)

type AssignCourseRequest struct {
	UserID   string     `json:"user_id" validate:"required"`
	CourseID uint       `json:"course_id" validate:"required"`
	DueDate  *time.Time `json:"due_date"`
}

type ReissueCourseRequest struct {
	UserID   string     `json:"user_id" validate:"required"`
	CourseID uint       `json:"course_id" validate:"required"`
	DueDate  *time.Time `json:"due_date"`
}

// RecordView decorates a course record with the portal's due-status badge.
type RecordView struct {
	*models.UserCourseRecord
	DueStatus string `json:"due_status"`
}

// ProgressService manages per-user course records: assignment, re-issue,
// and listings. The monotonic attempt/fail counters are only ever reset
// here, by an explicit re-issue.
type ProgressService interface {
	AssignCourse(ctx context.Context, req *AssignCourseRequest, assignedBy string) (*models.UserCourseRecord, error)
	Reissue(ctx context.Context, req *ReissueCourseRequest, reissuedBy string) (*models.UserCourseRecord, error)
	GetUserRecords(ctx context.Context, userID string) ([]*RecordView, error)
	GetRecord(ctx context.Context, userID string, courseID uint) (*RecordView, error)
	ListRecords(ctx context.Context, filters repositories.RecordFilters) ([]*models.UserCourseRecord, int64, error)
}

type progressService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewProgressService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator) ProgressService {
	return &progressService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: v,
		now:       time.Now,
	}
}

func (s *progressService) AssignCourse(ctx context.Context, req *AssignCourseRequest, assignedBy string) (*models.UserCourseRecord, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if _, err := s.repo.Course().GetByID(ctx, req.CourseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	if _, err := s.repo.Progress().GetRecord(ctx, req.UserID, req.CourseID); err == nil {
		return nil, ErrRecordAlreadyExists
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check existing record: %w", err)
	}

	record := &models.UserCourseRecord{
		UserID:   req.UserID,
		CourseID: req.CourseID,
		Status:   models.RecordNotStarted,
		DueDate:  req.DueDate,
	}

	if err := s.repo.Progress().CreateRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create course record: %w", err)
	}

	s.logger.Info("Course assigned",
		"user_id", req.UserID,
		"course_id", req.CourseID,
		"assigned_by", assignedBy)
	return record, nil
}

// Reissue restarts certification tracking: counters back to zero, completion
// cleared, new due date. This is the only sanctioned reset of the monotonic
// attempt and fail counters.
func (s *progressService) Reissue(ctx context.Context, req *ReissueCourseRequest, reissuedBy string) (*models.UserCourseRecord, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	record, err := s.repo.Progress().GetRecord(ctx, req.UserID, req.CourseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get course record: %w", err)
	}

	record.Status = models.RecordNotStarted
	record.DueDate = req.DueDate
	record.CompletedDate = nil
	record.AttemptCount = 0
	record.FailCount = 0

	if err := s.repo.Progress().UpdateRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update course record: %w", err)
	}

	s.logger.Info("Course re-issued",
		"user_id", req.UserID,
		"course_id", req.CourseID,
		"reissued_by", reissuedBy)

	if s.publisher != nil {
		event := events.NewCourseReissuedEvent(events.CourseReissuedEvent{
			CourseID:   req.CourseID,
			UserID:     req.UserID,
			ReissuedBy: reissuedBy,
			NewDueDate: req.DueDate,
		})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish event", "event_type", event.Type, "error", err)
		}
	}

	return record, nil
}

func (s *progressService) GetUserRecords(ctx context.Context, userID string) ([]*RecordView, error) {
	records, err := s.repo.Progress().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list course records: %w", err)
	}

	now := s.now()
	views := make([]*RecordView, len(records))
	for i, record := range records {
		views[i] = &RecordView{
			UserCourseRecord: record,
			DueStatus:        record.DueStatusText(now),
		}
	}
	return views, nil
}

func (s *progressService) GetRecord(ctx context.Context, userID string, courseID uint) (*RecordView, error) {
	record, err := s.repo.Progress().GetRecord(ctx, userID, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get course record: %w", err)
	}

	return &RecordView{
		UserCourseRecord: record,
		DueStatus:        record.DueStatusText(s.now()),
	}, nil
}

func (s *progressService) ListRecords(ctx context.Context, filters repositories.RecordFilters) ([]*models.UserCourseRecord, int64, error) {
	return s.repo.Progress().List(ctx, filters)
}
