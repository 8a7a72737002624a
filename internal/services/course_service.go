package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corplearn/training-service/internal/models"
	"github.com/corplearn/training-service/internal/repositories"
	"github.com/corplearn/training-service/internal/validator"
)

type CreateCourseRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	QuizLength  int     `json:"quiz_length" validate:"min=0,max=100"`
}

type CreateQuestionRequest struct {
	Text          string   `json:"text" validate:"required,min=1"`
	Options       []string `json:"options" validate:"required,len=4,dive,required"`
	CorrectAnswer int      `json:"correct_answer" validate:"min=0,max=3"`
}

// CourseService owns the course catalog and its question pools. Question
// mutations invalidate the loader's cached pool so running sessions keep
// their snapshot while new sessions see the change.
type CourseService interface {
	Create(ctx context.Context, req *CreateCourseRequest, creatorID string) (*models.Course, error)
	GetByID(ctx context.Context, id uint) (*models.Course, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.Course, error)
	List(ctx context.Context, filters repositories.CourseFilters) ([]*models.Course, int64, error)
	Activate(ctx context.Context, id uint) error
	Archive(ctx context.Context, id uint) error

	AddQuestions(ctx context.Context, courseID uint, reqs []CreateQuestionRequest, creatorID string) ([]*models.Question, error)
	ListQuestions(ctx context.Context, courseID uint) ([]*models.Question, error)
	DeleteQuestion(ctx context.Context, courseID, questionID uint) error
}

type courseService struct {
	repo      repositories.Repository
	loader    PoolLoader
	logger    *slog.Logger
	validator *validator.Validator
}

func NewCourseService(repo repositories.Repository, loader PoolLoader, logger *slog.Logger, v *validator.Validator) CourseService {
	return &courseService{
		repo:      repo,
		loader:    loader,
		logger:    logger,
		validator: v,
	}
}

func (s *courseService) Create(ctx context.Context, req *CreateCourseRequest, creatorID string) (*models.Course, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	course := &models.Course{
		Title:       req.Title,
		Description: req.Description,
		QuizLength:  req.QuizLength,
		Status:      models.CourseDraft,
		CreatedBy:   creatorID,
	}

	if err := s.repo.Course().Create(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.Info("Course created", "course_id", course.ID, "title", course.Title, "created_by", creatorID)
	return course, nil
}

func (s *courseService) GetByID(ctx context.Context, id uint) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

func (s *courseService) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Course, error) {
	course, err := s.repo.Course().GetByIDWithQuestions(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

func (s *courseService) List(ctx context.Context, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	return s.repo.Course().List(ctx, filters)
}

func (s *courseService) Activate(ctx context.Context, id uint) error {
	return s.setStatus(ctx, id, models.CourseActive)
}

func (s *courseService) Archive(ctx context.Context, id uint) error {
	return s.setStatus(ctx, id, models.CourseArchived)
}

func (s *courseService) setStatus(ctx context.Context, id uint, status models.CourseStatus) error {
	course, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	course.Status = status
	if err := s.repo.Course().Update(ctx, course); err != nil {
		return fmt.Errorf("failed to update course status: %w", err)
	}

	s.logger.Info("Course status changed", "course_id", id, "status", status)
	return nil
}

func (s *courseService) AddQuestions(ctx context.Context, courseID uint, reqs []CreateQuestionRequest, creatorID string) ([]*models.Question, error) {
	if _, err := s.GetByID(ctx, courseID); err != nil {
		return nil, err
	}

	questions := make([]*models.Question, 0, len(reqs))
	for i, req := range reqs {
		if err := s.validator.Validate(&req); err != nil {
			return nil, fmt.Errorf("question %d: validation failed: %w", i+1, err)
		}

		question := &models.Question{
			CourseID:      courseID,
			Text:          req.Text,
			CorrectAnswer: req.CorrectAnswer,
			CreatedBy:     creatorID,
		}
		if err := question.SetOptions(req.Options); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		if errs := s.validator.Question().ValidateContent(question); len(errs) > 0 {
			return nil, fmt.Errorf("question %d: %w", i+1, errs)
		}
		questions = append(questions, question)
	}

	if err := s.repo.Question().CreateBatch(ctx, questions); err != nil {
		return nil, fmt.Errorf("failed to create questions: %w", err)
	}

	if err := s.loader.Invalidate(ctx, courseID); err != nil {
		s.logger.Warn("Failed to invalidate question pool", "course_id", courseID, "error", err)
	}

	s.logger.Info("Questions added", "course_id", courseID, "count", len(questions))
	return questions, nil
}

func (s *courseService) ListQuestions(ctx context.Context, courseID uint) ([]*models.Question, error) {
	if _, err := s.GetByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.repo.Question().GetByCourse(ctx, courseID)
}

func (s *courseService) DeleteQuestion(ctx context.Context, courseID, questionID uint) error {
	question, err := s.repo.Question().GetByID(ctx, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}
	if question.CourseID != courseID {
		return ErrNotFound
	}

	if err := s.repo.Question().Delete(ctx, questionID); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	if err := s.loader.Invalidate(ctx, courseID); err != nil {
		s.logger.Warn("Failed to invalidate question pool", "course_id", courseID, "error", err)
	}

	return nil
}
