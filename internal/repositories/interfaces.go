package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/corplearn/training-service/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type CourseFilters struct {
	Status    *models.CourseStatus `json:"status"`
	CreatedBy *string              `json:"created_by"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`    // "created_at", "title"
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}

type RecordFilters struct {
	Status    *models.CourseRecordStatus `json:"status"`
	UserID    *string                    `json:"user_id"`
	CourseID  *uint                      `json:"course_id"`
	DueBefore *time.Time                 `json:"due_before"`
	Limit     int                        `json:"limit"`
	Offset    int                        `json:"offset"`
}

// ===== REPOSITORY INTERFACES =====

type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id uint) (*models.Course, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.Course, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters CourseFilters) ([]*models.Course, int64, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	CreateBatch(ctx context.Context, questions []*models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
	GetByCourse(ctx context.Context, courseID uint) ([]*models.Question, error)
	CountByCourse(ctx context.Context, courseID uint) (int64, error)
}

// ProgressRepository owns per-user-per-course records. The ForUpdate
// variants take row locks and are only meaningful inside a transaction.
type ProgressRepository interface {
	CreateRecord(ctx context.Context, record *models.UserCourseRecord) error
	GetRecord(ctx context.Context, userID string, courseID uint) (*models.UserCourseRecord, error)
	GetRecordForUpdate(ctx context.Context, userID string, courseID uint) (*models.UserCourseRecord, error)
	UpdateRecord(ctx context.Context, record *models.UserCourseRecord) error
	ListByUser(ctx context.Context, userID string) ([]*models.UserCourseRecord, error)
	List(ctx context.Context, filters RecordFilters) ([]*models.UserCourseRecord, int64, error)
}

type ActivityLogRepository interface {
	Get(ctx context.Context, userID string) (*models.ActivityLog, error)
	GetForUpdate(ctx context.Context, userID string) (*models.ActivityLog, error)
	Save(ctx context.Context, log *models.ActivityLog) error
	ListAll(ctx context.Context) ([]*models.ActivityLog, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
	List(ctx context.Context, limit, offset int) ([]*models.User, int64, error)
}

// Repository aggregates access to all stores.
type Repository interface {
	Course() CourseRepository
	Question() QuestionRepository
	Progress() ProgressRepository
	ActivityLog() ActivityLogRepository
	User() UserRepository
}

// TransactionRepository is implemented by repositories that can open a
// transactional view of themselves. All reads and writes through the
// returned Repository happen in one database transaction.
type TransactionRepository interface {
	Begin(ctx context.Context) (Repository, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// IsNotFoundError reports whether err means the requested record is absent.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
