package postgres

import (
	"context"
	"errors"

	"github.com/corplearn/training-service/internal/models"
	"github.com/corplearn/training-service/internal/repositories"
	"gorm.io/gorm"
)

// Repository is the gorm-backed aggregate. Begin returns a copy bound to a
// transaction; Commit/Rollback are valid only on such a copy.
type Repository struct {
	db   *gorm.DB
	inTx bool
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Course() repositories.CourseRepository {
	return NewCoursePostgreSQL(r.db)
}

func (r *Repository) Question() repositories.QuestionRepository {
	return NewQuestionPostgreSQL(r.db)
}

func (r *Repository) Progress() repositories.ProgressRepository {
	return NewProgressPostgreSQL(r.db)
}

func (r *Repository) ActivityLog() repositories.ActivityLogRepository {
	return NewActivityLogPostgreSQL(r.db)
}

func (r *Repository) User() repositories.UserRepository {
	return NewUserPostgreSQL(r.db)
}

func (r *Repository) Begin(ctx context.Context) (repositories.Repository, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Repository{db: tx, inTx: true}, nil
}

func (r *Repository) Commit(_ context.Context) error {
	if !r.inTx {
		return errors.New("commit outside of transaction")
	}
	return r.db.Commit().Error
}

func (r *Repository) Rollback(_ context.Context) error {
	if !r.inTx {
		return errors.New("rollback outside of transaction")
	}
	return r.db.Rollback().Error
}

// AutoMigrate creates or updates the schema for all tracked models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Question{},
		&models.UserCourseRecord{},
		&models.ActivityLog{},
	)
}
