package postgres

import (
	"context"

	"github.com/corplearn/training-service/internal/models"
	"github.com/corplearn/training-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ActivityLogPostgreSQL struct {
	db *gorm.DB
}

func NewActivityLogPostgreSQL(db *gorm.DB) repositories.ActivityLogRepository {
	return &ActivityLogPostgreSQL{db: db}
}

func (a ActivityLogPostgreSQL) Get(ctx context.Context, userID string) (*models.ActivityLog, error) {
	var log models.ActivityLog
	if err := a.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&log).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

// GetForUpdate locks the row until the surrounding transaction ends.
func (a ActivityLogPostgreSQL) GetForUpdate(ctx context.Context, userID string) (*models.ActivityLog, error) {
	var log models.ActivityLog
	if err := a.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&log).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

func (a ActivityLogPostgreSQL) Save(ctx context.Context, log *models.ActivityLog) error {
	return a.db.WithContext(ctx).Save(log).Error
}

func (a ActivityLogPostgreSQL) ListAll(ctx context.Context) ([]*models.ActivityLog, error) {
	var logs []*models.ActivityLog
	if err := a.db.WithContext(ctx).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
