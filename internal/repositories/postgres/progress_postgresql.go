package postgres

import (
	"context"

	"github.com/corplearn/training-service/internal/models"
	"github.com/corplearn/training-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db}
}

func (p ProgressPostgreSQL) CreateRecord(ctx context.Context, record *models.UserCourseRecord) error {
	return p.db.WithContext(ctx).Create(record).Error
}

func (p ProgressPostgreSQL) GetRecord(ctx context.Context, userID string, courseID uint) (*models.UserCourseRecord, error) {
	var record models.UserCourseRecord
	if err := p.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// GetRecordForUpdate locks the row until the surrounding transaction ends.
func (p ProgressPostgreSQL) GetRecordForUpdate(ctx context.Context, userID string, courseID uint) (*models.UserCourseRecord, error) {
	var record models.UserCourseRecord
	if err := p.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (p ProgressPostgreSQL) UpdateRecord(ctx context.Context, record *models.UserCourseRecord) error {
	return p.db.WithContext(ctx).Save(record).Error
}

func (p ProgressPostgreSQL) ListByUser(ctx context.Context, userID string) ([]*models.UserCourseRecord, error) {
	var records []*models.UserCourseRecord
	if err := p.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Course").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (p ProgressPostgreSQL) List(ctx context.Context, filters repositories.RecordFilters) ([]*models.UserCourseRecord, int64, error) {
	var records []*models.UserCourseRecord
	var total int64

	query := p.db.WithContext(ctx).Model(&models.UserCourseRecord{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.DueBefore != nil {
		query = query.Where("due_date IS NOT NULL AND due_date < ?", *filters.DueBefore)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Preload("Course").Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
