package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corplearn/training-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

// UserUsage is one row of the usage report.
type UserUsage struct {
	UserID            string `json:"user_id"`
	FullName          string `json:"full_name"`
	Attempts          int    `json:"attempts"`
	Passes            int    `json:"passes"`
	Fails             int    `json:"fails"`
	PassRate          int    `json:"pass_rate"`
	TotalTrainingTime int64  `json:"total_training_time"`
	FormattedTime     string `json:"formatted_time"`
}

// StatsService aggregates activity logs for the admin usage report.
type StatsService interface {
	GetUsageSummary(ctx context.Context) ([]*UserUsage, error)
	ExportUsageSummary(ctx context.Context) ([]byte, error)
}

type statsService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewStatsService(repo repositories.Repository, logger *slog.Logger) StatsService {
	return &statsService{
		repo:   repo,
		logger: logger,
	}
}

func (s *statsService) GetUsageSummary(ctx context.Context) ([]*UserUsage, error) {
	logs, err := s.repo.ActivityLog().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity logs: %w", err)
	}

	usage := make([]*UserUsage, 0, len(logs))
	for _, log := range logs {
		row := &UserUsage{
			UserID:            log.UserID,
			Attempts:          log.Attempts,
			Passes:            log.Passes,
			Fails:             log.Fails,
			PassRate:          log.PassRate,
			TotalTrainingTime: log.TotalTrainingTime,
			FormattedTime:     FormatTrainingTime(log.TotalTrainingTime),
		}

		user, err := s.repo.User().GetByID(ctx, log.UserID)
		if err != nil {
			if !repositories.IsNotFoundError(err) {
				return nil, fmt.Errorf("failed to get user: %w", err)
			}
			row.FullName = log.UserID
		} else {
			row.FullName = user.FullName
		}

		usage = append(usage, row)
	}

	return usage, nil
}

// ExportUsageSummary renders the usage report as an xlsx workbook.
func (s *statsService) ExportUsageSummary(ctx context.Context) ([]byte, error) {
	usage, err := s.GetUsageSummary(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Usage"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"User ID", "Name", "Attempts", "Passes", "Fails", "Pass Rate (%)", "Training Time"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for rowIdx, row := range usage {
		values := []interface{}{
			row.UserID,
			row.FullName,
			row.Attempts,
			row.Passes,
			row.Fails,
			row.PassRate,
			row.FormattedTime,
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Usage report exported", "rows", len(usage))
	return buf.Bytes(), nil
}

// FormatTrainingTime renders seconds as HH:MM:SS.
func FormatTrainingTime(seconds int64) string {
	if seconds <= 0 {
		return "00:00:00"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
