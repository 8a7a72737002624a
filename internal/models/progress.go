package models

import (
	"time"
)

type CourseRecordStatus string

const (
	RecordNotStarted CourseRecordStatus = "not-started"
	RecordInProgress CourseRecordStatus = "in-progress"
	RecordCompleted  CourseRecordStatus = "completed"
	RecordFailed     CourseRecordStatus = "failed"
)

// UserCourseRecord tracks one user's standing on one assigned course.
// Attempt and fail counters only grow until an administrative re-issue
// resets them.
type UserCourseRecord struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_user_course"`
	CourseID uint   `json:"course_id" gorm:"not null;uniqueIndex:idx_user_course"`

	Status        CourseRecordStatus `json:"status" gorm:"default:not-started;index"`
	DueDate       *time.Time         `json:"due_date"`
	CompletedDate *time.Time         `json:"completed_date"`
	AttemptCount  int                `json:"attempt_count" gorm:"default:0"`
	FailCount     int                `json:"fail_count" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User   User   `json:"-" gorm:"foreignKey:UserID"`
	Course Course `json:"-" gorm:"foreignKey:CourseID"`
}

// ActivityLog is the per-user aggregate across all courses. PassRate is a
// stored integer percentage derived from passes and attempts; attempts is
// incremented at session start, passes/fails only at completion, so an
// abandoned session depresses the rate.
type ActivityLog struct {
	UserID string `json:"user_id" gorm:"primaryKey;size:255"`

	Attempts          int   `json:"attempts" gorm:"default:0"`
	Passes            int   `json:"passes" gorm:"default:0"`
	Fails             int   `json:"fails" gorm:"default:0"`
	PassRate          int   `json:"pass_rate" gorm:"default:0"`
	TotalTrainingTime int64 `json:"total_training_time" gorm:"default:0"` // seconds

	UpdatedAt time.Time `json:"updated_at"`
}

func (UserCourseRecord) TableName() string {
	return "user_course_records"
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

// DueStatusText mirrors the portal's course badge logic: completed records
// show the completion date, otherwise the due date decides the bucket.
func (r *UserCourseRecord) DueStatusText(now time.Time) string {
	if r.Status == RecordCompleted {
		if r.CompletedDate != nil {
			return "Completed: " + r.CompletedDate.Format("2006-01-02")
		}
		return "Completed"
	}
	if r.DueDate == nil {
		return "Not Started"
	}
	daysRemaining := int(r.DueDate.Sub(now).Hours() / 24)
	switch {
	case r.DueDate.Before(now):
		return "Overdue"
	case daysRemaining <= 7:
		return "Due Soon"
	default:
		return "In Progress"
	}
}
