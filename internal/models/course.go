package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CourseStatus string

const (
	CourseDraft    CourseStatus = "Draft"
	CourseActive   CourseStatus = "Active"
	CourseArchived CourseStatus = "Archived"
)

// OptionCount is the fixed number of answer options per question.
const OptionCount = 4

type Course struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Title       string       `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string      `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	Status      CourseStatus `json:"status" gorm:"default:Draft;index" validate:"omitempty,course_status"`

	// Number of questions drawn from the pool per session. Zero means the
	// whole pool.
	QuizLength int `json:"quiz_length" gorm:"default:0" validate:"min=0,max=100"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:CourseID"`

	// Computed fields (not stored)
	QuestionsCount int `json:"questions_count" gorm:"-"`
}

type Question struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	CourseID uint   `json:"course_id" gorm:"not null;index"`
	Text     string `json:"text" gorm:"type:text;not null" validate:"required,min=1"`

	// Options holds exactly OptionCount answer strings as a jsonb array.
	Options datatypes.JSON `json:"options" gorm:"type:jsonb;not null"`

	// Zero-based index into Options of the correct answer.
	CorrectAnswer int `json:"correct_answer" gorm:"not null" validate:"min=0,max=3"`

	CreatedBy string         `json:"created_by" gorm:"size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Course Course `json:"-" gorm:"foreignKey:CourseID"`
}

func (Course) TableName() string {
	return "courses"
}

func (Question) TableName() string {
	return "questions"
}

// OptionList decodes the jsonb options column into a string slice.
func (q *Question) OptionList() ([]string, error) {
	var options []string
	if err := json.Unmarshal(q.Options, &options); err != nil {
		return nil, err
	}
	return options, nil
}

// SetOptions encodes the given answer strings into the jsonb options column.
func (q *Question) SetOptions(options []string) error {
	data, err := json.Marshal(options)
	if err != nil {
		return err
	}
	q.Options = data
	return nil
}
