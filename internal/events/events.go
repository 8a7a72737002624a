package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

// EventType identifies the kinds of events the training service emits.
type EventType string

const (
	// Session events
	EventSessionStarted   EventType = "session.started"
	EventSessionCompleted EventType = "session.completed"

	// Administrative events
	EventCourseReissued EventType = "course.reissued"
)

// Event is the envelope for all published events.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Data      interface{} `json:"data"`
}

// SessionStartedEvent fires when a quiz session is created, after the
// attempt counters have been registered.
type SessionStartedEvent struct {
	SessionID     string    `json:"session_id"`
	CourseID      uint      `json:"course_id"`
	CourseTitle   string    `json:"course_title"`
	UserID        string    `json:"user_id"`
	QuestionCount int       `json:"question_count"`
	StartedAt     time.Time `json:"started_at"`
}

// SessionCompletedEvent fires once per completed session, whether or not
// the result commit succeeded.
type SessionCompletedEvent struct {
	SessionID       string    `json:"session_id"`
	CourseID        uint      `json:"course_id"`
	CourseTitle     string    `json:"course_title"`
	UserID          string    `json:"user_id"`
	Score           int       `json:"score"`
	Total           int       `json:"total"`
	Passed          bool      `json:"passed"`
	DurationSeconds int64     `json:"duration_seconds"`
	CompletedAt     time.Time `json:"completed_at"`
	Committed       bool      `json:"committed"`
}

// CourseReissuedEvent fires when an admin re-issues a course to a user.
type CourseReissuedEvent struct {
	CourseID   uint       `json:"course_id"`
	UserID     string     `json:"user_id"`
	ReissuedBy string     `json:"reissued_by"`
	NewDueDate *time.Time `json:"new_due_date,omitempty"`
}

const eventSource = "training-service"

func newEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   "1.0",
		Data:      data,
	}
}

func NewSessionStartedEvent(data SessionStartedEvent) *Event {
	return newEvent(EventSessionStarted, data)
}

func NewSessionCompletedEvent(data SessionCompletedEvent) *Event {
	return newEvent(EventSessionCompleted, data)
}

func NewCourseReissuedEvent(data CourseReissuedEvent) *Event {
	return newEvent(EventCourseReissued, data)
}
