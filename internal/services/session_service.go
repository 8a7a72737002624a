package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/corplearn/training-service/internal/events"
	"github.com/corplearn/training-service/internal/quiz"
	"github.com/corplearn/training-service/internal/repositories"
	"github.com/corplearn/training-service/internal/validator"
)

// ===== REQUEST / RESPONSE TYPES =====

type StartSessionRequest struct {
	CourseID uint `json:"course_id" validate:"required"`
}

type SelectAnswerRequest struct {
	// Pointer so option 0 survives required validation.
	OptionIndex *int `json:"option_index" validate:"required,min=0,max=3"`
}

// QuestionView is the current question as shown to the participant; the
// correct index never leaves the service.
type QuestionView struct {
	ID      uint     `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type SessionResponse struct {
	SessionID   string        `json:"session_id"`
	CourseID    uint          `json:"course_id"`
	CourseTitle string        `json:"course_title"`
	State       string        `json:"state"` // "active" or "completed"
	Progress    quiz.Progress `json:"progress"`
	Question    *QuestionView `json:"question,omitempty"`

	// Completion fields
	Score        int  `json:"score,omitempty"`
	Total        int  `json:"total,omitempty"`
	Passed       bool `json:"passed,omitempty"`
	CommitFailed bool `json:"commit_failed,omitempty"`
}

type AnswerResponse struct {
	Correct       bool `json:"correct"`
	CorrectOption int  `json:"correct_option"`
}

// ===== SERVICE =====

// SessionService drives quiz sessions end to end: pool snapshot, assembly,
// state machine transitions, and the result commit on completion.
type SessionService interface {
	Start(ctx context.Context, userID string, req *StartSessionRequest) (*SessionResponse, error)
	SelectAnswer(ctx context.Context, sessionID, userID string, req *SelectAnswerRequest) (*AnswerResponse, error)
	Advance(ctx context.Context, sessionID, userID string) (*SessionResponse, error)
	Reset(ctx context.Context, sessionID, userID string) (*SessionResponse, error)
	Progress(ctx context.Context, sessionID, userID string) (*quiz.Progress, error)
	Exit(ctx context.Context, sessionID, userID string, force bool) error
}

// sessionEntry serializes all access to one session. Each entry carries its
// own rand source; quiz.Session is not safe for concurrent use.
type sessionEntry struct {
	mu          sync.Mutex
	session     *quiz.Session
	rng         *rand.Rand
	userID      string
	courseID    uint
	courseTitle string
	quizLength  int
	committed   bool
}

type sessionService struct {
	repo      repositories.Repository
	loader    PoolLoader
	committer ResultCommitter
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator

	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	now    func() time.Time
	newRNG func() *rand.Rand
}

func NewSessionService(
	repo repositories.Repository,
	loader PoolLoader,
	committer ResultCommitter,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
) SessionService {
	return &sessionService{
		repo:      repo,
		loader:    loader,
		committer: committer,
		publisher: publisher,
		logger:    logger,
		validator: v,
		sessions:  make(map[string]*sessionEntry),
		now:       time.Now,
		newRNG: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// Start snapshots the course pool, assembles a quiz and registers the
// attempt. Registration is best-effort: a store failure is logged but the
// participant still gets their quiz.
func (s *sessionService) Start(ctx context.Context, userID string, req *StartSessionRequest) (*SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	course, err := s.repo.Course().GetByID(ctx, req.CourseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	pool, err := s.loader.Snapshot(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, ErrCourseNoQuestions
	}

	entry := &sessionEntry{
		rng:         s.newRNG(),
		userID:      userID,
		courseID:    course.ID,
		courseTitle: course.Title,
		quizLength:  course.QuizLength,
	}

	session, err := quiz.NewSession(entry.rng, pool, entry.quizLength, s.now())
	if err != nil {
		return nil, err
	}
	entry.session = session

	if err := s.committer.RegisterAttemptStart(ctx, userID, course.ID); err != nil {
		s.logger.Warn("Attempt registration failed, session continues",
			"user_id", userID,
			"course_id", course.ID,
			"error", err)
	}

	sessionID := watermill.NewUUID()
	s.mu.Lock()
	s.sessions[sessionID] = entry
	s.mu.Unlock()

	s.logger.Info("Quiz session started",
		"session_id", sessionID,
		"course_id", course.ID,
		"user_id", userID,
		"question_count", len(session.Questions()))

	s.publish(ctx, events.NewSessionStartedEvent(events.SessionStartedEvent{
		SessionID:     sessionID,
		CourseID:      course.ID,
		CourseTitle:   course.Title,
		UserID:        userID,
		QuestionCount: len(session.Questions()),
		StartedAt:     session.StartedAt(),
	}))

	return s.buildResponse(sessionID, entry), nil
}

func (s *sessionService) SelectAnswer(ctx context.Context, sessionID, userID string, req *SelectAnswerRequest) (*AnswerResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	entry, err := s.entryFor(sessionID, userID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	current := entry.session.Current()
	correct, err := entry.session.SelectAnswer(*req.OptionIndex)
	if err != nil {
		return nil, err
	}

	return &AnswerResponse{
		Correct:       correct,
		CorrectOption: current.CorrectAnswer,
	}, nil
}

// Advance steps the state machine; when it completes the session, the
// result is committed exactly once. A commit failure never hides the score:
// the response carries the outcome with CommitFailed set.
func (s *sessionService) Advance(ctx context.Context, sessionID, userID string) (*SessionResponse, error) {
	entry, err := s.entryFor(sessionID, userID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	done, err := entry.session.Advance()
	if err != nil {
		return nil, err
	}

	resp := s.buildResponse(sessionID, entry)
	if !done || entry.committed {
		return resp, nil
	}
	entry.committed = true

	completedAt := s.now()
	outcome := QuizOutcome{
		Score:       entry.session.Score(),
		Total:       len(entry.session.Questions()),
		Passed:      entry.session.Passed(),
		Duration:    entry.session.Duration(completedAt),
		CompletedAt: completedAt,
	}

	commitErr := s.committer.CommitResult(ctx, entry.userID, entry.courseID, outcome)
	if commitErr != nil {
		// Best-effort persistence: the participant keeps their score.
		s.logger.Error("Failed to save quiz results",
			"session_id", sessionID,
			"user_id", entry.userID,
			"course_id", entry.courseID,
			"error", commitErr)
		resp.CommitFailed = true
	}

	s.publish(ctx, events.NewSessionCompletedEvent(events.SessionCompletedEvent{
		SessionID:       sessionID,
		CourseID:        entry.courseID,
		CourseTitle:     entry.courseTitle,
		UserID:          entry.userID,
		Score:           outcome.Score,
		Total:           outcome.Total,
		Passed:          outcome.Passed,
		DurationSeconds: int64(outcome.Duration.Seconds()),
		CompletedAt:     completedAt,
		Committed:       commitErr == nil,
	}))

	return resp, nil
}

// Reset re-assembles a fresh quiz from the latest pool snapshot. A retry is
// a new attempt, so the counters are registered again.
func (s *sessionService) Reset(ctx context.Context, sessionID, userID string) (*SessionResponse, error) {
	entry, err := s.entryFor(sessionID, userID)
	if err != nil {
		return nil, err
	}

	pool, err := s.loader.Snapshot(ctx, entry.courseID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, ErrCourseNoQuestions
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := entry.session.Reset(entry.rng, pool, entry.quizLength, s.now()); err != nil {
		return nil, err
	}
	entry.committed = false

	if err := s.committer.RegisterAttemptStart(ctx, entry.userID, entry.courseID); err != nil {
		s.logger.Warn("Attempt registration failed on retry",
			"user_id", entry.userID,
			"course_id", entry.courseID,
			"error", err)
	}

	s.logger.Info("Quiz session reset", "session_id", sessionID, "user_id", entry.userID)

	return s.buildResponse(sessionID, entry), nil
}

func (s *sessionService) Progress(ctx context.Context, sessionID, userID string) (*quiz.Progress, error) {
	entry, err := s.entryFor(sessionID, userID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	p := entry.session.Progress()
	return &p, nil
}

// Exit discards the session. While the session is active the host must have
// routed the user through a confirmation step, signalled here with force.
func (s *sessionService) Exit(ctx context.Context, sessionID, userID string, force bool) error {
	entry, err := s.entryFor(sessionID, userID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	canExit := entry.session.CanExitWithoutConfirmation()
	entry.mu.Unlock()

	if !canExit && !force {
		return ErrSessionActive
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.logger.Info("Quiz session discarded", "session_id", sessionID, "user_id", userID, "forced", force)
	return nil
}

// ===== HELPERS =====

func (s *sessionService) entryFor(sessionID, userID string) (*sessionEntry, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if entry.userID != userID {
		return nil, ErrSessionNotOwned
	}
	return entry, nil
}

// buildResponse renders the session for the host. Caller holds entry.mu or
// has exclusive access.
func (s *sessionService) buildResponse(sessionID string, entry *sessionEntry) *SessionResponse {
	resp := &SessionResponse{
		SessionID:   sessionID,
		CourseID:    entry.courseID,
		CourseTitle: entry.courseTitle,
		Progress:    entry.session.Progress(),
	}

	if entry.session.Completed() {
		resp.State = "completed"
		resp.Score = entry.session.Score()
		resp.Total = len(entry.session.Questions())
		resp.Passed = entry.session.Passed()
		return resp
	}

	resp.State = "active"
	current := entry.session.Current()
	resp.Question = &QuestionView{
		ID:      current.ID,
		Text:    current.Text,
		Options: current.Options,
	}
	return resp
}

func (s *sessionService) publish(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
