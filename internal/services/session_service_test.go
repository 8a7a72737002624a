package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/corplearn/training-service/internal/events"
	"github.com/corplearn/training-service/internal/models"
	"github.com/corplearn/training-service/internal/quiz"
	"github.com/corplearn/training-service/internal/repositories"
	"github.com/corplearn/training-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ===== TEST DOUBLES =====

type mockCourseRepository struct {
	mock.Mock
}

func (m *mockCourseRepository) Create(ctx context.Context, course *models.Course) error {
	args := m.Called(ctx, course)
	return args.Error(0)
}

func (m *mockCourseRepository) GetByID(ctx context.Context, id uint) (*models.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *mockCourseRepository) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Course, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *mockCourseRepository) Update(ctx context.Context, course *models.Course) error {
	args := m.Called(ctx, course)
	return args.Error(0)
}

func (m *mockCourseRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCourseRepository) List(ctx context.Context, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Course), args.Get(1).(int64), args.Error(2)
}

// mockRepository serves only the course repository; session flows touch
// nothing else directly.
type mockRepository struct {
	course *mockCourseRepository
}

func (m *mockRepository) Course() repositories.CourseRepository           { return m.course }
func (m *mockRepository) Question() repositories.QuestionRepository      { return nil }
func (m *mockRepository) Progress() repositories.ProgressRepository      { return nil }
func (m *mockRepository) ActivityLog() repositories.ActivityLogRepository { return nil }
func (m *mockRepository) User() repositories.UserRepository              { return nil }

type stubPoolLoader struct {
	pool []quiz.Question
	err  error
}

func (s *stubPoolLoader) Start(ctx context.Context) error { return nil }
func (s *stubPoolLoader) Stop() error                     { return nil }
func (s *stubPoolLoader) Snapshot(ctx context.Context, courseID uint) ([]quiz.Question, error) {
	return s.pool, s.err
}
func (s *stubPoolLoader) Invalidate(ctx context.Context, courseID uint) error { return nil }

type mockCommitter struct {
	mock.Mock
}

func (m *mockCommitter) RegisterAttemptStart(ctx context.Context, userID string, courseID uint) error {
	args := m.Called(ctx, userID, courseID)
	return args.Error(0)
}

func (m *mockCommitter) CommitResult(ctx context.Context, userID string, courseID uint, outcome QuizOutcome) error {
	args := m.Called(ctx, userID, courseID, outcome)
	return args.Error(0)
}

// ===== HELPERS =====

func testPool(n int) []quiz.Question {
	pool := make([]quiz.Question, n)
	for i := 0; i < n; i++ {
		pool[i] = quiz.Question{
			ID:   uint(i + 1),
			Text: fmt.Sprintf("question %d", i+1),
			Options: []string{
				fmt.Sprintf("q%d a", i+1),
				fmt.Sprintf("q%d b", i+1),
				fmt.Sprintf("q%d c", i+1),
				fmt.Sprintf("q%d d", i+1),
			},
			CorrectAnswer: i % 4,
		}
	}
	return pool
}

type sessionFixture struct {
	service   SessionService
	courses   *mockCourseRepository
	committer *mockCommitter
	publisher *events.MockEventPublisher
}

func newSessionFixture(t *testing.T, pool []quiz.Question, quizLength int) *sessionFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	courses := &mockCourseRepository{}
	courses.On("GetByID", mock.Anything, uint(1)).Return(&models.Course{
		ID:         1,
		Title:      "Fire Safety",
		Status:     models.CourseActive,
		QuizLength: quizLength,
	}, nil)

	committer := &mockCommitter{}
	committer.On("RegisterAttemptStart", mock.Anything, "user-1", uint(1)).Return(nil)

	publisher := events.NewMockEventPublisher(logger)

	service := NewSessionService(
		&mockRepository{course: courses},
		&stubPoolLoader{pool: pool},
		committer,
		publisher,
		logger,
		validator.New(),
	)

	return &sessionFixture{
		service:   service,
		courses:   courses,
		committer: committer,
		publisher: publisher,
	}
}

func optionIndex(i int) *int { return &i }

// playThrough answers every remaining question and returns the final
// response plus the number of correct answers given.
func playThrough(t *testing.T, f *sessionFixture, sessionID string) (*SessionResponse, int) {
	t.Helper()
	ctx := context.Background()

	correctCount := 0
	for {
		answer, err := f.service.SelectAnswer(ctx, sessionID, "user-1", &SelectAnswerRequest{OptionIndex: optionIndex(0)})
		require.NoError(t, err)
		if answer.Correct {
			correctCount++
		}

		resp, err := f.service.Advance(ctx, sessionID, "user-1")
		require.NoError(t, err)
		if resp.State == "completed" {
			return resp, correctCount
		}
	}
}

// ===== TESTS =====

func TestSessionService_StartReturnsActiveSession(t *testing.T) {
	f := newSessionFixture(t, testPool(5), 3)

	resp, err := f.service.Start(context.Background(), "user-1", &StartSessionRequest{CourseID: 1})
	require.NoError(t, err)

	assert.Equal(t, "active", resp.State)
	assert.Equal(t, 3, resp.Progress.Total)
	assert.Equal(t, 0, resp.Progress.Index)
	require.NotNil(t, resp.Question)
	assert.Len(t, resp.Question.Options, 4)

	f.committer.AssertCalled(t, "RegisterAttemptStart", mock.Anything, "user-1", uint(1))

	published := f.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventSessionStarted, published[0].Type)
}

func TestSessionService_StartEmptyPool(t *testing.T) {
	f := newSessionFixture(t, nil, 3)

	_, err := f.service.Start(context.Background(), "user-1", &StartSessionRequest{CourseID: 1})
	assert.ErrorIs(t, err, ErrCourseNoQuestions)
}

func TestSessionService_CompletionCommitsOnce(t *testing.T) {
	f := newSessionFixture(t, testPool(5), 3)
	f.committer.On("CommitResult", mock.Anything, "user-1", uint(1), mock.Anything).Return(nil)

	resp, err := f.service.Start(context.Background(), "user-1", &StartSessionRequest{CourseID: 1})
	require.NoError(t, err)

	final, correctCount := playThrough(t, f, resp.SessionID)

	assert.Equal(t, "completed", final.State)
	assert.Equal(t, correctCount, final.Score)
	assert.Equal(t, 3, final.Total)
	assert.False(t, final.CommitFailed)

	f.committer.AssertNumberOfCalls(t, "CommitResult", 1)

	published := f.publisher.GetPublishedEvents()
	require.Len(t, published, 2)
	assert.Equal(t, events.EventSessionCompleted, published[1].Type)

	data, ok := published[1].Data.(events.SessionCompletedEvent)
	require.True(t, ok)
	assert.True(t, data.Committed)
	assert.Equal(t, correctCount, data.Score)
}

func TestSessionService_CommitFailureKeepsScore(t *testing.T) {
	f := newSessionFixture(t, testPool(3), 3)
	f.committer.On("CommitResult", mock.Anything, "user-1", uint(1), mock.Anything).
		Return(fmt.Errorf("%w: store unavailable", ErrPersistenceFailed))

	resp, err := f.service.Start(context.Background(), "user-1", &StartSessionRequest{CourseID: 1})
	require.NoError(t, err)

	final, correctCount := playThrough(t, f, resp.SessionID)

	assert.Equal(t, "completed", final.State)
	assert.Equal(t, correctCount, final.Score, "score must survive a failed commit")
	assert.True(t, final.CommitFailed)

	published := f.publisher.GetPublishedEvents()
	data, ok := published[len(published)-1].Data.(events.SessionCompletedEvent)
	require.True(t, ok)
	assert.False(t, data.Committed)
}

func TestSessionService_DoubleAnswerRejected(t *testing.T) {
	f := newSessionFixture(t, testPool(3), 2)

	resp, err := f.service.Start(context.Background(), "user-1", &StartSessionRequest{CourseID: 1})
	require.NoError(t, err)

	_, err = f.service.SelectAnswer(context.Background(), resp.SessionID, "user-1", &SelectAnswerRequest{OptionIndex: optionIndex(0)})
	require.NoError(t, err)

	_, err = f.service.SelectAnswer(context.Background(), resp.SessionID, "user-1", &SelectAnswerRequest{OptionIndex: optionIndex(1)})
	assert.ErrorIs(t, err, quiz.ErrAnswerAlreadyRecorded)
}

func TestSessionService_OwnershipEnforced(t *testing.T) {
	f := newSessionFixture(t, testPool(3), 2)

	resp, err := f.service.Start(context.Background(), "user-1", &StartSessionRequest{CourseID: 1})
	require.NoError(t, err)

	_, err = f.service.Progress(context.Background(), resp.SessionID, "someone-else")
	assert.ErrorIs(t, err, ErrSessionNotOwned)
}

func TestSessionService_ExitRequiresConfirmationWhileActive(t *testing.T) {
	f := newSessionFixture(t, testPool(3), 2)

	resp, err := f.service.Start(context.Background(), "user-1", &StartSessionRequest{CourseID: 1})
	require.NoError(t, err)

	err = f.service.Exit(context.Background(), resp.SessionID, "user-1", false)
	assert.ErrorIs(t, err, ErrSessionActive)

	require.NoError(t, f.service.Exit(context.Background(), resp.SessionID, "user-1", true))

	_, err = f.service.Progress(context.Background(), resp.SessionID, "user-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_ExitAfterCompletionNeedsNoConfirmation(t *testing.T) {
	f := newSessionFixture(t, testPool(2), 2)
	f.committer.On("CommitResult", mock.Anything, "user-1", uint(1), mock.Anything).Return(nil)

	resp, err := f.service.Start(context.Background(), "user-1", &StartSessionRequest{CourseID: 1})
	require.NoError(t, err)

	playThrough(t, f, resp.SessionID)

	assert.NoError(t, f.service.Exit(context.Background(), resp.SessionID, "user-1", false))
}

func TestSessionService_ResetStartsFreshAttempt(t *testing.T) {
	f := newSessionFixture(t, testPool(4), 2)
	f.committer.On("CommitResult", mock.Anything, "user-1", uint(1), mock.Anything).Return(nil)

	resp, err := f.service.Start(context.Background(), "user-1", &StartSessionRequest{CourseID: 1})
	require.NoError(t, err)

	playThrough(t, f, resp.SessionID)

	fresh, err := f.service.Reset(context.Background(), resp.SessionID, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "active", fresh.State)
	assert.Equal(t, 0, fresh.Progress.Index)
	assert.Nil(t, fresh.Progress.Score)

	// A retry is a new attempt.
	f.committer.AssertNumberOfCalls(t, "RegisterAttemptStart", 2)
}

func TestSessionService_PoolChangeDoesNotAffectRunningSession(t *testing.T) {
	loaderPool := testPool(5)
	f := newSessionFixture(t, loaderPool, 5)

	resp, err := f.service.Start(context.Background(), "user-1", &StartSessionRequest{CourseID: 1})
	require.NoError(t, err)
	require.Equal(t, 5, resp.Progress.Total)

	// The loader now serves a shrunken pool; the running session keeps its
	// snapshot.
	loaderPool[0].Text = "mutated"

	progress, err := f.service.Progress(context.Background(), resp.SessionID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, progress.Total)
}
