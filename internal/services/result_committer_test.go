package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/corplearn/training-service/internal/models"
	"github.com/corplearn/training-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memStore backs an in-memory Repository so the commit transactions can be
// exercised without a database.
type memStore struct {
	logs     map[string]*models.ActivityLog
	records  map[string]*models.UserCourseRecord
	beginErr error
}

func newMemStore() *memStore {
	return &memStore{
		logs:    make(map[string]*models.ActivityLog),
		records: make(map[string]*models.UserCourseRecord),
	}
}

func recordKey(userID string, courseID uint) string {
	return fmt.Sprintf("%s:%d", userID, courseID)
}

type memRepository struct {
	store *memStore
}

func (r *memRepository) Course() repositories.CourseRepository   { return nil }
func (r *memRepository) Question() repositories.QuestionRepository { return nil }
func (r *memRepository) User() repositories.UserRepository       { return nil }

func (r *memRepository) Progress() repositories.ProgressRepository {
	return &memProgressRepo{store: r.store}
}

func (r *memRepository) ActivityLog() repositories.ActivityLogRepository {
	return &memActivityLogRepo{store: r.store}
}

func (r *memRepository) Begin(ctx context.Context) (repositories.Repository, error) {
	if r.store.beginErr != nil {
		return nil, r.store.beginErr
	}
	return &memRepository{store: r.store}, nil
}

func (r *memRepository) Commit(ctx context.Context) error   { return nil }
func (r *memRepository) Rollback(ctx context.Context) error { return nil }

type memProgressRepo struct {
	store *memStore
}

func (m *memProgressRepo) CreateRecord(ctx context.Context, record *models.UserCourseRecord) error {
	clone := *record
	m.store.records[recordKey(record.UserID, record.CourseID)] = &clone
	return nil
}

func (m *memProgressRepo) GetRecord(ctx context.Context, userID string, courseID uint) (*models.UserCourseRecord, error) {
	record, ok := m.store.records[recordKey(userID, courseID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *record
	return &clone, nil
}

func (m *memProgressRepo) GetRecordForUpdate(ctx context.Context, userID string, courseID uint) (*models.UserCourseRecord, error) {
	return m.GetRecord(ctx, userID, courseID)
}

func (m *memProgressRepo) UpdateRecord(ctx context.Context, record *models.UserCourseRecord) error {
	clone := *record
	m.store.records[recordKey(record.UserID, record.CourseID)] = &clone
	return nil
}

func (m *memProgressRepo) ListByUser(ctx context.Context, userID string) ([]*models.UserCourseRecord, error) {
	var out []*models.UserCourseRecord
	for _, record := range m.store.records {
		if record.UserID == userID {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memProgressRepo) List(ctx context.Context, filters repositories.RecordFilters) ([]*models.UserCourseRecord, int64, error) {
	return nil, 0, nil
}

type memActivityLogRepo struct {
	store *memStore
}

func (m *memActivityLogRepo) Get(ctx context.Context, userID string) (*models.ActivityLog, error) {
	log, ok := m.store.logs[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *log
	return &clone, nil
}

func (m *memActivityLogRepo) GetForUpdate(ctx context.Context, userID string) (*models.ActivityLog, error) {
	return m.Get(ctx, userID)
}

func (m *memActivityLogRepo) Save(ctx context.Context, log *models.ActivityLog) error {
	clone := *log
	m.store.logs[log.UserID] = &clone
	return nil
}

func (m *memActivityLogRepo) ListAll(ctx context.Context) ([]*models.ActivityLog, error) {
	var out []*models.ActivityLog
	for _, log := range m.store.logs {
		clone := *log
		out = append(out, &clone)
	}
	return out, nil
}

func newTestCommitter(store *memStore) ResultCommitter {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewResultCommitter(&memRepository{store: store}, logger)
}

func TestResultCommitter_RegisterAttemptStart_FirstContact(t *testing.T) {
	store := newMemStore()
	committer := newTestCommitter(store)

	require.NoError(t, committer.RegisterAttemptStart(context.Background(), "user-1", 1))

	log := store.logs["user-1"]
	require.NotNil(t, log)
	assert.Equal(t, 1, log.Attempts)
	assert.Equal(t, 0, log.Passes)

	record := store.records[recordKey("user-1", 1)]
	require.NotNil(t, record, "a record is created even when the course was never assigned")
	assert.Equal(t, models.RecordInProgress, record.Status)
	assert.Equal(t, 1, record.AttemptCount)
}

func TestResultCommitter_RegisterAttemptStart_ExistingRecord(t *testing.T) {
	store := newMemStore()
	store.records[recordKey("user-1", 1)] = &models.UserCourseRecord{
		UserID:   "user-1",
		CourseID: 1,
		Status:   models.RecordNotStarted,
	}
	committer := newTestCommitter(store)

	require.NoError(t, committer.RegisterAttemptStart(context.Background(), "user-1", 1))
	require.NoError(t, committer.RegisterAttemptStart(context.Background(), "user-1", 1))

	record := store.records[recordKey("user-1", 1)]
	assert.Equal(t, 2, record.AttemptCount)
	assert.Equal(t, models.RecordInProgress, record.Status)
	assert.Equal(t, 2, store.logs["user-1"].Attempts)
}

func TestResultCommitter_CommitResult_Pass(t *testing.T) {
	store := newMemStore()
	committer := newTestCommitter(store)
	ctx := context.Background()

	require.NoError(t, committer.RegisterAttemptStart(ctx, "user-1", 1))
	require.NoError(t, committer.RegisterAttemptStart(ctx, "user-1", 1))

	completedAt := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	err := committer.CommitResult(ctx, "user-1", 1, QuizOutcome{
		Score:       9,
		Total:       10,
		Passed:      true,
		Duration:    90 * time.Second,
		CompletedAt: completedAt,
	})
	require.NoError(t, err)

	log := store.logs["user-1"]
	assert.Equal(t, 2, log.Attempts)
	assert.Equal(t, 1, log.Passes)
	assert.Equal(t, 0, log.Fails)
	assert.Equal(t, 50, log.PassRate, "denominator is attempts registered at session start")
	assert.Equal(t, int64(90), log.TotalTrainingTime)

	record := store.records[recordKey("user-1", 1)]
	assert.Equal(t, models.RecordCompleted, record.Status)
	require.NotNil(t, record.CompletedDate)
	assert.Equal(t, completedAt, *record.CompletedDate)
	assert.Equal(t, 0, record.FailCount)
}

func TestResultCommitter_CommitResult_Fail(t *testing.T) {
	store := newMemStore()
	committer := newTestCommitter(store)
	ctx := context.Background()

	require.NoError(t, committer.RegisterAttemptStart(ctx, "user-1", 1))

	// A stale completion date from a previous certification cycle must be
	// wiped by a fail.
	stale := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	record := store.records[recordKey("user-1", 1)]
	record.CompletedDate = &stale

	err := committer.CommitResult(ctx, "user-1", 1, QuizOutcome{
		Score:       3,
		Total:       10,
		Passed:      false,
		Duration:    time.Minute,
		CompletedAt: time.Now(),
	})
	require.NoError(t, err)

	log := store.logs["user-1"]
	assert.Equal(t, 1, log.Fails)
	assert.Equal(t, 0, log.Passes)
	assert.Equal(t, 0, log.PassRate)

	record = store.records[recordKey("user-1", 1)]
	assert.Equal(t, models.RecordFailed, record.Status)
	assert.Nil(t, record.CompletedDate)
	assert.Equal(t, 1, record.FailCount)
}

func TestResultCommitter_CommitResult_PassRateRounds(t *testing.T) {
	store := newMemStore()
	committer := newTestCommitter(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, committer.RegisterAttemptStart(ctx, "user-1", 1))
	}
	store.logs["user-1"].Passes = 1

	err := committer.CommitResult(ctx, "user-1", 1, QuizOutcome{
		Passed:      true,
		Duration:    time.Second,
		CompletedAt: time.Now(),
	})
	require.NoError(t, err)

	// 2 passes / 3 attempts = 66.67, rounded to 67.
	assert.Equal(t, 67, store.logs["user-1"].PassRate)
}

func TestResultCommitter_CommitResult_NegativeDurationClamped(t *testing.T) {
	store := newMemStore()
	committer := newTestCommitter(store)
	ctx := context.Background()

	require.NoError(t, committer.RegisterAttemptStart(ctx, "user-1", 1))

	err := committer.CommitResult(ctx, "user-1", 1, QuizOutcome{
		Passed:      true,
		Duration:    -5 * time.Second,
		CompletedAt: time.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), store.logs["user-1"].TotalTrainingTime)
}

func TestResultCommitter_SurfacesPersistenceFailure(t *testing.T) {
	store := newMemStore()
	store.beginErr = errors.New("connection refused")
	committer := newTestCommitter(store)

	err := committer.RegisterAttemptStart(context.Background(), "user-1", 1)
	assert.ErrorIs(t, err, ErrPersistenceFailed)
}
