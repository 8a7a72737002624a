package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/corplearn/training-service/internal/models"
	"github.com/corplearn/training-service/internal/repositories"
)

const (
	commitAttempts = 3
	commitBackoff  = 100 * time.Millisecond
)

// QuizOutcome is what a completed session hands to the committer.
type QuizOutcome struct {
	Score       int
	Total       int
	Passed      bool
	Duration    time.Duration
	CompletedAt time.Time
}

// ResultCommitter persists attempt counters and quiz results. The two
// operations are deliberately separate: RegisterAttemptStart fires once per
// session creation, CommitResult only on completion. An abandoned session
// therefore counts as an attempt but never as a pass or fail, and depresses
// the stored pass rate.
type ResultCommitter interface {
	RegisterAttemptStart(ctx context.Context, userID string, courseID uint) error
	CommitResult(ctx context.Context, userID string, courseID uint, outcome QuizOutcome) error
}

type resultCommitter struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewResultCommitter(repo repositories.Repository, logger *slog.Logger) ResultCommitter {
	return &resultCommitter{
		repo:   repo,
		logger: logger,
	}
}

// RegisterAttemptStart bumps attemptCount on the user's course record and
// attempts on their activity log in one transaction.
func (c *resultCommitter) RegisterAttemptStart(ctx context.Context, userID string, courseID uint) error {
	err := c.withRetry(ctx, "register attempt", userID, courseID, func(txRepo repositories.Repository) error {
		log, err := c.activityLogForUpdate(ctx, txRepo, userID)
		if err != nil {
			return err
		}
		log.Attempts++
		if err := txRepo.ActivityLog().Save(ctx, log); err != nil {
			return fmt.Errorf("failed to save activity log: %w", err)
		}

		record, err := txRepo.Progress().GetRecordForUpdate(ctx, userID, courseID)
		if err != nil {
			if !repositories.IsNotFoundError(err) {
				return fmt.Errorf("failed to load course record: %w", err)
			}
			// Unassigned course taken directly; track it from here on.
			record = &models.UserCourseRecord{
				UserID:   userID,
				CourseID: courseID,
				Status:   models.RecordInProgress,
			}
			record.AttemptCount = 1
			return txRepo.Progress().CreateRecord(ctx, record)
		}

		record.AttemptCount++
		if record.Status == models.RecordNotStarted {
			record.Status = models.RecordInProgress
		}
		return txRepo.Progress().UpdateRecord(ctx, record)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return nil
}

// CommitResult applies the completed session's outcome to the per-course
// record and the aggregate activity log in one transaction. The pass rate
// denominator is the attempts counter recorded at session start.
func (c *resultCommitter) CommitResult(ctx context.Context, userID string, courseID uint, outcome QuizOutcome) error {
	duration := outcome.Duration
	if duration < 0 {
		duration = 0
	}
	durationSeconds := int64(math.Round(duration.Seconds()))

	err := c.withRetry(ctx, "commit result", userID, courseID, func(txRepo repositories.Repository) error {
		log, err := c.activityLogForUpdate(ctx, txRepo, userID)
		if err != nil {
			return err
		}

		log.TotalTrainingTime += durationSeconds
		if outcome.Passed {
			log.Passes++
		} else {
			log.Fails++
		}
		attempts := log.Attempts
		if attempts < 1 {
			attempts = 1
		}
		log.PassRate = int(math.Round(float64(log.Passes) / float64(attempts) * 100))

		if err := txRepo.ActivityLog().Save(ctx, log); err != nil {
			return fmt.Errorf("failed to save activity log: %w", err)
		}

		record, err := txRepo.Progress().GetRecordForUpdate(ctx, userID, courseID)
		if err != nil {
			return fmt.Errorf("failed to load course record: %w", err)
		}

		if outcome.Passed {
			record.Status = models.RecordCompleted
			completedAt := outcome.CompletedAt
			record.CompletedDate = &completedAt
		} else {
			record.Status = models.RecordFailed
			record.CompletedDate = nil
			record.FailCount++
		}

		return txRepo.Progress().UpdateRecord(ctx, record)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return nil
}

// activityLogForUpdate loads the user's log with a row lock, creating an
// empty one on first contact.
func (c *resultCommitter) activityLogForUpdate(ctx context.Context, txRepo repositories.Repository, userID string) (*models.ActivityLog, error) {
	log, err := txRepo.ActivityLog().GetForUpdate(ctx, userID)
	if err == nil {
		return log, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to load activity log: %w", err)
	}

	log = &models.ActivityLog{UserID: userID}
	if err := txRepo.ActivityLog().Save(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to create activity log: %w", err)
	}
	return log, nil
}

// withRetry runs fn inside a transaction, retrying a bounded number of
// times before giving up. Failures are surfaced to the caller but never
// roll back in-memory session state.
func (c *resultCommitter) withRetry(ctx context.Context, op, userID string, courseID uint, fn func(repositories.Repository) error) error {
	var lastErr error

	for attempt := 1; attempt <= commitAttempts; attempt++ {
		lastErr = c.runInTx(ctx, fn)
		if lastErr == nil {
			return nil
		}

		c.logger.Warn("Transaction failed",
			"operation", op,
			"user_id", userID,
			"course_id", courseID,
			"attempt", attempt,
			"error", lastErr)

		if attempt < commitAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * commitBackoff):
			}
		}
	}

	c.logger.Error("Giving up after retries",
		"operation", op,
		"user_id", userID,
		"course_id", courseID,
		"error", lastErr)
	return lastErr
}

func (c *resultCommitter) runInTx(ctx context.Context, fn func(repositories.Repository) error) error {
	txRepo, err := c.repo.(repositories.TransactionRepository).Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(txRepo); err != nil {
		txRepo.(repositories.TransactionRepository).Rollback(ctx)
		return err
	}

	if err := txRepo.(repositories.TransactionRepository).Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
