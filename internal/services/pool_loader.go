package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/corplearn/training-service/internal/cache"
	"github.com/corplearn/training-service/internal/quiz"
	"github.com/corplearn/training-service/internal/repositories"
	"github.com/redis/go-redis/v9"
)

const (
	poolCacheKeyPrefix = "question-pool:"
	poolCacheTTL       = 10 * time.Minute

	// PoolChangeChannel carries course IDs whose question pool changed.
	PoolChangeChannel = "question-pool-changes"
)

// PoolLoader serves snapshots of a course's question pool and reacts to
// live pool changes. A change only invalidates the cached pool; questions
// already captured by an active session are copies and stay as assembled.
type PoolLoader interface {
	Start(ctx context.Context) error
	Stop() error
	Snapshot(ctx context.Context, courseID uint) ([]quiz.Question, error)
	Invalidate(ctx context.Context, courseID uint) error
}

type poolLoader struct {
	repo   repositories.Repository
	cache  cache.CacheService
	client *redis.Client
	logger *slog.Logger

	mu           sync.Mutex
	subscription *redis.PubSub
	done         chan struct{}
}

func NewPoolLoader(repo repositories.Repository, cacheService cache.CacheService, client *redis.Client, logger *slog.Logger) PoolLoader {
	return &poolLoader{
		repo:   repo,
		cache:  cacheService,
		client: client,
		logger: logger,
	}
}

// Start subscribes to pool-change notifications. The subscription handle is
// owned by the loader and released by Stop; it never leaks into sessions.
func (l *poolLoader) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.subscription != nil {
		return errors.New("pool loader already started")
	}

	l.subscription = l.client.Subscribe(ctx, PoolChangeChannel)
	l.done = make(chan struct{})

	go l.listen(l.subscription.Channel(), l.done)

	l.logger.Info("Question pool loader started", "channel", PoolChangeChannel)
	return nil
}

// Stop closes the subscription and waits for the listener to drain.
func (l *poolLoader) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.subscription == nil {
		return nil
	}

	err := l.subscription.Close()
	<-l.done
	l.subscription = nil

	l.logger.Info("Question pool loader stopped")
	return err
}

func (l *poolLoader) listen(ch <-chan *redis.Message, done chan struct{}) {
	defer close(done)

	for msg := range ch {
		courseID, err := strconv.ParseUint(msg.Payload, 10, 64)
		if err != nil {
			l.logger.Warn("Ignoring malformed pool change notification", "payload", msg.Payload)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := l.cache.Delete(ctx, poolCacheKey(uint(courseID))); err != nil {
			l.logger.Warn("Failed to drop cached pool", "course_id", courseID, "error", err)
		}
		cancel()

		l.logger.Debug("Question pool invalidated", "course_id", courseID)
	}
}

// Snapshot returns the course's full question pool as session-local values.
// An empty result is the "no content" state, not an error.
func (l *poolLoader) Snapshot(ctx context.Context, courseID uint) ([]quiz.Question, error) {
	key := poolCacheKey(courseID)

	var pool []quiz.Question
	if err := l.cache.Get(ctx, key, &pool); err == nil {
		return pool, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		l.logger.Warn("Pool cache read failed, falling back to store", "course_id", courseID, "error", err)
	}

	questions, err := l.repo.Question().GetByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load question pool: %w", err)
	}

	pool = make([]quiz.Question, 0, len(questions))
	for _, q := range questions {
		options, err := q.OptionList()
		if err != nil {
			l.logger.Error("Skipping question with malformed options", "question_id", q.ID, "error", err)
			continue
		}
		pool = append(pool, quiz.Question{
			ID:            q.ID,
			Text:          q.Text,
			Options:       options,
			CorrectAnswer: q.CorrectAnswer,
		})
	}

	if err := l.cache.Set(ctx, key, pool, poolCacheTTL); err != nil {
		l.logger.Warn("Failed to cache question pool", "course_id", courseID, "error", err)
	}

	return pool, nil
}

// Invalidate drops the cached pool and notifies other instances.
func (l *poolLoader) Invalidate(ctx context.Context, courseID uint) error {
	if err := l.cache.Delete(ctx, poolCacheKey(courseID)); err != nil {
		return err
	}
	return l.client.Publish(ctx, PoolChangeChannel, strconv.FormatUint(uint64(courseID), 10)).Err()
}

func poolCacheKey(courseID uint) string {
	return poolCacheKeyPrefix + strconv.FormatUint(uint64(courseID), 10)
}
