package quiz

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, poolSize, quizLength int) *Session {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	s, err := NewSession(rng, makePool(poolSize), quizLength, time.Now())
	require.NoError(t, err)
	return s
}

// answerCurrent answers the current question, correctly or not, and advances.
func answerCurrent(t *testing.T, s *Session, correctly bool) bool {
	t.Helper()
	choice := s.Current().CorrectAnswer
	if !correctly {
		choice = (choice + 1) % len(s.Current().Options)
	}
	_, err := s.SelectAnswer(choice)
	require.NoError(t, err)
	done, err := s.Advance()
	require.NoError(t, err)
	return done
}

func TestNewSession_EmptyPool(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := NewSession(rng, nil, 5, time.Now())
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestSelectAnswer_SecondCallRejected(t *testing.T) {
	s := newTestSession(t, 5, 3)

	_, err := s.SelectAnswer(0)
	require.NoError(t, err)

	_, err = s.SelectAnswer(1)
	assert.ErrorIs(t, err, ErrAnswerAlreadyRecorded)
	assert.Len(t, s.Answers(), 1, "answer log must not grow on a rejected call")
}

func TestSelectAnswer_InvalidOption(t *testing.T) {
	s := newTestSession(t, 3, 3)

	_, err := s.SelectAnswer(-1)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = s.SelectAnswer(len(s.Current().Options))
	assert.ErrorIs(t, err, ErrInvalidOption)

	assert.Empty(t, s.Answers())
}

func TestAdvance_RequiresRecordedAnswer(t *testing.T) {
	s := newTestSession(t, 5, 2)

	_, err := s.Advance()
	assert.ErrorIs(t, err, ErrNoAnswerRecorded)
}

func TestSession_CompletesWithScore(t *testing.T) {
	const total = 4
	s := newTestSession(t, 6, total)

	for i := 0; i < total-1; i++ {
		assert.False(t, answerCurrent(t, s, true))
	}
	assert.True(t, answerCurrent(t, s, true), "last advance must complete the session")

	assert.True(t, s.Completed())
	assert.Equal(t, total, s.Score())
	assert.True(t, s.Passed())
	assert.Len(t, s.Answers(), total)
}

func TestSession_TwoOfThreeFailsThreshold(t *testing.T) {
	s := newTestSession(t, 5, 3)

	answerCurrent(t, s, true)
	answerCurrent(t, s, false)
	done := answerCurrent(t, s, true)

	require.True(t, done)
	assert.Equal(t, 2, s.Score())
	assert.False(t, s.Passed(), "2/3 is below the 80%% threshold")
}

func TestSession_ClampedSingleQuestion(t *testing.T) {
	s := newTestSession(t, 1, 5)
	assert.Len(t, s.Questions(), 1)

	done := answerCurrent(t, s, true)
	assert.True(t, done)
	assert.True(t, s.Passed())
}

func TestSession_RejectsInputAfterCompletion(t *testing.T) {
	s := newTestSession(t, 1, 1)
	answerCurrent(t, s, true)

	_, err := s.SelectAnswer(0)
	assert.ErrorIs(t, err, ErrSessionCompleted)

	_, err = s.Advance()
	assert.ErrorIs(t, err, ErrSessionCompleted)
}

func TestCanExitWithoutConfirmation(t *testing.T) {
	s := newTestSession(t, 2, 2)
	assert.False(t, s.CanExitWithoutConfirmation(), "active sessions need exit confirmation")

	answerCurrent(t, s, true)
	assert.False(t, s.CanExitWithoutConfirmation())

	answerCurrent(t, s, false)
	assert.True(t, s.CanExitWithoutConfirmation())
}

func TestReset_ProducesFreshActiveSession(t *testing.T) {
	s := newTestSession(t, 5, 2)
	answerCurrent(t, s, true)
	answerCurrent(t, s, true)
	require.True(t, s.Completed())

	started := s.StartedAt()
	rng := rand.New(rand.NewSource(99))
	require.NoError(t, s.Reset(rng, makePool(5), 2, started.Add(time.Minute)))

	assert.False(t, s.Completed())
	assert.Empty(t, s.Answers())
	assert.Equal(t, 0, s.Progress().Index)
	assert.Len(t, s.Questions(), 2)
	assert.True(t, s.StartedAt().After(started), "clock must restart on reset")
}

func TestProgress(t *testing.T) {
	s := newTestSession(t, 5, 3)

	p := s.Progress()
	assert.Equal(t, 0, p.Index)
	assert.Equal(t, 3, p.Total)
	assert.Nil(t, p.Score)

	answerCurrent(t, s, true)
	assert.Equal(t, 1, s.Progress().Index)

	answerCurrent(t, s, true)
	answerCurrent(t, s, false)

	p = s.Progress()
	require.NotNil(t, p.Score)
	assert.Equal(t, 2, *p.Score)
}

func TestDuration_ClampsClockSkew(t *testing.T) {
	s := newTestSession(t, 2, 2)

	assert.Equal(t, time.Duration(0), s.Duration(s.StartedAt().Add(-time.Second)))
	assert.Equal(t, 30*time.Second, s.Duration(s.StartedAt().Add(30*time.Second)))
}
