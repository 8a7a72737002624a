package quiz

import (
	"errors"
	"math/rand"
	"time"
)

var (
	ErrEmptyPool             = errors.New("course has no questions")
	ErrInvalidOption         = errors.New("option index out of range")
	ErrAnswerAlreadyRecorded = errors.New("answer already recorded for current question")
	ErrNoAnswerRecorded      = errors.New("no answer recorded for current question")
	ErrSessionCompleted      = errors.New("session already completed")
)

// Answer is one entry in the session's answer log.
type Answer struct {
	QuestionID uint `json:"question_id"`
	WasCorrect bool `json:"was_correct"`
}

// Progress reports the position within a session. Score is set only once
// the session has completed.
type Progress struct {
	Index int  `json:"index"`
	Total int  `json:"total"`
	Score *int `json:"score,omitempty"`
}

// Session tracks one user's traversal of an assembled question sequence.
// It is not safe for concurrent use; the owning registry serializes access.
type Session struct {
	questions []Question
	index     int
	answers   []Answer
	pending   bool // answer recorded for the current question, Advance not yet called
	completed bool
	score     int
	startedAt time.Time
}

// NewSession assembles a fresh question sequence and starts the clock.
// Returns ErrEmptyPool when the course has no questions.
func NewSession(rng *rand.Rand, pool []Question, quizLength int, now time.Time) (*Session, error) {
	questions := Assemble(rng, pool, quizLength)
	if len(questions) == 0 {
		return nil, ErrEmptyPool
	}
	return &Session{questions: questions, startedAt: now}, nil
}

// Current returns the question at the session's current position.
func (s *Session) Current() Question {
	return s.questions[s.index]
}

// Questions returns the assembled sequence for this session.
func (s *Session) Questions() []Question {
	return s.questions
}

// Answers returns a copy of the answer log.
func (s *Session) Answers() []Answer {
	out := make([]Answer, len(s.answers))
	copy(out, s.answers)
	return out
}

func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// SelectAnswer records the user's choice for the current question. Exactly
// one answer per question is accepted; a second call before Advance is
// rejected with ErrAnswerAlreadyRecorded. Reports whether the choice was
// correct.
func (s *Session) SelectAnswer(optionIndex int) (bool, error) {
	if s.completed {
		return false, ErrSessionCompleted
	}
	if s.pending {
		return false, ErrAnswerAlreadyRecorded
	}
	q := s.questions[s.index]
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return false, ErrInvalidOption
	}

	correct := optionIndex == q.CorrectAnswer
	s.answers = append(s.answers, Answer{QuestionID: q.ID, WasCorrect: correct})
	s.pending = true
	return correct, nil
}

// Advance moves to the next question once an answer has been recorded, or
// completes the session after the last question. Reports done=true exactly
// once, on the transition to the completed state; the caller commits the
// result then.
func (s *Session) Advance() (done bool, err error) {
	if s.completed {
		return false, ErrSessionCompleted
	}
	if !s.pending {
		return false, ErrNoAnswerRecorded
	}

	s.pending = false
	if s.index+1 < len(s.questions) {
		s.index++
		return false, nil
	}

	for _, a := range s.answers {
		if a.WasCorrect {
			s.score++
		}
	}
	s.completed = true
	return true, nil
}

// Reset discards the session state and re-assembles a fresh sequence from
// the given pool, clearing the answer log and restarting the clock.
func (s *Session) Reset(rng *rand.Rand, pool []Question, quizLength int, now time.Time) error {
	questions := Assemble(rng, pool, quizLength)
	if len(questions) == 0 {
		return ErrEmptyPool
	}
	*s = Session{questions: questions, startedAt: now}
	return nil
}

func (s *Session) Completed() bool {
	return s.completed
}

// Score is the count of correct answers. Meaningful once Completed.
func (s *Session) Score() int {
	return s.score
}

// Passed reports whether the completed session met the pass threshold.
func (s *Session) Passed() bool {
	return s.completed && float64(s.score)/float64(len(s.questions)) >= PassThreshold
}

// CanExitWithoutConfirmation is false while the session is active; the host
// must route exits through a confirmation step until completion.
func (s *Session) CanExitWithoutConfirmation() bool {
	return s.completed
}

func (s *Session) Progress() Progress {
	p := Progress{Index: s.index, Total: len(s.questions)}
	if s.completed {
		score := s.score
		p.Score = &score
	}
	return p
}

// Duration is the elapsed time since the session started, clamped to zero
// against clock skew.
func (s *Session) Duration(now time.Time) time.Duration {
	d := now.Sub(s.startedAt)
	if d < 0 {
		return 0
	}
	return d
}
