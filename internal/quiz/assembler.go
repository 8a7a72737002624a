package quiz

import (
	"math/rand"
)

// PassThreshold is the fraction of correct answers required to pass a quiz.
const PassThreshold = 0.8

// Question is a session-local snapshot of a course question. Assemble
// rewrites Options and CorrectAnswer per session, so pool changes made while
// a session is running never reach it.
type Question struct {
	ID            uint     `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

// Assemble selects a bounded random subset of the pool and randomizes each
// selected question's option order, recomputing the correct index as the new
// position of the originally-correct option text.
//
// quizLength is clamped to the pool size; values below 1 mean the whole
// pool. An empty pool yields an empty sequence, which callers must treat as
// "no content" rather than an error. Pure over (pool, rng).
func Assemble(rng *rand.Rand, pool []Question, quizLength int) []Question {
	if len(pool) == 0 {
		return nil
	}
	if quizLength < 1 || quizLength > len(pool) {
		quizLength = len(pool)
	}

	shuffled := make([]Question, len(pool))
	copy(shuffled, pool)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	selected := make([]Question, quizLength)
	for i, q := range shuffled[:quizLength] {
		correctText := q.Options[q.CorrectAnswer]

		options := make([]string, len(q.Options))
		copy(options, q.Options)
		rng.Shuffle(len(options), func(a, b int) {
			options[a], options[b] = options[b], options[a]
		})

		newIndex := 0
		for j, opt := range options {
			if opt == correctText {
				newIndex = j
				break
			}
		}

		selected[i] = Question{
			ID:            q.ID,
			Text:          q.Text,
			Options:       options,
			CorrectAnswer: newIndex,
		}
	}

	return selected
}
