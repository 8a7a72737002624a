package quiz

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePool(n int) []Question {
	pool := make([]Question, n)
	for i := 0; i < n; i++ {
		pool[i] = Question{
			ID:   uint(i + 1),
			Text: fmt.Sprintf("question %d", i+1),
			Options: []string{
				fmt.Sprintf("q%d option a", i+1),
				fmt.Sprintf("q%d option b", i+1),
				fmt.Sprintf("q%d option c", i+1),
				fmt.Sprintf("q%d option d", i+1),
			},
			CorrectAnswer: i % 4,
		}
	}
	return pool
}

func TestAssemble_LengthClamped(t *testing.T) {
	tests := []struct {
		name       string
		poolSize   int
		quizLength int
		want       int
	}{
		{"subset of pool", 10, 3, 3},
		{"exact pool size", 5, 5, 5},
		{"length exceeds pool", 1, 5, 1},
		{"zero means whole pool", 7, 0, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(1))
			got := Assemble(rng, makePool(tt.poolSize), tt.quizLength)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestAssemble_EmptyPool(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Empty(t, Assemble(rng, nil, 5))
	assert.Empty(t, Assemble(rng, []Question{}, 5))
}

func TestAssemble_PreservesCorrectOption(t *testing.T) {
	pool := makePool(20)
	correctTexts := make(map[uint]string, len(pool))
	for _, q := range pool {
		correctTexts[q.ID] = q.Options[q.CorrectAnswer]
	}

	for seed := int64(0); seed < 25; seed++ {
		rng := rand.New(rand.NewSource(seed))
		for _, q := range Assemble(rng, pool, 8) {
			require.Contains(t, correctTexts, q.ID)
			assert.Equal(t, correctTexts[q.ID], q.Options[q.CorrectAnswer],
				"shuffled correct index must point at the original correct text")
		}
	}
}

func TestAssemble_SelectsWithoutDuplicates(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	got := Assemble(rng, makePool(10), 10)

	seen := make(map[uint]bool)
	for _, q := range got {
		assert.False(t, seen[q.ID], "question %d selected twice", q.ID)
		seen[q.ID] = true
	}
}

func TestAssemble_DoesNotMutatePool(t *testing.T) {
	pool := makePool(6)
	want := makePool(6)

	rng := rand.New(rand.NewSource(3))
	Assemble(rng, pool, 4)

	assert.Equal(t, want, pool, "pool must be left untouched")
}
