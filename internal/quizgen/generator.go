// Package quizgen holds the per-type question generators and their scoring
// rules. Each quiz type registers a Generator under its QuizType; the
// session service dispatches through the registry instead of switching on
// type strings.
package quizgen

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/quizdrill/quizdrill/internal/domain"
)

// DefaultQuestionCount is the number of items in a freshly created session.
const DefaultQuestionCount = 10

// Generator produces questions for one quiz type and scores single answers
// against them. Generate is pure apart from randomness: every question it
// returns carries its own answer key, recomputable from the prompt alone.
type Generator interface {
	Generate(count int) ([]domain.Question, error)
	ScoreOne(q domain.Question, submitted any) bool
}

var registry = map[domain.QuizType]Generator{}

// Register associates a quiz type with its generator. Typically called from
// init in the generator files.
func Register(t domain.QuizType, g Generator) {
	if t == "" || g == nil {
		return
	}
	registry[t] = g
}

// For fetches the generator for a quiz type.
func For(t domain.QuizType) (Generator, bool) {
	g, ok := registry[t]
	return g, ok
}

func checkCount(count int) error {
	if count <= 0 {
		return fmt.Errorf("%w: question count must be positive, got %d", domain.ErrInvalidArgument, count)
	}
	return nil
}

// asNumber coerces a decoded JSON value to a float64. Nulls, NaN and
// non-numeric values report false; the caller treats those as incorrect
// answers, never as an error.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// scoreNumeric applies the exact-numeric-equality rule shared by every
// arithmetic quiz type.
func scoreNumeric(q domain.Question, submitted any) bool {
	if q.Answer.Number == nil {
		return false
	}
	n, ok := asNumber(submitted)
	if !ok {
		return false
	}
	return n == float64(*q.Answer.Number)
}

// ScoreWord applies the spelling rule: trimmed, case-insensitive match.
func ScoreWord(want domain.WordEntry, submitted any) bool {
	s, ok := submitted.(string)
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(s), want.Word)
}
