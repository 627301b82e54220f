package quizgen

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/quizdrill/quizdrill/internal/domain"
)

func init() {
	Register(domain.TypeFractions, fractionGenerator{})
}

// fractionGenerator produces pairs of fractions to compare. Numerators and
// denominators are drawn independently from 1-9.
type fractionGenerator struct{}

func (fractionGenerator) Generate(count int) ([]domain.Question, error) {
	if err := checkCount(count); err != nil {
		return nil, err
	}
	questions := make([]domain.Question, count)
	for i := range questions {
		left := domain.Fraction{Numerator: 1 + rand.Intn(9), Denominator: 1 + rand.Intn(9)}
		right := domain.Fraction{Numerator: 1 + rand.Intn(9), Denominator: 1 + rand.Intn(9)}
		questions[i] = domain.Question{
			Prompt:    fmt.Sprintf("%d/%d ? %d/%d", left.Numerator, left.Denominator, right.Numerator, right.Denominator),
			Fractions: &domain.FractionPair{Left: left, Right: right},
			Answer:    domain.Answer{Symbol: CompareFractions(left, right)},
		}
	}
	return questions, nil
}

func (fractionGenerator) ScoreOne(q domain.Question, submitted any) bool {
	s, ok := submitted.(string)
	if !ok {
		return false
	}
	return strings.TrimSpace(s) == q.Answer.Symbol
}

// CompareFractions compares by cross multiplication, never by floating
// point division, so equal fractions like 2/4 and 1/2 compare as "=".
func CompareFractions(a, b domain.Fraction) string {
	lhs := a.Numerator * b.Denominator
	rhs := b.Numerator * a.Denominator
	switch {
	case lhs < rhs:
		return "<"
	case lhs > rhs:
		return ">"
	default:
		return "="
	}
}
