package domain

import "fmt"

// QuizType identifies one of the supported quiz variants. The string values
// double as the URL slugs of the session endpoints.
type QuizType string

const (
	// TypeSimpleMath is addition and multiplication with single-digit operands.
	TypeSimpleMath QuizType = "simple-math"
	// TypeRemainder is division with remainder; the answer is the remainder.
	TypeRemainder QuizType = "simple-math-2"
	// TypeFractions is fraction comparison; the answer is <, > or =.
	TypeFractions QuizType = "simple-math-3"
	// TypeBodmas is order-of-operations expressions.
	TypeBodmas QuizType = "simple-math-4"
	// TypeFactors asks for the number of factors of an integer.
	TypeFactors QuizType = "simple-math-5"
	// TypeSimpleWords is word spelling.
	TypeSimpleWords QuizType = "simple-words"
)

// QuizTypes lists every supported type in display order.
func QuizTypes() []QuizType {
	return []QuizType{
		TypeSimpleMath,
		TypeRemainder,
		TypeFractions,
		TypeBodmas,
		TypeFactors,
		TypeSimpleWords,
	}
}

// ParseQuizType validates a URL slug.
func ParseQuizType(s string) (QuizType, error) {
	t := QuizType(s)
	for _, known := range QuizTypes() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown quiz type %q", ErrInvalidArgument, s)
}

// IsWordQuiz reports whether sessions of this type carry words rather than
// numeric questions.
func (t QuizType) IsWordQuiz() bool {
	return t == TypeSimpleWords
}
