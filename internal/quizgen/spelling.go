package quizgen

import (
	"fmt"
	"math/rand"

	"github.com/quizdrill/quizdrill/internal/domain"
)

// SampleWords picks count distinct entries from a word list in random
// order. When the list is shorter than count the whole list is returned
// shuffled, so short custom lists still produce a playable session.
func SampleWords(list []domain.WordEntry, count int) ([]domain.WordEntry, error) {
	if err := checkCount(count); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: empty word list", domain.ErrInvalidArgument)
	}
	if count > len(list) {
		count = len(list)
	}
	words := make([]domain.WordEntry, 0, count)
	for _, idx := range rand.Perm(len(list))[:count] {
		words = append(words, list[idx])
	}
	return words, nil
}

// DefaultWordList is the built-in spelling list used when no backing store
// is configured.
func DefaultWordList() []domain.WordEntry {
	return []domain.WordEntry{
		{Word: "because", Hint: "for the reason that"},
		{Word: "friend", Hint: "someone you like to play with"},
		{Word: "beautiful", Hint: "very pretty"},
		{Word: "different", Hint: "not the same"},
		{Word: "favourite", Hint: "the one you like best"},
		{Word: "knowledge", Hint: "what you learn"},
		{Word: "tomorrow", Hint: "the day after today"},
		{Word: "language", Hint: "what we speak"},
		{Word: "library", Hint: "a building full of books"},
		{Word: "necessary", Hint: "something you must have"},
		{Word: "remember", Hint: "the opposite of forget"},
		{Word: "surprise", Hint: "something unexpected"},
		{Word: "straight", Hint: "not bent or curved"},
		{Word: "thought", Hint: "an idea in your head"},
		{Word: "weather", Hint: "rain, sun, wind or snow"},
		{Word: "whistle", Hint: "a sharp sound made with your lips"},
		{Word: "journey", Hint: "a long trip"},
		{Word: "island", Hint: "land surrounded by water"},
		{Word: "stomach", Hint: "where your food goes"},
		{Word: "calendar", Hint: "shows the days and months"},
	}
}
