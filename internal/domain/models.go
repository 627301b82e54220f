package domain

import "time"

// Fraction is an exact rational with a positive denominator.
type Fraction struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

// FractionPair is the structured payload of a comparison question.
type FractionPair struct {
	Left  Fraction `json:"left"`
	Right Fraction `json:"right"`
}

// Answer is the correct response for a question. Exactly one field is set,
// matching the quiz type that produced it.
type Answer struct {
	Number *int   `json:"number,omitempty"`
	Symbol string `json:"symbol,omitempty"` // one of "<", ">", "="
	Word   string `json:"word,omitempty"`
}

// Question pairs a renderable prompt with its answer key. The answer key is
// stored alongside the question but is stripped before anything is sent to a
// client (see the transport view types).
type Question struct {
	Prompt    string        `json:"question"`
	Fractions *FractionPair `json:"fractions,omitempty"`
	Answer    Answer        `json:"answer"`
}

// WordEntry is one item of a spelling quiz: the target word plus an
// optional hint shown to the user instead of the word itself.
type WordEntry struct {
	Word string `json:"word"`
	Hint string `json:"hint,omitempty"`
}

// QuizSession is an in-flight numeric quiz attempt. Sessions are owned by
// the session store from creation until submission or expiry and are never
// mutated in place.
type QuizSession struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	QuizType  QuizType   `json:"quizType"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"createdAt"`
}

// WordSession is an in-flight spelling quiz attempt.
type WordSession struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Words     []WordEntry `json:"words"`
	CreatedAt time.Time   `json:"createdAt"`
}

// CompletedSession is the persisted record of one scored submission. It is
// written exactly once and never updated.
type CompletedSession struct {
	SessionID     string    `json:"sessionId"`
	UserID        string    `json:"userId"`
	QuizType      QuizType  `json:"sessionType"`
	Score         int       `json:"score"`
	Total         int       `json:"total"`
	Multiplier    float64   `json:"multiplier"`
	WeightedScore float64   `json:"weightedScore"`
	CompletedAt   time.Time `json:"completedAt"`
}

// Result is the caller-facing outcome of a submission. The multiplier and
// weighted score are recoverable via stats, not part of this contract.
type Result struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

// Credits tracks a user's earned and claimed credit balance.
type Credits struct {
	Earned  int `json:"earned"`
	Claimed int `json:"claimed"`
}

// UserStats is derived on demand from completed session records; it is
// never stored, so it cannot drift from the records it summarizes.
type UserStats struct {
	TotalScore    float64            `json:"totalScore"`
	SessionsCount int                `json:"sessionsCount"`
	Details       []CompletedSession `json:"details"`
}

// UserSummary is the parent-dashboard view of one user.
type UserSummary struct {
	UserID      string               `json:"userId"`
	TotalScore  float64              `json:"totalScore"`
	Sessions    int                  `json:"sessionsCount"`
	Multipliers map[QuizType]float64 `json:"multipliers,omitempty"`
	Credits     *Credits             `json:"credits,omitempty"`
}
