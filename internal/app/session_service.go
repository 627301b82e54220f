package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quizdrill/quizdrill/internal/domain"
	"github.com/quizdrill/quizdrill/internal/quizgen"
)

// SessionRepository abstracts how in-flight sessions are stored (in-memory,
// Redis, etc). Take atomically retrieves and removes a session; two
// concurrent Takes for the same id cannot both succeed.
type SessionRepository interface {
	PutQuiz(ctx context.Context, s *domain.QuizSession) error
	GetQuiz(ctx context.Context, id string) (*domain.QuizSession, bool)
	TakeQuiz(ctx context.Context, id string) (*domain.QuizSession, bool)
	DeleteQuiz(ctx context.Context, id string)
	PutWords(ctx context.Context, s *domain.WordSession) error
	GetWords(ctx context.Context, id string) (*domain.WordSession, bool)
	TakeWords(ctx context.Context, id string) (*domain.WordSession, bool)
	DeleteWords(ctx context.Context, id string)
}

// ResultRepository persists completed session records.
type ResultRepository interface {
	SaveResult(ctx context.Context, rec domain.CompletedSession) error
	ResultsByUser(ctx context.Context, userID string) ([]domain.CompletedSession, error)
	UserIDs(ctx context.Context) ([]string, error)
}

// MultiplierRepository stores the per-user per-quiz-type scaling factors.
// Multiplier returns 1 when no record exists; it never errors on missing data.
type MultiplierRepository interface {
	Multiplier(ctx context.Context, userID string, t domain.QuizType) (float64, error)
	SetMultiplier(ctx context.Context, userID string, t domain.QuizType, v float64) error
	MultipliersFor(ctx context.Context, userID string) (map[domain.QuizType]float64, error)
}

// CreditRepository stores the earned/claimed credit ledger.
type CreditRepository interface {
	Credits(ctx context.Context, userID string) (domain.Credits, error)
	SetCredits(ctx context.Context, userID string, c domain.Credits) error
}

// WordSource supplies the spelling word list.
type WordSource interface {
	Words(ctx context.Context) ([]domain.WordEntry, error)
}

// ResultSink receives completed session records as they are persisted.
// Used to push live updates to parent dashboards; optional.
type ResultSink interface {
	Publish(rec domain.CompletedSession)
}

// ServiceConfig wires the session service's collaborators. Clock, NewID,
// Logger and QuestionCount default when zero.
type ServiceConfig struct {
	Sessions      SessionRepository
	Results       ResultRepository
	Multipliers   MultiplierRepository
	Credits       CreditRepository
	Words         WordSource
	Sink          ResultSink
	Logger        *zap.Logger
	Clock         func() time.Time
	NewID         func() string
	QuestionCount int
}

// SessionService contains the session and scoring use cases.
type SessionService struct {
	sessions    SessionRepository
	results     ResultRepository
	multipliers MultiplierRepository
	credits     CreditRepository
	words       WordSource
	sink        ResultSink
	log         *zap.Logger
	clock       func() time.Time
	newID       func() string
	count       int

	// creditLocks serializes credit read-modify-writes per user, so two
	// concurrent claims cannot both pass the balance check.
	creditLocks sync.Map // userID -> *sync.Mutex
}

func NewSessionService(cfg ServiceConfig) *SessionService {
	s := &SessionService{
		sessions:    cfg.Sessions,
		results:     cfg.Results,
		multipliers: cfg.Multipliers,
		credits:     cfg.Credits,
		words:       cfg.Words,
		sink:        cfg.Sink,
		log:         cfg.Logger,
		clock:       cfg.Clock,
		newID:       cfg.NewID,
		count:       cfg.QuestionCount,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.count <= 0 {
		s.count = quizgen.DefaultQuestionCount
	}
	return s
}

// StartQuiz creates a new numeric quiz session for the user and stores it.
// The returned session includes the answer key; strip it before sending
// anything to a client.
func (s *SessionService) StartQuiz(ctx context.Context, userID string, t domain.QuizType) (*domain.QuizSession, error) {
	if t.IsWordQuiz() {
		return nil, fmt.Errorf("%w: %s is not a numeric quiz", domain.ErrInvalidArgument, t)
	}
	gen, ok := quizgen.For(t)
	if !ok {
		return nil, fmt.Errorf("%w: unknown quiz type %q", domain.ErrInvalidArgument, t)
	}
	questions, err := gen.Generate(s.count)
	if err != nil {
		return nil, err
	}
	session := &domain.QuizSession{
		ID:        s.newID(),
		UserID:    userID,
		QuizType:  t,
		Questions: questions,
		CreatedAt: s.clock(),
	}
	if err := s.sessions.PutQuiz(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return session, nil
}

// StartWords creates a new spelling session sampled from the word source.
func (s *SessionService) StartWords(ctx context.Context, userID string) (*domain.WordSession, error) {
	list, err := s.words.Words(ctx)
	if err != nil {
		return nil, err
	}
	words, err := quizgen.SampleWords(list, s.count)
	if err != nil {
		return nil, err
	}
	session := &domain.WordSession{
		ID:        s.newID(),
		UserID:    userID,
		Words:     words,
		CreatedAt: s.clock(),
	}
	if err := s.sessions.PutWords(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return session, nil
}

// Submit validates the user's answers against the stored session, applies
// the user's multiplier, persists the completed record and consumes the
// session. A session is consumed at most once: a concurrent or repeated
// submission for the same id reports ErrSessionNotFound. If the record
// write fails the session is put back so the client can retry.
func (s *SessionService) Submit(ctx context.Context, userID string, t domain.QuizType, sessionID string, answers []any) (domain.Result, error) {
	if t.IsWordQuiz() {
		return s.submitWords(ctx, userID, sessionID, answers)
	}
	return s.submitQuiz(ctx, userID, t, sessionID, answers)
}

func (s *SessionService) submitQuiz(ctx context.Context, userID string, t domain.QuizType, sessionID string, answers []any) (domain.Result, error) {
	gen, ok := quizgen.For(t)
	if !ok {
		return domain.Result{}, fmt.Errorf("%w: unknown quiz type %q", domain.ErrInvalidArgument, t)
	}
	session, ok := s.sessions.GetQuiz(ctx, sessionID)
	if !ok || session.QuizType != t {
		return domain.Result{}, domain.ErrSessionNotFound
	}
	if session.UserID != userID {
		return domain.Result{}, domain.ErrSessionOwnership
	}
	if len(answers) != len(session.Questions) {
		return domain.Result{}, fmt.Errorf("%w: got %d answers for %d questions",
			domain.ErrAnswerCount, len(answers), len(session.Questions))
	}

	score := 0
	for i, q := range session.Questions {
		if gen.ScoreOne(q, answers[i]) {
			score++
		}
	}

	result := domain.Result{Score: score, Total: len(session.Questions)}
	err := s.finalize(ctx, userID, t, sessionID, result,
		func() (any, bool) { v, ok := s.sessions.TakeQuiz(ctx, sessionID); return v, ok },
		func(v any) error { return s.sessions.PutQuiz(ctx, v.(*domain.QuizSession)) },
	)
	if err != nil {
		return domain.Result{}, err
	}
	return result, nil
}

func (s *SessionService) submitWords(ctx context.Context, userID, sessionID string, answers []any) (domain.Result, error) {
	session, ok := s.sessions.GetWords(ctx, sessionID)
	if !ok {
		return domain.Result{}, domain.ErrSessionNotFound
	}
	if session.UserID != userID {
		return domain.Result{}, domain.ErrSessionOwnership
	}
	if len(answers) != len(session.Words) {
		return domain.Result{}, fmt.Errorf("%w: got %d answers for %d words",
			domain.ErrAnswerCount, len(answers), len(session.Words))
	}

	score := 0
	for i, w := range session.Words {
		if quizgen.ScoreWord(w, answers[i]) {
			score++
		}
	}

	result := domain.Result{Score: score, Total: len(session.Words)}
	err := s.finalize(ctx, userID, domain.TypeSimpleWords, sessionID, result,
		func() (any, bool) { v, ok := s.sessions.TakeWords(ctx, sessionID); return v, ok },
		func(v any) error { return s.sessions.PutWords(ctx, v.(*domain.WordSession)) },
	)
	if err != nil {
		return domain.Result{}, err
	}
	return result, nil
}

// finalize claims the session, writes the completed record and publishes
// it. The take is the at-most-once gate: whichever submission claims the
// session writes the one and only record. On a failed write the claimed
// session is restored for retry.
func (s *SessionService) finalize(ctx context.Context, userID string, t domain.QuizType, sessionID string, result domain.Result,
	take func() (any, bool), restore func(any) error) error {

	multiplier, err := s.multipliers.Multiplier(ctx, userID, t)
	if err != nil {
		return fmt.Errorf("look up multiplier: %w", err)
	}

	claimed, ok := take()
	if !ok {
		return domain.ErrSessionNotFound
	}

	rec := domain.CompletedSession{
		SessionID:     sessionID,
		UserID:        userID,
		QuizType:      t,
		Score:         result.Score,
		Total:         result.Total,
		Multiplier:    multiplier,
		WeightedScore: float64(result.Score) * multiplier,
		CompletedAt:   s.clock(),
	}
	if err := s.results.SaveResult(ctx, rec); err != nil {
		if restoreErr := restore(claimed); restoreErr != nil {
			s.log.Error("failed to restore session after persist failure",
				zap.String("sessionId", sessionID), zap.Error(restoreErr))
		}
		s.log.Warn("result write failed, session kept for retry",
			zap.String("sessionId", sessionID), zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	if s.sink != nil {
		s.sink.Publish(rec)
	}
	return nil
}
