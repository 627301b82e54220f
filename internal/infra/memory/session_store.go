package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quizdrill/quizdrill/internal/domain"
)

// DefaultSweepInterval is how often the background sweep reaps expired
// sessions when no interval is configured.
const DefaultSweepInterval = time.Minute

// SessionStore is an in-memory implementation of app.SessionRepository.
// Numeric quiz sessions and word sessions live in separate collections.
// A single periodic sweep goroutine handles TTL expiry; there are no
// per-session timers to leak.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.RWMutex
	quizzes map[string]*domain.QuizSession
	words   map[string]*domain.WordSession

	stop chan struct{}
	done chan struct{}
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return NewSessionStoreWithClock(ttl, time.Now)
}

// NewSessionStoreWithClock allows deterministic expiry in tests.
func NewSessionStoreWithClock(ttl time.Duration, clock func() time.Time) *SessionStore {
	return &SessionStore{
		ttl:     ttl,
		clock:   clock,
		quizzes: make(map[string]*domain.QuizSession),
		words:   make(map[string]*domain.WordSession),
	}
}

func (s *SessionStore) PutQuiz(_ context.Context, session *domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[session.ID] = session
	return nil
}

func (s *SessionStore) GetQuiz(_ context.Context, id string) (*domain.QuizSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.quizzes[id]
	if !ok || s.expired(session.CreatedAt) {
		return nil, false
	}
	return session, true
}

// TakeQuiz removes and returns the session under the write lock, so two
// concurrent submissions for the same id cannot both claim it.
func (s *SessionStore) TakeQuiz(_ context.Context, id string) (*domain.QuizSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.quizzes[id]
	if !ok || s.expired(session.CreatedAt) {
		return nil, false
	}
	delete(s.quizzes, id)
	return session, true
}

func (s *SessionStore) DeleteQuiz(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quizzes, id)
}

func (s *SessionStore) PutWords(_ context.Context, session *domain.WordSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.words[session.ID] = session
	return nil
}

func (s *SessionStore) GetWords(_ context.Context, id string) (*domain.WordSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.words[id]
	if !ok || s.expired(session.CreatedAt) {
		return nil, false
	}
	return session, true
}

func (s *SessionStore) TakeWords(_ context.Context, id string) (*domain.WordSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.words[id]
	if !ok || s.expired(session.CreatedAt) {
		return nil, false
	}
	delete(s.words, id)
	return session, true
}

func (s *SessionStore) DeleteWords(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.words, id)
}

// CleanupExpired removes every session older than the TTL and reports how
// many were reaped. It takes the same lock as reads and takes, so a
// session cannot be scored after removal or removed mid-scoring.
func (s *SessionStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	reaped := 0
	for id, session := range s.quizzes {
		if s.expired(session.CreatedAt) {
			delete(s.quizzes, id)
			reaped++
		}
	}
	for id, session := range s.words {
		if s.expired(session.CreatedAt) {
			delete(s.words, id)
			reaped++
		}
	}
	return reaped
}

// Start launches the periodic expiry sweep. Call Stop on shutdown.
func (s *SessionStore) Start(interval time.Duration, log *zap.Logger) {
	if s.stop != nil {
		return
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if reaped := s.CleanupExpired(); reaped > 0 {
					log.Debug("reaped expired sessions", zap.Int("count", reaped))
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop cancels the sweep goroutine and waits for it to exit.
func (s *SessionStore) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop = nil
	s.done = nil
}

func (s *SessionStore) expired(createdAt time.Time) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.clock().Sub(createdAt) > s.ttl
}
