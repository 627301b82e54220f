package memory

import (
	"context"
	"sync"

	"github.com/quizdrill/quizdrill/internal/domain"
)

// ResultStore keeps completed session records, multipliers and the credit
// ledger in memory. It implements app.ResultRepository,
// app.MultiplierRepository and app.CreditRepository.
type ResultStore struct {
	mu          sync.RWMutex
	results     map[string][]domain.CompletedSession
	multipliers map[string]map[domain.QuizType]float64
	credits     map[string]domain.Credits
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		results:     make(map[string][]domain.CompletedSession),
		multipliers: make(map[string]map[domain.QuizType]float64),
		credits:     make(map[string]domain.Credits),
	}
}

func (s *ResultStore) SaveResult(_ context.Context, rec domain.CompletedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[rec.UserID] = append(s.results[rec.UserID], rec)
	return nil
}

func (s *ResultStore) ResultsByUser(_ context.Context, userID string) ([]domain.CompletedSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]domain.CompletedSession, len(s.results[userID]))
	copy(records, s.results[userID])
	return records, nil
}

func (s *ResultStore) UserIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{}
	for id := range s.results {
		seen[id] = true
	}
	for id := range s.multipliers {
		seen[id] = true
	}
	for id := range s.credits {
		seen[id] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids, nil
}

// Multiplier defaults to 1 when the user has no record for the type.
func (s *ResultStore) Multiplier(_ context.Context, userID string, t domain.QuizType) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.multipliers[userID][t]; ok {
		return v, nil
	}
	return 1, nil
}

func (s *ResultStore) SetMultiplier(_ context.Context, userID string, t domain.QuizType, v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.multipliers[userID] == nil {
		s.multipliers[userID] = make(map[domain.QuizType]float64)
	}
	s.multipliers[userID][t] = v
	return nil
}

func (s *ResultStore) MultipliersFor(_ context.Context, userID string) (map[domain.QuizType]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.QuizType]float64, len(s.multipliers[userID]))
	for t, v := range s.multipliers[userID] {
		out[t] = v
	}
	return out, nil
}

func (s *ResultStore) Credits(_ context.Context, userID string) (domain.Credits, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credits[userID], nil
}

func (s *ResultStore) SetCredits(_ context.Context, userID string, c domain.Credits) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits[userID] = c
	return nil
}
