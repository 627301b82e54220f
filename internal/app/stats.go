package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/quizdrill/quizdrill/internal/domain"
)

// UserSessions returns all of the user's completed session records ordered
// by completion time ascending.
func (s *SessionService) UserSessions(ctx context.Context, userID string) ([]domain.CompletedSession, error) {
	records, err := s.results.ResultsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CompletedAt.Before(records[j].CompletedAt)
	})
	return records, nil
}

// UserStats recomputes the user's aggregate stats from the completed
// records on every call; there is no cached total to drift.
func (s *SessionService) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	records, err := s.UserSessions(ctx, userID)
	if err != nil {
		return domain.UserStats{}, err
	}
	stats := domain.UserStats{Details: records, SessionsCount: len(records)}
	for _, rec := range records {
		stats.TotalScore += rec.WeightedScore
	}
	return stats, nil
}

// SetMultiplier writes a user's multiplier for one quiz type. Zero is valid
// and disables future scoring for that type; negatives are rejected.
func (s *SessionService) SetMultiplier(ctx context.Context, userID string, t domain.QuizType, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: multiplier must be a non-negative number, got %v", domain.ErrInvalidArgument, v)
	}
	return s.multipliers.SetMultiplier(ctx, userID, t, v)
}

// Multiplier reads a user's multiplier for one quiz type, defaulting to 1.
func (s *SessionService) Multiplier(ctx context.Context, userID string, t domain.QuizType) (float64, error) {
	return s.multipliers.Multiplier(ctx, userID, t)
}

// lockCredits takes the per-user credit lock. The balance check and the
// SetCredits write must happen under it, or concurrent claims read the same
// pre-claim balance and overdraw.
func (s *SessionService) lockCredits(userID string) func() {
	v, _ := s.creditLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ClaimCredits converts weighted score into claimed credits. The claimable
// balance is floor(totalScore) plus any parent-granted earned credits,
// minus what was already claimed.
func (s *SessionService) ClaimCredits(ctx context.Context, userID string, amount int) (domain.Credits, error) {
	if amount <= 0 {
		return domain.Credits{}, fmt.Errorf("%w: claim amount must be positive, got %d", domain.ErrInvalidArgument, amount)
	}
	defer s.lockCredits(userID)()

	stats, err := s.UserStats(ctx, userID)
	if err != nil {
		return domain.Credits{}, err
	}
	credits, err := s.credits.Credits(ctx, userID)
	if err != nil {
		return domain.Credits{}, err
	}
	available := int(math.Floor(stats.TotalScore)) + credits.Earned - credits.Claimed
	if amount > available {
		return domain.Credits{}, fmt.Errorf("%w: claim of %d exceeds available %d", domain.ErrInvalidArgument, amount, available)
	}
	credits.Claimed += amount
	if err := s.credits.SetCredits(ctx, userID, credits); err != nil {
		return domain.Credits{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return credits, nil
}

// CreditPatch is a partial update to a user's credit ledger. Absolute
// fields win over deltas when both are set.
type CreditPatch struct {
	Earned       *int `json:"earned,omitempty"`
	Claimed      *int `json:"claimed,omitempty"`
	EarnedDelta  *int `json:"earnedDelta,omitempty"`
	ClaimedDelta *int `json:"claimedDelta,omitempty"`
}

// UpdateCredits applies a parent-authorized credit adjustment.
func (s *SessionService) UpdateCredits(ctx context.Context, userID string, patch CreditPatch) (domain.Credits, error) {
	defer s.lockCredits(userID)()

	credits, err := s.credits.Credits(ctx, userID)
	if err != nil {
		return domain.Credits{}, err
	}
	if patch.EarnedDelta != nil {
		credits.Earned += *patch.EarnedDelta
	}
	if patch.ClaimedDelta != nil {
		credits.Claimed += *patch.ClaimedDelta
	}
	if patch.Earned != nil {
		credits.Earned = *patch.Earned
	}
	if patch.Claimed != nil {
		credits.Claimed = *patch.Claimed
	}
	if credits.Earned < 0 || credits.Claimed < 0 {
		return domain.Credits{}, fmt.Errorf("%w: credits cannot go negative", domain.ErrInvalidArgument)
	}
	if err := s.credits.SetCredits(ctx, userID, credits); err != nil {
		return domain.Credits{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return credits, nil
}

// UserSummary builds the parent-dashboard view of one user, with the
// multiplier map filled in for every quiz type.
func (s *SessionService) UserSummary(ctx context.Context, userID string) (domain.UserSummary, error) {
	stats, err := s.UserStats(ctx, userID)
	if err != nil {
		return domain.UserSummary{}, err
	}
	credits, err := s.credits.Credits(ctx, userID)
	if err != nil {
		return domain.UserSummary{}, err
	}
	stored, err := s.multipliers.MultipliersFor(ctx, userID)
	if err != nil {
		return domain.UserSummary{}, err
	}
	if stats.SessionsCount == 0 && len(stored) == 0 && credits == (domain.Credits{}) {
		return domain.UserSummary{}, domain.ErrUserNotFound
	}
	multipliers, err := s.multipliersWithDefaults(ctx, userID)
	if err != nil {
		return domain.UserSummary{}, err
	}
	return domain.UserSummary{
		UserID:      userID,
		TotalScore:  stats.TotalScore,
		Sessions:    stats.SessionsCount,
		Multipliers: multipliers,
		Credits:     &credits,
	}, nil
}

// ListUsers returns summaries for every user with any recorded activity,
// filtered by a substring search and capped at limit when positive.
func (s *SessionService) ListUsers(ctx context.Context, search string, limit int) ([]domain.UserSummary, error) {
	ids, err := s.results.UserIDs(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	summaries := make([]domain.UserSummary, 0, len(ids))
	for _, id := range ids {
		if search != "" && !strings.Contains(strings.ToLower(id), strings.ToLower(search)) {
			continue
		}
		summary, err := s.UserSummary(ctx, id)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
		if limit > 0 && len(summaries) >= limit {
			break
		}
	}
	return summaries, nil
}

func (s *SessionService) multipliersWithDefaults(ctx context.Context, userID string) (map[domain.QuizType]float64, error) {
	stored, err := s.multipliers.MultipliersFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.QuizType]float64, len(domain.QuizTypes()))
	for _, t := range domain.QuizTypes() {
		out[t] = 1
		if v, ok := stored[t]; ok {
			out[t] = v
		}
	}
	return out, nil
}
