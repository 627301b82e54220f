package memory

import (
	"context"
	"testing"
	"time"

	"github.com/quizdrill/quizdrill/internal/domain"
)

func TestMultiplierDefaultsToOne(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()

	v, err := store.Multiplier(ctx, "fresh-user", domain.TypeSimpleMath)
	if err != nil {
		t.Fatalf("multiplier: %v", err)
	}
	if v != 1 {
		t.Fatalf("expected default multiplier 1, got %v", v)
	}

	if err := store.SetMultiplier(ctx, "fresh-user", domain.TypeSimpleMath, 5); err != nil {
		t.Fatalf("set multiplier: %v", err)
	}
	if v, _ := store.Multiplier(ctx, "fresh-user", domain.TypeSimpleMath); v != 5 {
		t.Fatalf("expected multiplier 5, got %v", v)
	}
	// Other types remain at the default.
	if v, _ := store.Multiplier(ctx, "fresh-user", domain.TypeRemainder); v != 1 {
		t.Fatalf("expected default 1 for other type, got %v", v)
	}
}

func TestResultsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()

	rec := domain.CompletedSession{
		SessionID: "s1", UserID: "u1", QuizType: domain.TypeSimpleMath,
		Score: 7, Total: 10, Multiplier: 5, WeightedScore: 35,
		CompletedAt: time.Now(),
	}
	if err := store.SaveResult(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	records, err := store.ResultsByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].WeightedScore != 35 {
		t.Fatalf("unexpected records %+v", records)
	}

	if records, _ := store.ResultsByUser(ctx, "u2"); len(records) != 0 {
		t.Fatalf("expected no records for other user, got %d", len(records))
	}
}

func TestUserIDsSpanAllLedgers(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()

	_ = store.SaveResult(ctx, domain.CompletedSession{SessionID: "s1", UserID: "scorer"})
	_ = store.SetMultiplier(ctx, "boosted", domain.TypeBodmas, 2)
	_ = store.SetCredits(ctx, "granted", domain.Credits{Earned: 3})

	ids, err := store.UserIDs(ctx)
	if err != nil {
		t.Fatalf("user ids: %v", err)
	}
	want := map[string]bool{"scorer": true, "boosted": true, "granted": true}
	if len(ids) != len(want) {
		t.Fatalf("expected %d users, got %v", len(want), ids)
	}
	for _, id := range ids {
		if !want[id] {
			t.Fatalf("unexpected user id %q", id)
		}
	}
}

func TestCreditsDefaultToZero(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()

	c, err := store.Credits(ctx, "nobody")
	if err != nil {
		t.Fatalf("credits: %v", err)
	}
	if c.Earned != 0 || c.Claimed != 0 {
		t.Fatalf("expected zero credits, got %+v", c)
	}

	_ = store.SetCredits(ctx, "nobody", domain.Credits{Earned: 10, Claimed: 4})
	if c, _ := store.Credits(ctx, "nobody"); c.Earned != 10 || c.Claimed != 4 {
		t.Fatalf("unexpected credits %+v", c)
	}
}
