package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quizdrill/quizdrill/internal/domain"
)

// WordLoader fetches the spelling word list from a backing store.
type WordLoader interface {
	LoadWords(ctx context.Context) ([]domain.WordEntry, error)
}

// WordRepository caches the word list with a TTL to avoid repeated DB hits.
// It implements app.WordSource.
type WordRepository struct {
	loader WordLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	cached    []domain.WordEntry
	expiresAt time.Time
}

func NewWordRepository(loader WordLoader, ttl time.Duration) *WordRepository {
	return &WordRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *WordRepository) Words(ctx context.Context) ([]domain.WordEntry, error) {
	now := r.clock()

	r.mu.RLock()
	if r.cached != nil && r.expiresAt.After(now) {
		words := r.cached
		r.mu.RUnlock()
		return words, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("words", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.cached != nil && r.expiresAt.After(now) {
			words := r.cached
			r.mu.RUnlock()
			return words, nil
		}
		r.mu.RUnlock()

		words, err := r.loader.LoadWords(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cached = words
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return words, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.WordEntry), nil
}

// StaticWordLoader serves a fixed list (useful for tests and for running
// without a database).
type StaticWordLoader struct {
	words []domain.WordEntry
}

func NewStaticWordLoader(words []domain.WordEntry) *StaticWordLoader {
	return &StaticWordLoader{words: words}
}

func (l *StaticWordLoader) LoadWords(_ context.Context) ([]domain.WordEntry, error) {
	if len(l.words) == 0 {
		return nil, domain.ErrWordListNotFound
	}
	return l.words, nil
}

func (r *WordRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
