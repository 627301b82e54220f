package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quizdrill/quizdrill/internal/domain"
)

// SessionStore keeps in-flight sessions in Redis with the TTL applied
// natively per key, so expiry needs no sweep goroutine. GETDEL provides the
// atomic take: two concurrent submissions for one session id cannot both
// claim it, even across instances.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) PutQuiz(ctx context.Context, session *domain.QuizSession) error {
	return s.put(ctx, s.quizKey(session.ID), session, session.CreatedAt)
}

func (s *SessionStore) GetQuiz(ctx context.Context, id string) (*domain.QuizSession, bool) {
	var session domain.QuizSession
	if !s.get(ctx, s.quizKey(id), &session) {
		return nil, false
	}
	return &session, true
}

func (s *SessionStore) TakeQuiz(ctx context.Context, id string) (*domain.QuizSession, bool) {
	var session domain.QuizSession
	if !s.take(ctx, s.quizKey(id), &session) {
		return nil, false
	}
	return &session, true
}

func (s *SessionStore) DeleteQuiz(ctx context.Context, id string) {
	_ = s.client.Del(ctx, s.quizKey(id)).Err()
}

func (s *SessionStore) PutWords(ctx context.Context, session *domain.WordSession) error {
	return s.put(ctx, s.wordKey(session.ID), session, session.CreatedAt)
}

func (s *SessionStore) GetWords(ctx context.Context, id string) (*domain.WordSession, bool) {
	var session domain.WordSession
	if !s.get(ctx, s.wordKey(id), &session) {
		return nil, false
	}
	return &session, true
}

func (s *SessionStore) TakeWords(ctx context.Context, id string) (*domain.WordSession, bool) {
	var session domain.WordSession
	if !s.take(ctx, s.wordKey(id), &session) {
		return nil, false
	}
	return &session, true
}

func (s *SessionStore) DeleteWords(ctx context.Context, id string) {
	_ = s.client.Del(ctx, s.wordKey(id)).Err()
}

// restoreFloor is the TTL given to a session written at or past its
// deadline, so a late restore still expires promptly instead of getting a
// fresh full TTL.
const restoreFloor = time.Second

// put stores the serialized session under the remaining TTL, so a session
// restored after a failed result write keeps its original deadline.
func (s *SessionStore) put(ctx context.Context, key string, session any, createdAt time.Time) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ttl := s.ttl
	if ttl > 0 && !createdAt.IsZero() {
		remaining := s.ttl - time.Since(createdAt)
		if remaining <= 0 {
			remaining = restoreFloor
		}
		if remaining < ttl {
			ttl = remaining
		}
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *SessionStore) get(ctx context.Context, key string, out any) bool {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (s *SessionStore) take(ctx context.Context, key string, out any) bool {
	data, err := s.client.GetDel(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (s *SessionStore) quizKey(id string) string {
	return "quiz:session:" + id
}

func (s *SessionStore) wordKey(id string) string {
	return "word:session:" + id
}
