package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/quizdrill/quizdrill/internal/domain"
)

// ResultStore persists completed sessions, multipliers and credits in
// Postgres. It implements app.ResultRepository, app.MultiplierRepository
// and app.CreditRepository.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResult(ctx context.Context, rec domain.CompletedSession) error {
	// session_id is the primary key: even if two instances raced past the
	// store-level take, only one record can land.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_results (session_id, user_id, quiz_type, score, total, multiplier, weighted_score, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.SessionID, rec.UserID, string(rec.QuizType), rec.Score, rec.Total, rec.Multiplier, rec.WeightedScore, rec.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *ResultStore) ResultsByUser(ctx context.Context, userID string) ([]domain.CompletedSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, user_id, quiz_type, score, total, multiplier, weighted_score, completed_at
		FROM quiz_results WHERE user_id=$1 ORDER BY completed_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var records []domain.CompletedSession
	for rows.Next() {
		var rec domain.CompletedSession
		var quizType string
		if err := rows.Scan(&rec.SessionID, &rec.UserID, &quizType, &rec.Score, &rec.Total,
			&rec.Multiplier, &rec.WeightedScore, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		rec.QuizType = domain.QuizType(quizType)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *ResultStore) UserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id FROM quiz_results
		UNION SELECT user_id FROM multipliers
		UNION SELECT user_id FROM credits`)
	if err != nil {
		return nil, fmt.Errorf("query user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *ResultStore) Multiplier(ctx context.Context, userID string, t domain.QuizType) (float64, error) {
	var v float64
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM multipliers WHERE user_id=$1 AND quiz_type=$2`,
		userID, string(t)).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query multiplier: %w", err)
	}
	return v, nil
}

func (s *ResultStore) SetMultiplier(ctx context.Context, userID string, t domain.QuizType, v float64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO multipliers (user_id, quiz_type, value) VALUES ($1,$2,$3)
		ON CONFLICT (user_id, quiz_type) DO UPDATE SET value=EXCLUDED.value`,
		userID, string(t), v)
	if err != nil {
		return fmt.Errorf("upsert multiplier: %w", err)
	}
	return nil
}

func (s *ResultStore) MultipliersFor(ctx context.Context, userID string) (map[domain.QuizType]float64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT quiz_type, value FROM multipliers WHERE user_id=$1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query multipliers: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.QuizType]float64)
	for rows.Next() {
		var quizType string
		var v float64
		if err := rows.Scan(&quizType, &v); err != nil {
			return nil, fmt.Errorf("scan multiplier: %w", err)
		}
		out[domain.QuizType(quizType)] = v
	}
	return out, rows.Err()
}

func (s *ResultStore) Credits(ctx context.Context, userID string) (domain.Credits, error) {
	var c domain.Credits
	err := s.pool.QueryRow(ctx,
		`SELECT earned, claimed FROM credits WHERE user_id=$1`, userID).Scan(&c.Earned, &c.Claimed)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Credits{}, nil
	}
	if err != nil {
		return domain.Credits{}, fmt.Errorf("query credits: %w", err)
	}
	return c, nil
}

func (s *ResultStore) SetCredits(ctx context.Context, userID string, c domain.Credits) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO credits (user_id, earned, claimed) VALUES ($1,$2,$3)
		ON CONFLICT (user_id) DO UPDATE SET earned=EXCLUDED.earned, claimed=EXCLUDED.claimed`,
		userID, c.Earned, c.Claimed)
	if err != nil {
		return fmt.Errorf("upsert credits: %w", err)
	}
	return nil
}
