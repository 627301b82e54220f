package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/quizdrill/quizdrill/internal/domain"
)

// DefaultWordListID is the list the migrations seed.
const DefaultWordListID = "default"

// WordLoader loads a spelling word list stored as JSONB.
type WordLoader struct {
	pool   *pgxpool.Pool
	listID string
}

func NewWordLoader(pool *pgxpool.Pool, listID string) *WordLoader {
	if listID == "" {
		listID = DefaultWordListID
	}
	return &WordLoader{pool: pool, listID: listID}
}

func (l *WordLoader) LoadWords(ctx context.Context) ([]domain.WordEntry, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT words FROM word_lists WHERE id=$1`, l.listID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWordListNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load word list: %w", err)
	}
	var words []domain.WordEntry
	if err := json.Unmarshal(raw, &words); err != nil {
		return nil, fmt.Errorf("unmarshal word list: %w", err)
	}
	if len(words) == 0 {
		return nil, domain.ErrWordListNotFound
	}
	return words, nil
}
