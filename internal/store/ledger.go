package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veracity-ai/veracity/internal/domain"
)

// LedgerStore persists archived session ledgers as JSONB rows.
type LedgerStore struct {
	db *pgxpool.Pool
}

var _ domain.LedgerStore = (*LedgerStore)(nil)

func NewLedgerStore(db *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{db: db}
}

// EnsureSchema creates the archive table if it does not exist.
func (s *LedgerStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS session_ledgers (
			session_id   UUID PRIMARY KEY,
			goal         TEXT NOT NULL DEFAULT '',
			observations JSONB NOT NULL,
			claims       JSONB NOT NULL,
			session_created_at TIMESTAMPTZ NOT NULL,
			archived_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("ensure session_ledgers schema: %w", err)
	}
	return nil
}

func (s *LedgerStore) Archive(ctx context.Context, sessionID uuid.UUID, record domain.LedgerRecord) error {
	observations, err := json.Marshal(record.Observations)
	if err != nil {
		return fmt.Errorf("marshal observations: %w", err)
	}
	claims, err := json.Marshal(record.Claims)
	if err != nil {
		return fmt.Errorf("marshal claims: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO session_ledgers (session_id, goal, observations, claims, session_created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id) DO UPDATE
		 SET goal = EXCLUDED.goal,
		     observations = EXCLUDED.observations,
		     claims = EXCLUDED.claims,
		     archived_at = NOW()`,
		sessionID, record.Goal, observations, claims, record.CreatedAt,
	)
	return err
}

func (s *LedgerStore) Get(ctx context.Context, sessionID uuid.UUID) (*domain.LedgerRecord, error) {
	var (
		record       domain.LedgerRecord
		observations []byte
		claims       []byte
	)

	err := s.db.QueryRow(ctx,
		`SELECT goal, observations, claims, session_created_at
		 FROM session_ledgers WHERE session_id = $1`,
		sessionID,
	).Scan(&record.Goal, &observations, &claims, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(observations, &record.Observations); err != nil {
		return nil, fmt.Errorf("unmarshal observations: %w", err)
	}
	if err := json.Unmarshal(claims, &record.Claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	return &record, nil
}

func (s *LedgerStore) ListSessionIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT session_id FROM session_ledgers ORDER BY archived_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
