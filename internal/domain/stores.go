package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LedgerRecord is the archived form of one session's evidence ledger.
type LedgerRecord struct {
	Observations map[string]Observation `json:"observations"`
	Claims       map[string]Claim       `json:"claims"`
	Goal         string                 `json:"goal,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// LedgerStore archives session ledgers for after-the-fact audit. The
// ledger itself is session-scoped and lives in memory; archiving is
// optional and write-mostly.
type LedgerStore interface {
	Archive(ctx context.Context, sessionID uuid.UUID, record LedgerRecord) error
	Get(ctx context.Context, sessionID uuid.UUID) (*LedgerRecord, error)
	ListSessionIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
}
