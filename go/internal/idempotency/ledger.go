// Package idempotency implements the at-most-one-response-per-key ledger.
// Reservation is a unique-constraint insert: the ledger row is written in the
// same transaction as the team it describes, so the first writer wins and a
// concurrent request with the same key hits the constraint at commit and is
// routed into the duplicate path.
package idempotency

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/crickyard/registration/go/internal/registration/db"
)

// DefaultTTL bounds how long a stored response stays replayable.
const DefaultTTL = 10 * time.Minute

// Querier defines what the ledger needs from the database layer.
type Querier interface {
	GetIdempotencyKey(ctx context.Context, key string) (db.IdempotencyKey, error)
	InsertIdempotencyKey(ctx context.Context, arg db.InsertIdempotencyKeyParams) (db.IdempotencyKey, error)
	DeleteExpiredIdempotencyKeys(ctx context.Context) (int64, error)
}

type Ledger struct {
	queries Querier
	ttl     time.Duration
}

func NewLedger(queries Querier, ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Ledger{
		queries: queries,
		ttl:     ttl,
	}
}

// Lookup returns the stored response for key if one exists within its TTL.
// The second return is false when the key is fresh.
func (l *Ledger) Lookup(ctx context.Context, key string) (json.RawMessage, bool, error) {
	rec, err := l.queries.GetIdempotencyKey(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return json.RawMessage(rec.Response.RawMessage), true, nil
}

// Record writes the ledger row through q. Pass a transaction-bound Querier so
// the row becomes visible together with the team it belongs to.
func (l *Ledger) Record(ctx context.Context, q Querier, key string, response json.RawMessage) error {
	_, err := q.InsertIdempotencyKey(ctx, db.InsertIdempotencyKeyParams{
		ID:        uuid.New(),
		Key:       key,
		Response:  pqtype.NullRawMessage{RawMessage: response, Valid: true},
		ExpiresAt: time.Now().Add(l.ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to record idempotency key: %w", err)
	}
	return nil
}

// Prune deletes expired ledger rows and returns how many went away.
func (l *Ledger) Prune(ctx context.Context) (int64, error) {
	n, err := l.queries.DeleteExpiredIdempotencyKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to prune idempotency keys: %w", err)
	}
	return n, nil
}

// IsKeyConflict reports whether err is the unique violation raised when a
// concurrent request already committed the same idempotency key.
func IsKeyConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, "idempotency_keys")
}
