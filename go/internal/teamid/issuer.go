// Package teamid issues the human-readable, lexically sortable team
// identifiers. The sequence lives in a Postgres counter row; consuming it
// with an atomic read-increment-write inside the enclosing transaction means
// two concurrent registrations can never be handed the same value, at the
// cost of gaps when a transaction aborts.
package teamid

import (
	"context"
	"fmt"
)

// CounterName is the counters-table row backing the team sequence.
const CounterName = "team_seq"

// Querier defines what the issuer needs from the database layer.
type Querier interface {
	NextTeamSeq(ctx context.Context, name string) (int32, error)
}

type Issuer struct {
	prefix string
}

func NewIssuer(prefix string) *Issuer {
	return &Issuer{prefix: prefix}
}

// Issue consumes the next counter value through q. Run it with a
// transaction-bound Querier so the increment commits or rolls back with the
// team insert.
func (i *Issuer) Issue(ctx context.Context, q Querier) (string, error) {
	seq, err := q.NextTeamSeq(ctx, CounterName)
	if err != nil {
		return "", fmt.Errorf("failed to advance team sequence: %w", err)
	}
	return fmt.Sprintf("%s-%04d", i.prefix, seq), nil
}

// PlayerID derives a roster entry's identifier from its team and 1-based
// position, e.g. "CYT-0042-P01".
func PlayerID(teamID string, position int) string {
	return fmt.Sprintf("%s-P%02d", teamID, position)
}
