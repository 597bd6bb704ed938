package ledger

import (
	"context"
	"fmt"
	"time"

	"theftalert/internal/domain"
	"theftalert/internal/store"
)

// SQLite is a Guard persisted in the engine database.
type SQLite struct {
	store *store.Store
	lease time.Duration
}

// NewSQLite wraps st with the given claim lease.
func NewSQLite(st *store.Store, lease time.Duration) *SQLite {
	return &SQLite{store: st, lease: lease}
}

func (g *SQLite) Claim(ctx context.Context, key domain.Key) (Claim, error) {
	status, token, err := g.store.ClaimKey(ctx, key, g.lease)
	if err != nil {
		return Claim{Key: key}, fmt.Errorf("ledger claim %s: %w", key, err)
	}
	claim := Claim{Key: key, token: token}
	switch status {
	case store.ClaimAcquired:
		claim.Status = StatusClaimed
	case store.ClaimDuplicate:
		claim.Status = StatusDuplicate
	case store.ClaimInFlight:
		claim.Status = StatusInFlight
	default:
		return claim, fmt.Errorf("ledger claim %s: unexpected status %q", key, status)
	}
	return claim, nil
}

func (g *SQLite) Complete(ctx context.Context, claim Claim, result Result) error {
	if err := requireAcquired(claim, "complete"); err != nil {
		return err
	}
	return g.store.CompleteKey(ctx, claim.Key, claim.token, string(result))
}

func (g *SQLite) Release(ctx context.Context, claim Claim) error {
	if err := requireAcquired(claim, "release"); err != nil {
		return err
	}
	return g.store.ReleaseKey(ctx, claim.Key, claim.token)
}
