package ledger

import (
	"context"
	"fmt"

	"theftalert/internal/domain"
	"theftalert/internal/store"
)

// ErrClaimLost means the claim no longer owns its key, usually because the
// lease expired and another delivery took it over.
var ErrClaimLost = store.ErrClaimLost

// Status is the result of a claim attempt.
type Status string

const (
	StatusClaimed   Status = "claimed"
	StatusDuplicate Status = "duplicate"
	StatusInFlight  Status = "in_flight"
)

// Result is the terminal state recorded on a completed key.
type Result string

const (
	ResultSent   Result = "sent"
	ResultFailed Result = "failed"
)

// Claim is a claim attempt on a key. Only claims with StatusClaimed may be
// completed or released.
type Claim struct {
	Key    domain.Key
	Status Status
	token  string
}

// Acquired reports whether the caller owns the key.
func (c Claim) Acquired() bool {
	return c.Status == StatusClaimed
}

// Guard is the check-and-record contract used by the dispatcher.
type Guard interface {
	Claim(ctx context.Context, key domain.Key) (Claim, error)
	Complete(ctx context.Context, claim Claim, result Result) error
	Release(ctx context.Context, claim Claim) error
}

// ShouldProcess claims key and reports whether the caller should perform the
// side effect. A true result must be followed by Complete or Release.
func ShouldProcess(ctx context.Context, g Guard, key domain.Key) (Claim, bool, error) {
	claim, err := g.Claim(ctx, key)
	if err != nil {
		return Claim{}, false, err
	}
	return claim, claim.Acquired(), nil
}

func requireAcquired(claim Claim, op string) error {
	if !claim.Acquired() {
		return fmt.Errorf("ledger %s %s: claim status %s is not owned", op, claim.Key, claim.Status)
	}
	return nil
}
