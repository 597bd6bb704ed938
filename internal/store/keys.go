package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"theftalert/internal/domain"
)

// ClaimStatus is the result of an attempt to claim an idempotency key.
type ClaimStatus string

const (
	// ClaimAcquired means the caller owns the key until the lease expires.
	ClaimAcquired ClaimStatus = "claimed"
	// ClaimDuplicate means the key was already completed.
	ClaimDuplicate ClaimStatus = "duplicate"
	// ClaimInFlight means another delivery holds a live lease.
	ClaimInFlight ClaimStatus = "in_flight"
)

const (
	keyStateClaimed   = "claimed"
	keyStateCompleted = "completed"
)

// ErrClaimLost is returned when completing or releasing a key whose claim
// token no longer matches, typically because the lease expired and another
// delivery took it over.
var ErrClaimLost = errors.New("claim lost")

const claimKeySQL = `
INSERT INTO idempotency_keys (report_id, user_id, channel, state, token, result, lease_expires, updated_at)
VALUES (?, ?, ?, 'claimed', ?, '', ?, ?)
ON CONFLICT (report_id, user_id, channel) DO UPDATE SET
    token = excluded.token,
    result = '',
    lease_expires = excluded.lease_expires,
    updated_at = excluded.updated_at
WHERE idempotency_keys.state = 'claimed'
  AND idempotency_keys.lease_expires <= excluded.updated_at`

// ClaimKey atomically claims key for lease. The returned token must be passed
// to CompleteKey or ReleaseKey.
func (s *Store) ClaimKey(ctx context.Context, key domain.Key, lease time.Duration) (ClaimStatus, string, error) {
	ctx = ensureContext(ctx)
	token := uuid.NewString()

	// A row deleted between the upsert and the state read is retried once.
	for attempt := 0; attempt < 2; attempt++ {
		now := s.now()
		res, err := s.execWithRetry(ctx, claimKeySQL,
			key.ReportID, key.UserID, string(key.Channel), token,
			unixMillis(now.Add(lease)), unixMillis(now))
		if err != nil {
			return "", "", fmt.Errorf("claim key %s: %w", key, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return "", "", fmt.Errorf("claim key %s: rows affected: %w", key, err)
		}
		if affected == 1 {
			return ClaimAcquired, token, nil
		}

		var state string
		err = s.db.QueryRowContext(ctx,
			`SELECT state FROM idempotency_keys WHERE report_id = ? AND user_id = ? AND channel = ?`,
			key.ReportID, key.UserID, string(key.Channel),
		).Scan(&state)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			continue
		case err != nil:
			return "", "", fmt.Errorf("read key %s: %w", key, err)
		case state == keyStateCompleted:
			return ClaimDuplicate, "", nil
		default:
			return ClaimInFlight, "", nil
		}
	}
	return ClaimInFlight, "", nil
}

// CompleteKey marks a claimed key consumed with the given result.
func (s *Store) CompleteKey(ctx context.Context, key domain.Key, token, result string) error {
	res, err := s.execWithRetry(ctx, `
UPDATE idempotency_keys
   SET state = 'completed', result = ?, lease_expires = 0, updated_at = ?
 WHERE report_id = ? AND user_id = ? AND channel = ? AND state = 'claimed' AND token = ?`,
		result, unixMillis(s.now()), key.ReportID, key.UserID, string(key.Channel), token)
	if err != nil {
		return fmt.Errorf("complete key %s: %w", key, err)
	}
	return requireOneRow(res, key)
}

// ReleaseKey drops a claim so a later delivery may retry the key.
func (s *Store) ReleaseKey(ctx context.Context, key domain.Key, token string) error {
	res, err := s.execWithRetry(ctx, `
DELETE FROM idempotency_keys
 WHERE report_id = ? AND user_id = ? AND channel = ? AND state = 'claimed' AND token = ?`,
		key.ReportID, key.UserID, string(key.Channel), token)
	if err != nil {
		return fmt.Errorf("release key %s: %w", key, err)
	}
	return requireOneRow(res, key)
}

func requireOneRow(res sql.Result, key domain.Key) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("key %s: rows affected: %w", key, err)
	}
	if affected != 1 {
		return fmt.Errorf("key %s: %w", key, ErrClaimLost)
	}
	return nil
}

// KeyRecord is a single ledger row.
type KeyRecord struct {
	Key          domain.Key
	State        string
	Result       string
	LeaseExpires time.Time
	UpdatedAt    time.Time
}

// GetKey returns the ledger row for key, or nil when it does not exist.
func (s *Store) GetKey(ctx context.Context, key domain.Key) (*KeyRecord, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `
SELECT state, result, lease_expires, updated_at FROM idempotency_keys
 WHERE report_id = ? AND user_id = ? AND channel = ?`,
		key.ReportID, key.UserID, string(key.Channel))
	rec := KeyRecord{Key: key}
	var lease, updated int64
	if err := row.Scan(&rec.State, &rec.Result, &lease, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get key %s: %w", key, err)
	}
	rec.LeaseExpires = fromUnixMillis(lease)
	rec.UpdatedAt = fromUnixMillis(updated)
	return &rec, nil
}

// LedgerStats summarizes the idempotency ledger.
type LedgerStats struct {
	Claimed int
	Expired int
	Results map[string]int
	Total   int
}

// LedgerStats counts keys by state and completed result.
func (s *Store) LedgerStats(ctx context.Context) (LedgerStats, error) {
	ctx = ensureContext(ctx)
	stats := LedgerStats{Results: make(map[string]int)}
	now := unixMillis(s.now())

	rows, err := s.db.QueryContext(ctx, `
SELECT state, result, lease_expires <= ? AS expired, COUNT(1)
  FROM idempotency_keys
 GROUP BY state, result, expired`, now)
	if err != nil {
		return stats, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			state, result string
			expired       bool
			count         int
		)
		if err := rows.Scan(&state, &result, &expired, &count); err != nil {
			return stats, fmt.Errorf("ledger stats: scan: %w", err)
		}
		stats.Total += count
		if state == keyStateClaimed {
			stats.Claimed += count
			if expired {
				stats.Expired += count
			}
			continue
		}
		stats.Results[result] += count
	}
	return stats, rows.Err()
}

// PruneKeys removes completed keys last updated before cutoff and claims
// whose lease expired before cutoff. It returns the number of rows removed.
func (s *Store) PruneKeys(ctx context.Context, cutoff time.Time) (int64, error) {
	ms := unixMillis(cutoff)
	res, err := s.execWithRetry(ctx, `
DELETE FROM idempotency_keys
 WHERE (state = 'completed' AND updated_at < ?)
    OR (state = 'claimed' AND lease_expires < ?)`, ms, ms)
	if err != nil {
		return 0, fmt.Errorf("prune keys: %w", err)
	}
	return res.RowsAffected()
}
