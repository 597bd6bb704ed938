package ledger

import (
	"context"
	"strconv"
	"sync"
	"time"

	"theftalert/internal/domain"
)

type memoryEntry struct {
	token     string
	completed bool
	result    Result
	expires   time.Time
}

// Memory is an in-process Guard. It is linearizable per key but does not
// survive restarts.
type Memory struct {
	mu      sync.Mutex
	lease   time.Duration
	entries map[domain.Key]*memoryEntry
	seq     uint64
	now     func() time.Time
}

// NewMemory returns an empty in-process guard.
func NewMemory(lease time.Duration) *Memory {
	return &Memory{lease: lease, entries: make(map[domain.Key]*memoryEntry), now: time.Now}
}

// SetClock overrides the time source.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Claim(_ context.Context, key domain.Key) (Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if entry, ok := m.entries[key]; ok {
		if entry.completed {
			return Claim{Key: key, Status: StatusDuplicate}, nil
		}
		if now.Before(entry.expires) {
			return Claim{Key: key, Status: StatusInFlight}, nil
		}
	}
	m.seq++
	token := strconv.FormatUint(m.seq, 10)
	m.entries[key] = &memoryEntry{token: token, expires: now.Add(m.lease)}
	return Claim{Key: key, Status: StatusClaimed, token: token}, nil
}

func (m *Memory) Complete(_ context.Context, claim Claim, result Result) error {
	if err := requireAcquired(claim, "complete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[claim.Key]
	if !ok || entry.completed || entry.token != claim.token {
		return ErrClaimLost
	}
	entry.completed = true
	entry.result = result
	return nil
}

func (m *Memory) Release(_ context.Context, claim Claim) error {
	if err := requireAcquired(claim, "release"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[claim.Key]
	if !ok || entry.completed || entry.token != claim.token {
		return ErrClaimLost
	}
	delete(m.entries, claim.Key)
	return nil
}

// Result returns the recorded result for key and whether it was completed.
func (m *Memory) Result(key domain.Key) (Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok || !entry.completed {
		return "", false
	}
	return entry.result, true
}
