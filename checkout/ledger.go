package checkout

import (
	"context"
	"sync"
	"time"
)

// DefaultLedgerTTL is how long a reconciled return is remembered.
const DefaultLedgerTTL = 24 * time.Hour

// LedgerEntry records a return that resolved successfully, so that a
// refresh or a back navigation to the same URL replays the outcome instead
// of calling the backend again.
type LedgerEntry struct {
	Key   string `json:"key" bson:"_id"`
	Flow  Kind   `json:"flow" bson:"flow"`
	Owner string `json:"owner" bson:"owner"`
	// IntentID is the setup intent or payment intent the return resumed.
	IntentID  string    `json:"intentId" bson:"intentId"`
	ResultID  string    `json:"resultId" bson:"resultId"`
	Status    string    `json:"status" bson:"status"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Ledger stores reconciled returns.
type Ledger interface {
	// Get returns nil and no error when the key is unknown.
	Get(ctx context.Context, key string) (*LedgerEntry, error)
	Put(ctx context.Context, entry *LedgerEntry) error
	// Prune removes the entries created before the given time and returns
	// how many were removed.
	Prune(ctx context.Context, before time.Time) (int, error)
}

// MemoryLedger is an in-memory Ledger, suitable for a single instance.
type MemoryLedger struct {
	entries map[string]LedgerEntry
	mutex   sync.RWMutex
	ttl     time.Duration
}

// NewMemoryLedger creates a new in-memory ledger. Expired entries are not
// returned and are removed by Prune.
func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	if ttl == 0 {
		ttl = DefaultLedgerTTL
	}
	return &MemoryLedger{
		entries: make(map[string]LedgerEntry),
		ttl:     ttl,
	}
}

// Get returns the entry stored under key.
func (m *MemoryLedger) Get(_ context.Context, key string) (*LedgerEntry, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	e, exists := m.entries[key]
	if !exists || time.Since(e.CreatedAt) > m.ttl {
		return nil, nil
	}
	return &e, nil
}

// Put stores the entry, stamping its creation time when unset.
func (m *MemoryLedger) Put(_ context.Context, entry *LedgerEntry) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	e := *entry
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.entries[e.Key] = e
	return nil
}

// Prune removes entries created before the given time.
func (m *MemoryLedger) Prune(_ context.Context, before time.Time) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	removed := 0
	for key, e := range m.entries {
		if e.CreatedAt.Before(before) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Size returns the number of stored entries, expired ones included until
// they are pruned.
func (m *MemoryLedger) Size() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.entries)
}
