package quota

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Usage is one user's counter row for a billing period.
type Usage struct {
	UserID   uuid.UUID
	Period   Period
	Counters map[Category]int64
}

// Store persists period counters. Implementations must make IncrementIfBelow
// atomic with respect to concurrent callers for the same user and period.
type Store interface {
	// GetOrCreatePeriod returns the row for period, inserting an all-zero row
	// first when none exists. It writes on first use in a month.
	GetOrCreatePeriod(ctx context.Context, userID uuid.UUID, period Period) (Usage, error)
	// GetPeriod reads the row without creating it. A missing row is reported
	// as zero counters.
	GetPeriod(ctx context.Context, userID uuid.UUID, period Period) (Usage, error)
	// IncrementIfBelow adds n to the category counter only when the result
	// stays within limit (or limit is Unlimited). It returns the counter value
	// after the call and whether the increment happened.
	IncrementIfBelow(ctx context.Context, userID uuid.UUID, period Period, category Category, n int64, limit Limit) (int64, bool, error)
}

// MemoryStore keeps counters in process memory. Use it in tests and single
// instance development setups.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[memoryKey]map[Category]int64
}

type memoryKey struct {
	userID uuid.UUID
	start  time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[memoryKey]map[Category]int64)}
}

func (s *MemoryStore) GetOrCreatePeriod(_ context.Context, userID uuid.UUID, period Period) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.row(userID, period, true)
	return Usage{UserID: userID, Period: period, Counters: copyCounters(row)}, nil
}

func (s *MemoryStore) GetPeriod(_ context.Context, userID uuid.UUID, period Period) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Usage{UserID: userID, Period: period, Counters: copyCounters(s.row(userID, period, false))}, nil
}

func (s *MemoryStore) IncrementIfBelow(_ context.Context, userID uuid.UUID, period Period, category Category, n int64, limit Limit) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.row(userID, period, true)
	current := row[category]
	if !limit.Allows(current, n) {
		return current, false, nil
	}
	row[category] = current + n
	return row[category], true, nil
}

// Periods returns how many period rows exist for the user.
func (s *MemoryStore) Periods(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k := range s.rows {
		if k.userID == userID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) row(userID uuid.UUID, period Period, create bool) map[Category]int64 {
	key := memoryKey{userID: userID, start: period.Start}
	row, ok := s.rows[key]
	if !ok && create {
		row = make(map[Category]int64)
		s.rows[key] = row
	}
	return row
}

func copyCounters(src map[Category]int64) map[Category]int64 {
	dst := make(map[Category]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
