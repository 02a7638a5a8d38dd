package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/acis-toolkit/internal/climate"
)

var (
	// ErrNotFound is returned when no snapshot is available for a job.
	ErrNotFound = errors.New("no snapshot for job")
)

// SnapshotHistory holds a time-ordered list of snapshots for a job.
type SnapshotHistory struct {
	Snapshots []climate.Snapshot
}

// MemoryStore is a concurrency-safe in-memory implementation of climate.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: job name, value: history
	data map[string]*SnapshotHistory

	// retention configuration
	maxHistory int           // max number of snapshots per job
	maxAge     time.Duration // optional max age for snapshots

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*SnapshotHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveSnapshot appends a new snapshot for a job and enforces retention.
func (s *MemoryStore) SaveSnapshot(key string, snapshot climate.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &SnapshotHistory{}
		s.data[key] = history
	}

	history.Snapshots = append(history.Snapshots, snapshot)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Snapshots) > s.maxHistory {
		over := len(history.Snapshots) - s.maxHistory
		history.Snapshots = history.Snapshots[over:]
	}

	// Enforce retention by age. The newest snapshot is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Snapshots)-1; i++ {
			if !history.Snapshots[i].Timestamp.Before(cutoff) {
				break
			}
		}
		history.Snapshots = history.Snapshots[i:]
	}
}

// GetLatest returns the most recent snapshot for a job.
func (s *MemoryStore) GetLatest(key string) (climate.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Snapshots) == 0 {
		return climate.Snapshot{}, ErrNotFound
	}
	return history.Snapshots[len(history.Snapshots)-1], nil
}

// GetRange returns all snapshots for a job between from and to (inclusive).
func (s *MemoryStore) GetRange(key string, from, to time.Time) ([]climate.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Snapshots) == 0 {
		return nil, ErrNotFound
	}

	var result []climate.Snapshot
	for _, snap := range history.Snapshots {
		if !snap.Timestamp.Before(from) && !snap.Timestamp.After(to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}

// Keys returns the jobs that have at least one snapshot, sorted.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k, h := range s.data {
		if len(h.Snapshots) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
