package memory

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/repositories"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// DefaultHistorySize is the number of snapshots retained by default.
const DefaultHistorySize = 32

// Ensure interface compliance
var _ repositories.RunHistoryRepository = (*RunHistoryRepository)(nil)

// RunHistoryRepository retains the most recent snapshots. Entries are keyed
// by a monotonically increasing sequence and never read through Get, so the
// LRU eviction order is insertion order.
type RunHistoryRepository struct {
	cache *lru.Cache[uint64, *entities.RunSnapshot]
	seq   atomic.Uint64
}

// NewRunHistoryRepository creates a history holding at most size snapshots.
// Non-positive sizes select DefaultHistorySize.
func NewRunHistoryRepository(size int) (*RunHistoryRepository, error) {
	if size <= 0 {
		size = DefaultHistorySize
	}
	cache, err := lru.New[uint64, *entities.RunSnapshot](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create run history: %w", err)
	}
	return &RunHistoryRepository{cache: cache}, nil
}

// Record appends a snapshot, evicting the oldest when full.
func (r *RunHistoryRepository) Record(_ context.Context, snapshot *entities.RunSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot is nil")
	}
	r.cache.Add(r.seq.Add(1), snapshot)
	return nil
}

// Recent returns up to limit snapshots, newest first.
func (r *RunHistoryRepository) Recent(_ context.Context, limit int) ([]*entities.RunSnapshot, error) {
	all := r.cache.Values()
	slices.Reverse(all)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// FindByRun returns the retained snapshots of one run, oldest first.
func (r *RunHistoryRepository) FindByRun(_ context.Context, runID values.RunID) ([]*entities.RunSnapshot, error) {
	var matches []*entities.RunSnapshot
	for _, s := range r.cache.Values() {
		if s.RunID.Equals(runID) {
			matches = append(matches, s)
		}
	}
	return matches, nil
}

// Len returns the number of retained snapshots.
func (r *RunHistoryRepository) Len() int {
	return r.cache.Len()
}
