package repositories

import (
	"context"

	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// RunHistoryRepository is a bounded audit log of gate calls. The oldest
// snapshots are evicted first.
type RunHistoryRepository interface {
	// Record appends a snapshot.
	Record(ctx context.Context, snapshot *entities.RunSnapshot) error

	// Recent returns up to limit snapshots, newest first. limit <= 0 returns all.
	Recent(ctx context.Context, limit int) ([]*entities.RunSnapshot, error)

	// FindByRun returns the retained snapshots of one run, oldest first.
	FindByRun(ctx context.Context, runID values.RunID) ([]*entities.RunSnapshot, error)
}
