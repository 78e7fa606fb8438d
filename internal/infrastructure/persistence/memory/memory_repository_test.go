package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintRepository_SetOnce(t *testing.T) {
	repo := NewFingerprintRepository()
	ctx := context.Background()
	runID := values.NewRunID()

	_, err := repo.Get(ctx, runID)
	assert.ErrorIs(t, err, entities.ErrFingerprintNotSet)

	first := &entities.Fingerprint{RunID: runID, ReferenceArtifactID: "hero", ReferenceHash: "ahash:1"}
	require.NoError(t, repo.Set(ctx, first, false))

	second := &entities.Fingerprint{RunID: runID, ReferenceArtifactID: "hero-v2", ReferenceHash: "ahash:2"}
	err = repo.Set(ctx, second, false)
	var exists *entities.FingerprintExistsError
	require.True(t, errors.As(err, &exists))
	assert.Equal(t, "hero", exists.ReferenceID)

	found, err := repo.Get(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, "ahash:1", found.ReferenceHash)

	// Regeneration replaces the fingerprint
	require.NoError(t, repo.Set(ctx, second, true))
	found, err = repo.Get(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, "ahash:2", found.ReferenceHash)
}

func TestRunHistoryRepository_EvictsOldest(t *testing.T) {
	repo, err := NewRunHistoryRepository(3)
	require.NoError(t, err)
	ctx := context.Background()

	runA, runB := values.NewRunID(), values.NewRunID()
	now := time.Now()
	for i := 0; i < 5; i++ {
		run := runA
		if i%2 == 1 {
			run = runB
		}
		require.NoError(t, repo.Record(ctx, &entities.RunSnapshot{
			RunID:      run,
			Gate:       entities.GateDrift,
			Violations: i,
			RecordedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	assert.Equal(t, 3, repo.Len())

	recent, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []int{4, 3, 2}, []int{recent[0].Violations, recent[1].Violations, recent[2].Violations})

	limited, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, 4, limited[0].Violations)

	forA, err := repo.FindByRun(ctx, runA)
	require.NoError(t, err)
	require.Len(t, forA, 2)
	assert.Equal(t, 2, forA[0].Violations)
	assert.Equal(t, 4, forA[1].Violations)
}

func TestRunHistoryRepository_Defaults(t *testing.T) {
	repo, err := NewRunHistoryRepository(0)
	require.NoError(t, err)

	assert.Error(t, repo.Record(context.Background(), nil))
	assert.Equal(t, 0, repo.Len())
}
