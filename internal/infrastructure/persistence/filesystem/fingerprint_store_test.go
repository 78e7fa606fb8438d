package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintStore_SetOnceAndLoad(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "fingerprints")
	store := NewFingerprintStore(dir)
	ctx := context.Background()
	runID := values.NewRunID()

	_, err := store.Get(ctx, runID)
	require.ErrorIs(t, err, entities.ErrFingerprintNotSet)

	fp := &entities.Fingerprint{
		RunID:               runID,
		ReferenceArtifactID: "hero",
		ReferenceHash:       "ahash:ff00",
		MaterialsPalette:    []string{"brick", "oak"},
		ColorPalette:        []string{"#aa3322", "#ffffff"},
		CreatedAt:           time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Set(ctx, fp, false))

	loaded, err := store.Get(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, fp.RunID, loaded.RunID)
	assert.Equal(t, fp.ReferenceHash, loaded.ReferenceHash)
	assert.Equal(t, fp.ColorPalette, loaded.ColorPalette)
	assert.True(t, fp.CreatedAt.Equal(loaded.CreatedAt))

	info, err := os.Stat(filepath.Join(dir, runID.String()+".yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFingerprintStore_RefusesOverwrite(t *testing.T) {
	t.Parallel()

	store := NewFingerprintStore(t.TempDir())
	ctx := context.Background()
	runID := values.NewRunID()

	require.NoError(t, store.Set(ctx, &entities.Fingerprint{RunID: runID, ReferenceArtifactID: "hero"}, false))

	err := store.Set(ctx, &entities.Fingerprint{RunID: runID, ReferenceArtifactID: "hero-v2"}, false)
	var exists *entities.FingerprintExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "hero", exists.ReferenceID)

	require.NoError(t, store.Set(ctx, &entities.Fingerprint{RunID: runID, ReferenceArtifactID: "hero-v2"}, true))
	loaded, err := store.Get(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, "hero-v2", loaded.ReferenceArtifactID)
}

func TestFingerprintStore_CorruptFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runID := values.NewRunID()
	require.NoError(t, os.WriteFile(filepath.Join(dir, runID.String()+".yaml"), []byte("runId: [unclosed"), 0o600))

	_, err := NewFingerprintStore(dir).Get(context.Background(), runID)
	assert.ErrorContains(t, err, "failed to parse fingerprint")
}
