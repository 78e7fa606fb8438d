// Package memory provides in-memory implementations of domain repositories.
package memory

import (
	"context"
	"sync"

	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/repositories"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// Ensure interface compliance
var _ repositories.FingerprintRepository = (*FingerprintRepository)(nil)

// FingerprintRepository keeps one fingerprint per run in memory.
type FingerprintRepository struct {
	fingerprints map[values.RunID]*entities.Fingerprint
	mu           sync.RWMutex
}

// NewFingerprintRepository creates an empty repository.
func NewFingerprintRepository() *FingerprintRepository {
	return &FingerprintRepository{
		fingerprints: make(map[values.RunID]*entities.Fingerprint),
	}
}

// Get returns the run's fingerprint.
func (r *FingerprintRepository) Get(_ context.Context, runID values.RunID) (*entities.Fingerprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fp, ok := r.fingerprints[runID]
	if !ok {
		return nil, entities.ErrFingerprintNotSet
	}
	return fp, nil
}

// Set stores a fingerprint, refusing to overwrite unless regenerate is set.
func (r *FingerprintRepository) Set(_ context.Context, fp *entities.Fingerprint, regenerate bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.fingerprints[fp.RunID]; ok && !regenerate {
		return &entities.FingerprintExistsError{
			RunID:       fp.RunID.String(),
			ReferenceID: existing.ReferenceArtifactID,
		}
	}
	r.fingerprints[fp.RunID] = fp
	return nil
}
