// Package repositories defines interfaces for domain persistence.
package repositories

import (
	"context"

	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// FingerprintRepository stores one fingerprint per run.
type FingerprintRepository interface {
	// Get returns the run's fingerprint or entities.ErrFingerprintNotSet.
	Get(ctx context.Context, runID values.RunID) (*entities.Fingerprint, error)

	// Set stores the fingerprint for fp.RunID. An existing fingerprint is only
	// replaced when regenerate is true; otherwise *entities.FingerprintExistsError
	// is returned.
	Set(ctx context.Context, fp *entities.Fingerprint, regenerate bool) error
}
