// Package filesystem provides file-backed implementations of domain
// repositories.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/repositories"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// Ensure interface compliance
var _ repositories.FingerprintRepository = (*FingerprintStore)(nil)

// FingerprintStore keeps one YAML file per run under a directory, so the
// fingerprint extracted by one invocation is reused by the next.
type FingerprintStore struct {
	dir string
}

// NewFingerprintStore creates a store rooted at dir.
func NewFingerprintStore(dir string) *FingerprintStore {
	return &FingerprintStore{dir: dir}
}

// Dir returns the directory holding fingerprint files.
func (s *FingerprintStore) Dir() string {
	return s.dir
}

func (s *FingerprintStore) path(runID values.RunID) string {
	return filepath.Join(s.dir, runID.String()+".yaml")
}

// Get loads the run's fingerprint.
func (s *FingerprintStore) Get(_ context.Context, runID values.RunID) (*entities.Fingerprint, error) {
	//nolint:gosec // G304: file name is derived from a parsed RunID
	data, err := os.ReadFile(s.path(runID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, entities.ErrFingerprintNotSet
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fingerprint: %w", err)
	}

	var fp entities.Fingerprint
	if err := yaml.Unmarshal(data, &fp); err != nil {
		return nil, fmt.Errorf("failed to parse fingerprint %s: %w", s.path(runID), err)
	}
	return &fp, nil
}

// Set writes the fingerprint. Without regenerate the file is created
// exclusively, so an existing fingerprint is never replaced.
func (s *FingerprintStore) Set(ctx context.Context, fp *entities.Fingerprint, regenerate bool) error {
	//nolint:gosec // G301: 0o755 is standard for user data directories (~/.plumbline)
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create fingerprint directory: %w", err)
	}

	data, err := yaml.MarshalWithOptions(fp, yaml.IndentSequence(true))
	if err != nil {
		return fmt.Errorf("failed to marshal fingerprint to YAML: %w", err)
	}

	if regenerate {
		return os.WriteFile(s.path(fp.RunID), data, 0o600)
	}

	file, err := os.OpenFile(s.path(fp.RunID), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		existing, getErr := s.Get(ctx, fp.RunID)
		ref := ""
		if getErr == nil {
			ref = existing.ReferenceArtifactID
		}
		return &entities.FingerprintExistsError{RunID: fp.RunID.String(), ReferenceID: ref}
	}
	if err != nil {
		return fmt.Errorf("failed to create fingerprint file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write fingerprint: %w", err)
	}
	return file.Close()
}
