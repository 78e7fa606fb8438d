package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/plumbline-dev/plumbline/internal/application/dto"
	apperrors "github.com/plumbline-dev/plumbline/internal/application/errors"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/services"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLoader struct {
	manifest *dto.RunManifest
	files    map[string][]byte
}

func (l *memoryLoader) LoadDocument(_ context.Context, path string) ([]byte, error) {
	data, ok := l.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: not found", path)
	}
	return data, nil
}

func (l *memoryLoader) LoadManifest(_ context.Context, _ string) (*dto.RunManifest, error) {
	return l.manifest, nil
}

func newRunValidator(t *testing.T, loader *memoryLoader, strict bool) (*RunValidator, *fakeHistory) {
	t.Helper()
	opts := dto.DefaultGateOptions()
	opts.Strict = strict
	svc, _, history, _ := newTestService(t, opts)
	preflight := NewPreflightService(svc.Hasher(), nil, &fakeImages{}, strict, nil)
	return NewRunValidator(loader, preflight, svc, strict, nil), history
}

func runFiles(t *testing.T) (map[string][]byte, *entities.DesignState) {
	t.Helper()
	h := services.NewStateHasher(nil)
	lock := testLock(t, h)
	state := testState(t, h, lock)
	return map[string][]byte{
		"state.json":     mustJSON(t, state),
		"lock.json":      mustJSON(t, lock),
		"artifacts.json": mustJSON(t, testArtifacts(t, h, state)),
	}, state
}

func Test_RunValidator_FullPipeline(t *testing.T) {
	files, state := runFiles(t)
	runID := values.NewRunID()
	loader := &memoryLoader{
		files:    files,
		manifest: &dto.RunManifest{RunID: runID.String(), State: "state.json", Lock: "lock.json", Artifacts: "artifacts.json", NoBlocking: true},
	}
	v, history := newRunValidator(t, loader, true)

	result, err := v.Validate(context.Background(), "run.yaml")

	require.NoError(t, err)
	assert.Equal(t, runID.String(), result.RunID)
	assert.Equal(t, state.Hash, result.StateHash)
	require.NotNil(t, result.Fingerprint)
	assert.Equal(t, []entities.Gate{
		entities.GatePreflight,
		entities.GateProgramCompliance,
		entities.GateProgramCompliance,
		entities.GateDrift,
		entities.GateFingerprint,
		entities.GateProgramCompliance,
	}, reportGates(result))
	assert.Equal(t, values.CheckpointPreCompose, result.Reports[len(result.Reports)-1].Checkpoint)
	assert.Len(t, history.snapshots, 5, "preflight is not part of the run history")
}

func Test_RunValidator_SpecOnly(t *testing.T) {
	files, _ := runFiles(t)
	loader := &memoryLoader{files: files, manifest: &dto.RunManifest{State: "state.json", Lock: "lock.json"}}
	v, _ := newRunValidator(t, loader, true)

	result, err := v.Validate(context.Background(), "run.yaml")

	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, []entities.Gate{entities.GatePreflight, entities.GateProgramCompliance}, reportGates(result))
	assert.NotEmpty(t, result.RunID)
}

func Test_RunValidator_StrictStopsAtFirstFailure(t *testing.T) {
	files, _ := runFiles(t)
	h := services.NewStateHasher(nil)
	lock := testLock(t, h)
	broken := unsealedState(lock.Hash)
	broken.Geometry.Levels = broken.Geometry.Levels[:1]
	broken.Geometry.Rooms = broken.Geometry.Rooms[:2]
	files["state.json"] = mustJSON(t, broken)

	loader := &memoryLoader{files: files, manifest: &dto.RunManifest{State: "state.json", Lock: "lock.json", Artifacts: "artifacts.json"}}

	t.Run("strict", func(t *testing.T) {
		v, _ := newRunValidator(t, loader, true)
		result, err := v.Validate(context.Background(), "run.yaml")

		var compErr *apperrors.ComplianceError
		require.ErrorAs(t, err, &compErr)
		assert.Equal(t, values.CheckpointPostSpec, compErr.Checkpoint)
		assert.False(t, result.Passed)
		assert.Len(t, result.Reports, 2)
	})

	t.Run("lenient_runs_everything", func(t *testing.T) {
		v, _ := newRunValidator(t, loader, false)
		result, err := v.Validate(context.Background(), "run.yaml")

		require.NoError(t, err)
		assert.False(t, result.Passed)
		assert.Len(t, result.Reports, 6)
	})
}

func Test_RunValidator_PreflightFailure(t *testing.T) {
	files, _ := runFiles(t)
	files["lock.json"] = []byte(`{"levelCount": 0}`)
	loader := &memoryLoader{files: files, manifest: &dto.RunManifest{State: "state.json", Lock: "lock.json"}}
	v, history := newRunValidator(t, loader, true)

	result, err := v.Validate(context.Background(), "run.yaml")

	var preErr *apperrors.PreflightError
	require.ErrorAs(t, err, &preErr)
	require.NotNil(t, result.Preflight)
	assert.False(t, result.Passed)
	assert.Empty(t, history.snapshots)
}

func Test_RunValidator_MissingInputs(t *testing.T) {
	loader := &memoryLoader{files: map[string][]byte{}, manifest: &dto.RunManifest{State: "state.json"}}
	v, _ := newRunValidator(t, loader, true)

	_, err := v.Validate(context.Background(), "run.yaml")
	assert.ErrorContains(t, err, "must name a state and a lock")

	loader.manifest.Lock = "lock.json"
	_, err = v.Validate(context.Background(), "run.yaml")
	assert.ErrorContains(t, err, "state.json: not found")
}

func reportGates(r *dto.RunResult) []entities.Gate {
	out := make([]entities.Gate, len(r.Reports))
	for i, rep := range r.Reports {
		out[i] = rep.Gate
	}
	return out
}
