package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/application/ports"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/services"
	"github.com/plumbline-dev/plumbline/internal/domain/similarity"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
	"github.com/stretchr/testify/require"
)

// ===== FAKES =====

type fakeFingerprints struct {
	mu   sync.Mutex
	byID map[string]*entities.Fingerprint
	sets int
}

func newFakeFingerprints() *fakeFingerprints {
	return &fakeFingerprints{byID: make(map[string]*entities.Fingerprint)}
}

func (f *fakeFingerprints) Get(_ context.Context, runID values.RunID) (*entities.Fingerprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fp, ok := f.byID[runID.String()]
	if !ok {
		return nil, entities.ErrFingerprintNotSet
	}
	return fp, nil
}

func (f *fakeFingerprints) Set(_ context.Context, fp *entities.Fingerprint, regenerate bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[fp.RunID.String()]; ok && !regenerate {
		return &entities.FingerprintExistsError{RunID: fp.RunID.String(), ReferenceID: fp.ReferenceArtifactID}
	}
	f.byID[fp.RunID.String()] = fp
	f.sets++
	return nil
}

type fakeHistory struct {
	snapshots []*entities.RunSnapshot
}

func (h *fakeHistory) Record(_ context.Context, s *entities.RunSnapshot) error {
	h.snapshots = append(h.snapshots, s)
	return nil
}

func (h *fakeHistory) Recent(_ context.Context, limit int) ([]*entities.RunSnapshot, error) {
	n := min(limit, len(h.snapshots))
	out := make([]*entities.RunSnapshot, 0, n)
	for i := len(h.snapshots) - 1; i >= len(h.snapshots)-n; i-- {
		out = append(out, h.snapshots[i])
	}
	return out, nil
}

func (h *fakeHistory) FindByRun(_ context.Context, runID values.RunID) ([]*entities.RunSnapshot, error) {
	var out []*entities.RunSnapshot
	for _, s := range h.snapshots {
		if s.RunID.Equals(runID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (h *fakeHistory) gates() []entities.Gate {
	out := make([]entities.Gate, len(h.snapshots))
	for i, s := range h.snapshots {
		out[i] = s.Gate
	}
	return out
}

// fakeImages serves samples from memory; unknown refs are unavailable.
type fakeImages struct {
	samples map[string]similarity.Sample
	exists  map[string]bool
}

func (f *fakeImages) Resolve(_ context.Context, ref string) (similarity.Sample, error) {
	s, ok := f.samples[ref]
	if !ok {
		return similarity.Sample{}, fmt.Errorf("%s: %w", ref, ports.ErrImageUnavailable)
	}
	return s, nil
}

func (f *fakeImages) Exists(_ context.Context, ref string) bool {
	return f.exists[ref]
}

type fakeMetrics struct {
	reports     int
	decisions   []values.RunAction
	corrections []values.CorrectionStatus
}

func (m *fakeMetrics) ObserveReport(*entities.ValidationReport) { m.reports++ }

func (m *fakeMetrics) ObserveRetryDecision(a values.RunAction) {
	m.decisions = append(m.decisions, a)
}

func (m *fakeMetrics) ObserveCorrection(s values.CorrectionStatus, _ int) {
	m.corrections = append(m.corrections, s)
}

type scriptedReasoner struct {
	results []*entities.ReasoningResult
	calls   int
}

func (r *scriptedReasoner) Evaluate(_ context.Context, _ entities.ReasoningRequest) (*entities.ReasoningResult, error) {
	i := min(r.calls, len(r.results)-1)
	r.calls++
	return r.results[i], nil
}

// ===== FIXTURES =====

func testLock(t *testing.T, h *services.StateHasher) *entities.SpaceProgramLock {
	t.Helper()
	lock, err := h.SealLock(&entities.SpaceProgramLock{
		LevelCount: 2,
		Spaces: []entities.LockedSpace{
			{Name: "kitchen", LockedLevel: 0, Count: 1, TargetAreaM2: 12},
			{Name: "living", LockedLevel: 0, Count: 1, TargetAreaM2: 20},
			{Name: "bedroom", LockedLevel: 1, Count: 2, TargetAreaM2: 12},
		},
	})
	require.NoError(t, err)
	return lock
}

func unsealedState(lockHash string) *entities.DesignState {
	return &entities.DesignState{
		SchemaVersion: entities.CurrentSchemaVersion,
		Seed:          11,
		Program:       entities.DesignProgram{LockHash: lockHash},
		Geometry: entities.Geometry{
			Levels: []entities.Level{{Index: 0, Name: "ground"}, {Index: 1, Name: "first"}},
			Rooms: []entities.Room{
				{ID: "k1", Name: "Kitchen", Type: "kitchen", Level: entities.IntPtr(0), Polygon: entities.Rectangle(entities.Point{}, 4, 3)},
				{ID: "l1", Name: "Living Room", Type: "living", Level: entities.IntPtr(0), Polygon: entities.Rectangle(entities.Point{X: 4}, 5, 4)},
				{ID: "b1", Name: "Bedroom 1", Type: "bedroom", Level: entities.IntPtr(1), Polygon: entities.Rectangle(entities.Point{}, 4, 3)},
				{ID: "b2", Name: "Bedroom 2", Type: "bedroom", Level: entities.IntPtr(1), Polygon: entities.Rectangle(entities.Point{X: 4}, 4, 3)},
			},
		},
		Style: map[string]any{"massing": "two-bar", "materials": []any{"brick", "oak"}},
	}
}

func testState(t *testing.T, h *services.StateHasher, lock *entities.SpaceProgramLock) *entities.DesignState {
	t.Helper()
	state, err := h.SealState(unsealedState(lock.Hash))
	require.NoError(t, err)
	return state
}

func testArtifacts(t *testing.T, h *services.StateHasher, state *entities.DesignState) entities.ArtifactSet {
	t.Helper()
	geom, err := h.GeometryHash(&state.Geometry)
	require.NoError(t, err)
	return entities.ArtifactSet{
		{ID: "hero", Type: values.ArtifactHero3D, Seed: entities.Int64Ptr(11), ImageRef: "hero.png", StateHash: state.Hash, GeometryHash: geom},
		{ID: "plan-0", Type: values.ArtifactFloorPlanGround, Seed: entities.Int64Ptr(11), StateHash: state.Hash, GeometryHash: geom},
		{ID: "palette", Type: values.ArtifactMaterialPalette, Seed: entities.Int64Ptr(11), StateHash: state.Hash, GeometryHash: geom},
	}
}

func newTestService(t *testing.T, opts dto.GateOptions) (*ConsistencyService, *fakeFingerprints, *fakeHistory, *fakeMetrics) {
	t.Helper()
	fps := newFakeFingerprints()
	history := &fakeHistory{}
	metrics := &fakeMetrics{}
	svc, err := NewConsistencyService(opts, fps, history, &fakeImages{}, metrics, nil)
	require.NoError(t, err)
	return svc, fps, history, metrics
}
