package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/similarity"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// Violation codes raised by the drift gates.
const (
	CodeDriftStateHash     = "drift_state_hash"
	CodeInvalidSeed        = "invalid_seed"
	CodeGeometrySubsetHash = "geometry_subset_hash"
	CodeGeometryHashDrift  = "geometry_hash_drift"
	CodeEmptyPromptHash    = "empty_prompt_hash"
	CodeSeedChanged        = "seed_changed"
	CodeGeometryChanged    = "geometry_changed"
	CodeLockChanged        = "lock_changed"
	CodeBaselineMismatch   = "baseline_mismatch"
	CodeVisualDrift        = "visual_drift"
	CodeByteDrift          = "byte_drift"
	CodeNoComparableData   = "no_comparable_data"
	CodeEdgeDrift          = "edge_drift"
	CodeEdgeDataMissing    = "edge_data_missing"
)

// DriftOptions are the thresholds of the drift gates.
type DriftOptions struct {
	// Threshold is the drift score above which a report is invalid.
	Threshold float64
	// MinSimilarity is the luminance MSE similarity floor for modify drift.
	MinSimilarity float64
	// MaxHammingDistance bounds the byte-stream hash distance for modify drift.
	MaxHammingDistance int
	// AllowSeedChange relaxes seed stability across modify iterations.
	AllowSeedChange bool
	// AlignmentThreshold is the minimum edge F1 for rendered views.
	AlignmentThreshold float64
	// AlignmentTolerance is the edge dilation radius in grid pixels.
	AlignmentTolerance int
}

// DefaultDriftOptions returns the standard thresholds.
func DefaultDriftOptions() DriftOptions {
	return DriftOptions{
		Threshold:          0.10,
		MinSimilarity:      0.90,
		MaxHammingDistance: 10,
		AlignmentThreshold: similarity.DefaultAlignmentThreshold,
		AlignmentTolerance: similarity.DefaultAlignmentTolerance,
	}
}

// DriftGate detects divergence between artifacts of one run and between
// modify iterations.
//
// Score = violations / checks performed, 0 when nothing applied. A report is
// valid only when it has no violations and its score is within threshold.
type DriftGate struct {
	hasher *StateHasher
	opts   DriftOptions
	now    func() time.Time
}

// NewDriftGate creates the gate. A nil hasher selects SHA-256.
func NewDriftGate(hasher *StateHasher, opts DriftOptions) *DriftGate {
	if hasher == nil {
		hasher = NewStateHasher(nil)
	}
	return &DriftGate{hasher: hasher, opts: opts, now: time.Now}
}

// PreCompose checks that every artifact of a run depicts the same sealed state.
func (g *DriftGate) PreCompose(state *entities.DesignState, artifacts entities.ArtifactSet) *entities.ValidationReport {
	report := entities.NewValidationReport(entities.GateDrift, values.CheckpointPreCompose, g.now())

	geometryHash, geomErr := g.hasher.GeometryHash(&state.Geometry)
	referenceHash := ""
	referenceID := ""

	for _, a := range artifacts {
		subject := a.Key()

		report.Check(a.StateHash == state.Hash, entities.Violation{
			Code:     CodeDriftStateHash,
			Message:  "artifact references a different design state",
			Severity: values.SeverityCritical,
			Subject:  subject,
			Expected: state.Hash,
			Actual:   a.StateHash,
		})

		seed, hasSeed := a.SeedValue()
		report.Check(hasSeed && seed >= 0, entities.Violation{
			Code:    CodeInvalidSeed,
			Message: "seed must be a non-negative number",
			Subject: subject,
			Actual:  a.Seed,
		})

		if a.GeometrySubsetHash != nil {
			msg := "asserted geometry hash does not match the state's geometry"
			if geomErr != nil {
				msg = fmt.Sprintf("state geometry could not be hashed: %v", geomErr)
			}
			report.Check(geomErr == nil && *a.GeometrySubsetHash == geometryHash, entities.Violation{
				Code:     CodeGeometrySubsetHash,
				Message:  msg,
				Subject:  subject,
				Expected: geometryHash,
				Actual:   *a.GeometrySubsetHash,
			})
		}

		if a.GeometryHash != "" {
			if referenceHash == "" {
				referenceHash, referenceID = a.GeometryHash, subject
			} else {
				report.Check(a.GeometryHash == referenceHash, entities.Violation{
					Code:     CodeGeometryHashDrift,
					Message:  fmt.Sprintf("geometry hash differs from reference artifact %s", referenceID),
					Subject:  subject,
					Expected: referenceHash,
					Actual:   a.GeometryHash,
				})
			}
		}

		if a.PromptHash != nil {
			report.Check(*a.PromptHash != "", entities.Violation{
				Code:     CodeEmptyPromptHash,
				Message:  "prompt identifier is empty",
				Severity: values.SeverityMedium,
				Subject:  subject,
			})
		}
	}

	return g.finish(report)
}

// ModifyInput is one baseline/current pair to compare. Samples are keyed by
// artifact ID; artifacts present on only one side are not compared.
type ModifyInput struct {
	Baseline        *entities.DesignState
	Current         *entities.DesignState
	BaselineSamples map[string]similarity.Sample
	CurrentSamples  map[string]similarity.Sample
}

// Modify compares a new iteration against its sealed baseline.
func (g *DriftGate) Modify(in ModifyInput) *entities.ValidationReport {
	report := entities.NewValidationReport(entities.GateModifyDrift, "", g.now())
	base, cur := in.Baseline, in.Current

	if g.opts.AllowSeedChange {
		if base.Seed != cur.Seed {
			report.AddWarning(entities.Violation{
				Code:     CodeSeedChanged,
				Message:  "seed changed; allowed by configuration",
				Expected: base.Seed,
				Actual:   cur.Seed,
			})
		}
	} else {
		report.Check(base.Seed == cur.Seed, entities.Violation{
			Code:     CodeSeedChanged,
			Message:  "seed changed between iterations",
			Expected: base.Seed,
			Actual:   cur.Seed,
		})
	}

	baseGeom, errA := g.hasher.GeometryHash(&base.Geometry)
	curGeom, errB := g.hasher.GeometryHash(&cur.Geometry)
	report.Check(errA == nil && errB == nil && baseGeom == curGeom, entities.Violation{
		Code:     CodeGeometryChanged,
		Message:  "geometry changed between iterations",
		Severity: values.SeverityCritical,
		Expected: baseGeom,
		Actual:   curGeom,
	})

	report.Check(base.Program.LockHash == cur.Program.LockHash, entities.Violation{
		Code:     CodeLockChanged,
		Message:  "program lock changed between iterations",
		Severity: values.SeverityCritical,
		Expected: base.Program.LockHash,
		Actual:   cur.Program.LockHash,
	})

	if cur.BaselineHash != "" {
		report.Check(cur.BaselineHash == base.Hash, entities.Violation{
			Code:     CodeBaselineMismatch,
			Message:  "iteration does not reference this baseline",
			Expected: base.Hash,
			Actual:   cur.BaselineHash,
		})
	}

	similarities := make(map[string]float64)
	for _, id := range sortedKeys(in.BaselineSamples) {
		before := in.BaselineSamples[id]
		after, ok := in.CurrentSamples[id]
		if !ok {
			continue
		}
		g.compareSamples(report, id, before, after, similarities)
	}
	if len(similarities) > 0 {
		report.SetDetail("similarity", similarities)
	}

	return g.finish(report)
}

func (g *DriftGate) compareSamples(
	report *entities.ValidationReport,
	id string,
	before, after similarity.Sample,
	similarities map[string]float64,
) {
	if before.HasPixels() && after.HasPixels() {
		sim, _ := similarity.MSESimilarity(before.Image, after.Image)
		similarities[id] = sim
		report.Check(sim >= g.opts.MinSimilarity, entities.Violation{
			Code:     CodeVisualDrift,
			Message:  fmt.Sprintf("luminance similarity %.3f below %.3f", sim, g.opts.MinSimilarity),
			Subject:  id,
			Expected: g.opts.MinSimilarity,
			Actual:   sim,
		})
		return
	}
	if before.HasBytes() && after.HasBytes() {
		a, _ := similarity.ByteStreamHash(before.Bytes)
		b, _ := similarity.ByteStreamHash(after.Bytes)
		d := similarity.HammingDistance(a, b)
		report.Check(d <= g.opts.MaxHammingDistance, entities.Violation{
			Code:     CodeByteDrift,
			Message:  fmt.Sprintf("byte-stream hash distance %d exceeds %d", d, g.opts.MaxHammingDistance),
			Subject:  id,
			Expected: g.opts.MaxHammingDistance,
			Actual:   d,
		})
		return
	}
	report.AddWarning(entities.Violation{
		Code:    CodeNoComparableData,
		Message: "no pixel data or byte stream available on both sides",
		Subject: id,
	})
}

// AlignmentView pairs a rendered view with the geometry line art it was
// conditioned on.
type AlignmentView struct {
	Name    string
	Render  similarity.Sample
	Control similarity.Sample
}

// EdgeAlignment checks that rendered views keep the edges of their geometry
// control images. Views lacking either image are skipped with a warning.
// The report score is the mean F1 of the compared views.
func (g *DriftGate) EdgeAlignment(views []AlignmentView) *entities.ValidationReport {
	report := entities.NewValidationReport(entities.GateEdgeAlignment, "", g.now())
	metrics := make(map[string]similarity.EdgeAlignment)
	var sum float64

	for _, v := range views {
		alignment, ok := similarity.AlignEdges(v.Render.Image, v.Control.Image, g.opts.AlignmentTolerance)
		if !ok {
			report.AddWarning(entities.Violation{
				Code:    CodeEdgeDataMissing,
				Message: "render or control image unavailable; view skipped",
				Subject: v.Name,
			})
			continue
		}
		metrics[v.Name] = alignment
		sum += alignment.F1
		report.Check(alignment.F1 >= g.opts.AlignmentThreshold, entities.Violation{
			Code: CodeEdgeDrift,
			Message: fmt.Sprintf("edge F1 %.3f below %.3f (precision %.3f, recall %.3f)",
				alignment.F1, g.opts.AlignmentThreshold, alignment.Precision, alignment.Recall),
			Subject:  v.Name,
			Expected: g.opts.AlignmentThreshold,
			Actual:   alignment.F1,
		})
	}

	mean := 0.0
	if len(metrics) > 0 {
		mean = sum / float64(len(metrics))
		report.SetDetail("views", metrics)
	}
	report.SetScore(mean, g.opts.AlignmentThreshold)
	report.Valid = report.ViolationCount() == 0
	return report
}

func (g *DriftGate) finish(report *entities.ValidationReport) *entities.ValidationReport {
	score := DriftScore(report)
	report.SetScore(score, g.opts.Threshold)
	report.Valid = report.ViolationCount() == 0 && score <= g.opts.Threshold
	return report
}

// DriftScore is violations divided by checks, 0 when no check ran.
func DriftScore(report *entities.ValidationReport) float64 {
	if report.Checks == 0 {
		return 0
	}
	return float64(report.ViolationCount()) / float64(report.Checks)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
