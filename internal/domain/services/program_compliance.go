package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// Violation codes raised by the program compliance gate.
const (
	CodeFloorCountMismatch   = "floor_count_mismatch"
	CodeSpaceCount           = "space_count"
	CodeAreaDeviation        = "area_deviation"
	CodeMissingLevel         = "missing_level"
	CodeUnexpectedLevel      = "unexpected_level"
	CodeInvariantFailed      = "invariant_failed"
	CodeArtifactStateHash    = "artifact_state_hash"
	CodeLevelMismatch        = "level_mismatch"
	CodeMissingLevelPlan     = "missing_level_plan"
	CodeUnrecognizedPlan     = "unrecognized_plan_type"
	CodeBuiltGeometryMissing = "built_geometry_missing"
	CodeAdjacencyUnresolved  = "adjacency_unresolved"
	CodeAdjacency            = "adjacency"
	CodeBuiltFloorCount      = "built_floor_count"
	CodeBuiltSpaceCount      = "built_space_count"
	CodeBuiltAreaDeviation   = "built_area_deviation"
	CodeStateHashInvalid     = "state_hash_invalid"
	CodeLockHashMismatch     = "lock_hash_mismatch"
	CodeSpaceWrongLevel      = "space_wrong_level"
)

// ComplianceOptions are the thresholds of the program compliance gate.
type ComplianceOptions struct {
	// AreaTolerance is the allowed relative deviation from a space's target area.
	AreaTolerance float64
	// BuiltAreaTolerance is the same for built-geometry re-validation.
	BuiltAreaTolerance float64
	// MaxProgramViolations applies unless the lock sets its own.
	MaxProgramViolations int
	// MaxLevelMismatches plan artifacts may map outside the lock as warnings.
	MaxLevelMismatches int
	// RequireBuiltGeometry turns a missing built model into a violation
	// when the lock has adjacency requirements.
	RequireBuiltGeometry bool
}

// DefaultComplianceOptions returns the standard thresholds.
func DefaultComplianceOptions() ComplianceOptions {
	return ComplianceOptions{
		AreaTolerance:      0.10,
		BuiltAreaTolerance: 0.15,
	}
}

// ProgramComplianceGate validates a design against its space program lock at
// the post-spec, post-render and pre-compose checkpoints.
//
// Every checkpoint returns a report whose Valid flag is true when the number
// of violations is within tolerance. Deciding whether an invalid report is
// fatal is up to the caller.
type ProgramComplianceGate struct {
	hasher     *StateHasher
	invariants *InvariantEvaluator
	opts       ComplianceOptions
	now        func() time.Time
}

// NewProgramComplianceGate creates the gate. A nil hasher selects SHA-256.
func NewProgramComplianceGate(hasher *StateHasher, opts ComplianceOptions) *ProgramComplianceGate {
	if hasher == nil {
		hasher = NewStateHasher(nil)
	}
	return &ProgramComplianceGate{
		hasher:     hasher,
		invariants: NewInvariantEvaluator(),
		opts:       opts,
		now:        time.Now,
	}
}

// Tolerance returns the number of violations a report may carry and still
// be valid. The lock's own limit wins over the configured one.
func (g *ProgramComplianceGate) Tolerance(lock *entities.SpaceProgramLock) int {
	if m := lock.Invariants.MaxProgramViolations; m != nil {
		return *m
	}
	return g.opts.MaxProgramViolations
}

// PostSpec checks the sealed design against the lock before rendering.
func (g *ProgramComplianceGate) PostSpec(state *entities.DesignState, lock *entities.SpaceProgramLock) *entities.ValidationReport {
	report := entities.NewValidationReport(entities.GateProgramCompliance, values.CheckpointPostSpec, g.now())
	geometry := &state.Geometry

	report.Check(state.FloorCount() == lock.LevelCount, entities.Violation{
		Code:     CodeFloorCountMismatch,
		Message:  fmt.Sprintf("design has %d floors, lock requires %d", state.FloorCount(), lock.LevelCount),
		Severity: values.SeverityCritical,
		Expected: lock.LevelCount,
		Actual:   state.FloorCount(),
	})

	for _, space := range lock.Spaces {
		g.checkSpace(report, geometry, space, g.opts.AreaTolerance, CodeSpaceCount, CodeAreaDeviation)
	}

	if lock.Invariants.ForbidUnexpectedLevels {
		for _, room := range geometry.Rooms {
			level, ok := room.LevelIndex()
			if !report.Check(ok, entities.Violation{
				Code:    CodeMissingLevel,
				Message: "room has no level metadata",
				Subject: room.ID,
			}) {
				continue
			}
			report.Check(lock.IsAllowedLevel(level), entities.Violation{
				Code:    CodeUnexpectedLevel,
				Message: fmt.Sprintf("room placed on level %d which the lock does not allow", level),
				Subject: room.ID,
				Actual:  level,
			})
		}
	}

	for _, result := range g.invariants.Evaluate(geometry, lock, lock.Invariants.Expressions) {
		report.Check(result.Passed, entities.Violation{
			Code:    CodeInvariantFailed,
			Message: result.Message,
			Subject: result.Expression,
		})
	}

	return g.finish(report, lock)
}

// PostRender validates the rendered artifact set against the lock. built is
// the geometry model recovered from the renders and may be nil.
func (g *ProgramComplianceGate) PostRender(
	state *entities.DesignState,
	lock *entities.SpaceProgramLock,
	artifacts entities.ArtifactSet,
	built *entities.Geometry,
) *entities.ValidationReport {
	report := g.postRender(state, lock, artifacts, built)
	return g.finish(report, lock)
}

func (g *ProgramComplianceGate) postRender(
	state *entities.DesignState,
	lock *entities.SpaceProgramLock,
	artifacts entities.ArtifactSet,
	built *entities.Geometry,
) *entities.ValidationReport {
	report := entities.NewValidationReport(entities.GateProgramCompliance, values.CheckpointPostRender, g.now())

	for _, a := range artifacts {
		report.Check(a.StateHash != "" && a.StateHash == state.Hash, entities.Violation{
			Code:     CodeArtifactStateHash,
			Message:  "artifact does not reference the design state",
			Subject:  a.Key(),
			Expected: state.Hash,
			Actual:   a.StateHash,
		})
	}

	g.checkPlanLevels(report, lock, artifacts)
	g.checkAdjacency(report, lock, built)

	if built != nil {
		report.Check(built.FloorCount() == lock.LevelCount, entities.Violation{
			Code:     CodeBuiltFloorCount,
			Message:  fmt.Sprintf("built model has %d floors, lock requires %d", built.FloorCount(), lock.LevelCount),
			Expected: lock.LevelCount,
			Actual:   built.FloorCount(),
		})
		for _, space := range lock.Spaces {
			g.checkSpace(report, built, space, g.opts.BuiltAreaTolerance, CodeBuiltSpaceCount, CodeBuiltAreaDeviation)
		}
	}
	return report
}

// PreCompose is the final gate before composition. It re-verifies hash
// integrity, checks that the design was generated against the active lock,
// then folds in a fresh post-render pass.
func (g *ProgramComplianceGate) PreCompose(
	state *entities.DesignState,
	lock *entities.SpaceProgramLock,
	artifacts entities.ArtifactSet,
	built *entities.Geometry,
) *entities.ValidationReport {
	report := entities.NewValidationReport(entities.GateProgramCompliance, values.CheckpointPreCompose, g.now())

	report.Check(g.hasher.VerifyHash(state), entities.Violation{
		Code:     CodeStateHashInvalid,
		Message:  "design state hash does not verify",
		Severity: values.SeverityCritical,
		Actual:   state.Hash,
	})
	report.Check(lock.Hash != "" && state.Program.LockHash == lock.Hash, entities.Violation{
		Code:     CodeLockHashMismatch,
		Message:  "design was not generated against the active program lock",
		Severity: values.SeverityCritical,
		Expected: lock.Hash,
		Actual:   state.Program.LockHash,
	})

	postRender := g.postRender(state, lock, artifacts, built)
	report.Merge(postRender)
	report.SetDetail("postRenderViolations", postRender.ViolationCount())

	return g.finish(report, lock)
}

func (g *ProgramComplianceGate) finish(report *entities.ValidationReport, lock *entities.SpaceProgramLock) *entities.ValidationReport {
	tolerance := g.Tolerance(lock)
	report.Valid = report.ViolationCount() <= tolerance
	report.SetDetail("tolerance", tolerance)
	return report
}

// checkSpace verifies count and area of one locked space in geometry.
func (g *ProgramComplianceGate) checkSpace(
	report *entities.ValidationReport,
	geometry *entities.Geometry,
	space entities.LockedSpace,
	tolerance float64,
	countCode, areaCode string,
) {
	candidates := ResolveSpace(geometry, space)

	onLevel := 0
	offLevel := 0
	for _, room := range candidates {
		if level, ok := room.LevelIndex(); ok && level == space.LockedLevel {
			onLevel++
		} else {
			offLevel++
		}
	}

	report.Check(onLevel >= space.Count, entities.Violation{
		Code:     countCode,
		Message:  fmt.Sprintf("found %d on level %d, lock requires %d", onLevel, space.LockedLevel, space.Count),
		Subject:  space.Name,
		Expected: space.Count,
		Actual:   onLevel,
	})
	if offLevel > 0 {
		report.AddWarning(entities.Violation{
			Code:    CodeSpaceWrongLevel,
			Message: fmt.Sprintf("%d matching rooms are not on locked level %d", offLevel, space.LockedLevel),
			Subject: space.Name,
		})
	}

	if space.TargetAreaM2 <= 0 {
		return
	}
	for _, room := range candidates {
		area := room.EffectiveArea()
		deviation := math.Abs(area-space.TargetAreaM2) / space.TargetAreaM2
		report.Check(deviation <= tolerance, entities.Violation{
			Code: areaCode,
			Message: fmt.Sprintf("area %.2fm² deviates %.0f%% from target %.2fm² (tolerance %.0f%%)",
				area, deviation*100, space.TargetAreaM2, tolerance*100),
			Severity: values.SeverityMedium,
			Subject:  room.ID,
			Expected: space.TargetAreaM2,
			Actual:   area,
		})
	}
}

// checkPlanLevels maps floor plan artifacts to levels and checks coverage.
func (g *ProgramComplianceGate) checkPlanLevels(report *entities.ValidationReport, lock *entities.SpaceProgramLock, artifacts entities.ArtifactSet) {
	covered := make(map[int]bool)
	mismatches := 0

	for _, a := range artifacts {
		if !a.Type.IsFloorPlan() {
			continue
		}
		level, ok := a.Type.LevelIndex()
		if !ok {
			report.AddWarning(entities.Violation{
				Code:    CodeUnrecognizedPlan,
				Message: fmt.Sprintf("plan type %q does not follow the level naming convention", a.Type),
				Subject: a.Key(),
			})
			continue
		}

		report.Checks++
		if level >= 0 && level < lock.LevelCount {
			covered[level] = true
			continue
		}

		mismatches++
		v := entities.Violation{
			Code:     CodeLevelMismatch,
			Message:  fmt.Sprintf("plan for level %d but the lock has %d levels", level, lock.LevelCount),
			Subject:  a.Key(),
			Expected: lock.LevelCount - 1,
			Actual:   level,
		}
		if mismatches <= g.opts.MaxLevelMismatches {
			report.AddWarning(v)
		} else {
			report.AddViolation(v)
		}
	}

	for _, level := range lock.LockedLevels() {
		report.Check(covered[level], entities.Violation{
			Code:     CodeMissingLevelPlan,
			Message:  fmt.Sprintf("no floor plan rendered for level %d", level),
			Subject:  string(values.FloorPlanType(level)),
			Expected: level,
		})
	}
}

// checkAdjacency validates adjacency requirements against the built model.
func (g *ProgramComplianceGate) checkAdjacency(report *entities.ValidationReport, lock *entities.SpaceProgramLock, built *entities.Geometry) {
	if len(lock.AdjacencyRequirements) == 0 {
		return
	}
	if built == nil {
		v := entities.Violation{
			Code:    CodeBuiltGeometryMissing,
			Message: fmt.Sprintf("%d adjacency requirements cannot be checked without a built geometry model", len(lock.AdjacencyRequirements)),
		}
		if g.opts.RequireBuiltGeometry {
			report.Check(false, v)
		} else {
			report.AddWarning(v)
		}
		return
	}

	for _, req := range lock.AdjacencyRequirements {
		subject := req.From + " ↔ " + req.To
		from := resolveByName(built, lock, req.From)
		to := resolveByName(built, lock, req.To)
		if !report.Check(len(from) > 0 && len(to) > 0, entities.Violation{
			Code:    CodeAdjacencyUnresolved,
			Message: "one side of the requirement has no matching room",
			Subject: subject,
		}) {
			continue
		}

		adjacent := anyAdjacent(from, to)
		want := req.EffectiveRelation() == entities.RelationAdjacent
		report.Check(adjacent == want, entities.Violation{
			Code:     CodeAdjacency,
			Message:  fmt.Sprintf("rooms must be %s", req.EffectiveRelation()),
			Severity: values.SeverityMedium,
			Subject:  subject,
			Expected: want,
			Actual:   adjacent,
		})
	}
}

func anyAdjacent(from, to []entities.Room) bool {
	for _, a := range from {
		for _, b := range to {
			if a.ID == b.ID {
				continue
			}
			sameLevel := true
			if la, ok := a.LevelIndex(); ok {
				if lb, ok := b.LevelIndex(); ok {
					sameLevel = la == lb
				}
			}
			if sameLevel && SharesEdge(a.Polygon, b.Polygon, AdjacencyTolerance) {
				return true
			}
		}
	}
	return false
}

func resolveByName(geometry *entities.Geometry, lock *entities.SpaceProgramLock, name string) []entities.Room {
	if space, ok := lock.FindSpace(name); ok {
		return ResolveSpace(geometry, *space)
	}
	return ResolveSpace(geometry, entities.LockedSpace{Name: name})
}

// ResolveSpace finds the rooms that realize a locked space: rooms listed in
// its instance IDs, or when none of those exist, rooms whose name or type
// contains the space name case-insensitively.
func ResolveSpace(geometry *entities.Geometry, space entities.LockedSpace) []entities.Room {
	if len(space.InstanceIDs) > 0 {
		ids := make(map[string]bool, len(space.InstanceIDs))
		for _, id := range space.InstanceIDs {
			ids[strings.TrimSpace(id)] = true
		}
		var byID []entities.Room
		for _, r := range geometry.Rooms {
			if ids[r.ID] {
				byID = append(byID, r)
			}
		}
		if len(byID) > 0 {
			return byID
		}
	}

	var byName []entities.Room
	for _, r := range geometry.Rooms {
		if r.Matches(space.Name) {
			byName = append(byName, r)
		}
	}
	return byName
}
