package values

import (
	"strconv"
	"strings"
)

// ArtifactType names one panel of a presentation run.
// Types are open strings: unknown types are treated as visual, non-structural panels.
type ArtifactType string

const (
	ArtifactHero3D          ArtifactType = "hero_3d"
	ArtifactInterior3D      ArtifactType = "interior_3d"
	ArtifactAxonometric     ArtifactType = "axonometric"
	ArtifactElevationNorth  ArtifactType = "elevation_north"
	ArtifactElevationSouth  ArtifactType = "elevation_south"
	ArtifactElevationEast   ArtifactType = "elevation_east"
	ArtifactElevationWest   ArtifactType = "elevation_west"
	ArtifactSectionAA       ArtifactType = "section_aa"
	ArtifactSectionBB       ArtifactType = "section_bb"
	ArtifactFloorPlanGround ArtifactType = "floor_plan_ground"
	ArtifactFloorPlanFirst  ArtifactType = "floor_plan_first"
	ArtifactSitePlan        ArtifactType = "site_plan"
	ArtifactSiteDiagram     ArtifactType = "site_diagram"
	ArtifactMaterialPalette ArtifactType = "material_palette"
	ArtifactSchedule        ArtifactType = "schedule"
	ArtifactTitleBlock      ArtifactType = "title_block"
	ArtifactNotes           ArtifactType = "notes"
)

const floorPlanPrefix = "floor_plan_"

// ReferenceArtifactType is the panel the run fingerprint is extracted from.
const ReferenceArtifactType = ArtifactHero3D

// FloorPlanType returns the artifact type for the plan of the given level.
func FloorPlanType(level int) ArtifactType {
	switch level {
	case 0:
		return ArtifactFloorPlanGround
	case 1:
		return ArtifactFloorPlanFirst
	default:
		return ArtifactType(floorPlanPrefix + "level" + strconv.Itoa(level))
	}
}

func (t ArtifactType) normalized() string {
	return strings.ToLower(strings.TrimSpace(string(t)))
}

// IsVisual reports whether the panel depicts the design and can be compared visually.
func (t ArtifactType) IsVisual() bool {
	switch ArtifactType(t.normalized()) {
	case ArtifactSchedule, ArtifactTitleBlock, ArtifactNotes, ArtifactMaterialPalette:
		return false
	}
	return t.normalized() != ""
}

// IsReference reports whether this is the fingerprint reference panel.
func (t ArtifactType) IsReference() bool {
	return ArtifactType(t.normalized()) == ReferenceArtifactType
}

// IsElevation reports whether the panel is a facade elevation.
func (t ArtifactType) IsElevation() bool {
	return strings.HasPrefix(t.normalized(), "elevation_")
}

// IsSection reports whether the panel is a building section.
func (t ArtifactType) IsSection() bool {
	return strings.HasPrefix(t.normalized(), "section_")
}

// IsFloorPlan reports whether the panel is a per-level floor plan.
func (t ArtifactType) IsFloorPlan() bool {
	return strings.HasPrefix(t.normalized(), floorPlanPrefix)
}

// IsStructural reports whether edge-profile comparison against the reference is meaningful.
func (t ArtifactType) IsStructural() bool {
	switch ArtifactType(t.normalized()) {
	case ArtifactHero3D, ArtifactInterior3D, ArtifactAxonometric:
		return true
	}
	return t.IsElevation()
}

// IsLenient reports whether the panel is an inherently different rendering of
// the same design, so perceptual hashes are expected to diverge more.
func (t ArtifactType) IsLenient() bool {
	switch ArtifactType(t.normalized()) {
	case ArtifactSitePlan, ArtifactSiteDiagram:
		return true
	}
	return t.IsFloorPlan() || t.IsSection()
}

// UsesReferenceControl reports whether generation conditions on the
// reference image, which makes structural agreement more likely.
func (t ArtifactType) UsesReferenceControl() bool {
	switch ArtifactType(t.normalized()) {
	case ArtifactInterior3D, ArtifactAxonometric:
		return true
	}
	return false
}

// LevelIndex maps a floor plan type to its level index using the naming
// convention ground=0, first=1, levelN=N. The second value is false for
// anything that is not a floor plan or does not follow the convention.
func (t ArtifactType) LevelIndex() (int, bool) {
	name := t.normalized()
	if !strings.HasPrefix(name, floorPlanPrefix) {
		return 0, false
	}
	suffix := strings.TrimPrefix(name, floorPlanPrefix)
	switch suffix {
	case "ground":
		return 0, true
	case "first":
		return 1, true
	}
	if !strings.HasPrefix(suffix, "level") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(suffix, "level"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
