package entities

import (
	"encoding/json"
	"fmt"
)

// CorrectionKind is the tag of a CorrectionAction.
type CorrectionKind string

const (
	CorrectionTranslate         CorrectionKind = "translate"
	CorrectionResize            CorrectionKind = "resize"
	CorrectionSwap              CorrectionKind = "swap"
	CorrectionReorient          CorrectionKind = "reorient"
	CorrectionCreateRooms       CorrectionKind = "createRooms"
	CorrectionDefineCirculation CorrectionKind = "defineCirculation"
	CorrectionAlignWetRooms     CorrectionKind = "alignWetRooms"
	CorrectionAddRoom           CorrectionKind = "addRoom"
	CorrectionRemoveRoom        CorrectionKind = "removeRoom"
	CorrectionAdjustDimensions  CorrectionKind = "adjustDimensions"
	CorrectionAddWalls          CorrectionKind = "addWalls"
	CorrectionAddOpenings       CorrectionKind = "addOpenings"
)

// KnownCorrectionKinds lists every kind the corrector handles.
var KnownCorrectionKinds = []CorrectionKind{
	CorrectionTranslate,
	CorrectionResize,
	CorrectionSwap,
	CorrectionReorient,
	CorrectionCreateRooms,
	CorrectionDefineCirculation,
	CorrectionAlignWetRooms,
	CorrectionAddRoom,
	CorrectionRemoveRoom,
	CorrectionAdjustDimensions,
	CorrectionAddWalls,
	CorrectionAddOpenings,
}

// IsKnown reports whether the kind belongs to the closed correction set.
func (k CorrectionKind) IsKnown() bool {
	for _, known := range KnownCorrectionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// CorrectionAction is a single geometry correction proposed by the
// constraint reasoner. Kind selects which parameters are meaningful:
//
//	translate          Target, DX, DY
//	resize             Target, ScaleX, ScaleY
//	swap               Target, With
//	reorient           Target (no-op)
//	createRooms        Rooms
//	addRoom            Rooms (first entry) or Target as the new room name
//	removeRoom         Target
//	adjustDimensions   Target, TargetAreaM2
//	defineCirculation  Paths
//	addWalls           Walls
//	addOpenings        Openings
//	alignWetRooms      Axis ("x" or "y", default "x")
type CorrectionAction struct {
	Kind         CorrectionKind    `json:"type"`
	Target       string            `json:"target,omitempty"`
	With         string            `json:"with,omitempty"`
	DX           float64           `json:"dx,omitempty"`
	DY           float64           `json:"dy,omitempty"`
	ScaleX       float64           `json:"scaleX,omitempty"`
	ScaleY       float64           `json:"scaleY,omitempty"`
	TargetAreaM2 float64           `json:"targetAreaM2,omitempty"`
	Level        *int              `json:"level,omitempty"`
	Rooms        []Room            `json:"rooms,omitempty"`
	Paths        []CirculationPath `json:"paths,omitempty"`
	Walls        []Wall            `json:"walls,omitempty"`
	Openings     []Opening         `json:"openings,omitempty"`
	Axis         string            `json:"axis,omitempty"`
	Reason       string            `json:"reason,omitempty"`
}

func (a CorrectionAction) String() string {
	if a.Target == "" {
		return string(a.Kind)
	}
	return fmt.Sprintf("%s(%s)", a.Kind, a.Target)
}

// ReasoningRequest is one submission to the constraint reasoner.
// Constraints are opaque to plumbline and forwarded verbatim.
type ReasoningRequest struct {
	Pass        int             `json:"pass"`
	Constraints json.RawMessage `json:"constraints"`
	Geometry    Geometry        `json:"geometry"`
}

// ReasoningResult is the reasoner's verdict on one geometry candidate.
// Score is on a 0..100 scale.
type ReasoningResult struct {
	Passed      bool               `json:"passed"`
	Score       float64            `json:"score"`
	Violations  []Violation        `json:"violations,omitempty"`
	Corrections []CorrectionAction `json:"corrections,omitempty"`
}
