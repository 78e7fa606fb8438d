package entities

import (
	"fmt"
)

// CurrentSchemaVersion is the design state format written by this build.
const CurrentSchemaVersion = "1.0.0"

// DesignState is the aggregate root for one generation iteration.
// It is the authoritative, hashable snapshot every downstream gate trusts.
//
// Invariants:
// - Hash excludes itself and is computed over the canonical serialization
// - Once Hash is set the state is sealed and never mutated; a modify
//   produces a new state whose BaselineHash references the prior one
// - Seed is non-negative
type DesignState struct {
	SchemaVersion string         `json:"schemaVersion,omitempty"`
	Geometry      Geometry       `json:"geometry"`
	Program       DesignProgram  `json:"program"`
	Style         map[string]any `json:"style,omitempty"`
	Seed          int64          `json:"seed"`
	BaselineHash  string         `json:"baselineHash,omitempty"`
	Hash          string         `json:"hash,omitempty"`
}

// DesignProgram records which program lock the design was generated against.
type DesignProgram struct {
	LockHash     string  `json:"lockHash,omitempty"`
	BuildingType string  `json:"buildingType,omitempty"`
	TargetAreaM2 float64 `json:"targetAreaM2,omitempty"`
}

// FloorCount returns the number of levels in the geometry.
func (s *DesignState) FloorCount() int {
	return s.Geometry.FloorCount()
}

// IsSealed reports whether a hash has been written.
func (s *DesignState) IsSealed() bool {
	return s.Hash != ""
}

// Validate checks structural invariants that do not depend on hashing.
func (s *DesignState) Validate() error {
	if s.Seed < 0 {
		return fmt.Errorf("seed must be non-negative, got %d", s.Seed)
	}
	seen := make(map[string]bool, len(s.Geometry.Rooms))
	for i, r := range s.Geometry.Rooms {
		if r.ID == "" {
			return fmt.Errorf("room %d: id is required", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("room %q: duplicate id", r.ID)
		}
		seen[r.ID] = true
	}
	for i, l := range s.Geometry.Levels {
		if l.Index != i {
			return fmt.Errorf("level %d: index %d out of sequence", i, l.Index)
		}
	}
	return nil
}

// Clone returns a deep copy. The copy keeps the hash, so callers deriving a
// new iteration must reseal it.
func (s *DesignState) Clone() *DesignState {
	if s == nil {
		return nil
	}
	out := *s
	out.Geometry = s.Geometry.Clone()
	out.Style = copyMap(s.Style)
	return &out
}

// Derive starts a modify iteration: a mutable copy whose baseline is this
// state's hash. The receiver is left untouched.
func (s *DesignState) Derive() *DesignState {
	next := s.Clone()
	next.BaselineHash = s.Hash
	next.Hash = ""
	return next
}

func copyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = copyValue(v)
	}
	return dst
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
