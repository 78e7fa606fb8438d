package entities

import (
	"fmt"
	"strings"
)

// SpaceProgramLock is an aggregate root holding the enumerated contract of
// required spaces a design must satisfy. Created once from program intake and
// read-only afterwards.
//
// Invariants:
// - LevelCount must be at least 1
// - Every space's LockedLevel lies in [0, LevelCount)
// - Every space's Count is at least 1
type SpaceProgramLock struct {
	LevelCount            int                    `json:"levelCount"`
	Spaces                []LockedSpace          `json:"spaces"`
	AdjacencyRequirements []AdjacencyRequirement `json:"adjacencyRequirements,omitempty"`
	Invariants            LockInvariants         `json:"invariants"`
	Hash                  string                 `json:"hash,omitempty"`
}

// LockedSpace is one required space in the program.
type LockedSpace struct {
	Name         string   `json:"name"`
	LockedLevel  int      `json:"lockedLevel"`
	Count        int      `json:"count"`
	TargetAreaM2 float64  `json:"targetAreaM2,omitempty"`
	InstanceIDs  []string `json:"instanceIds,omitempty"`
}

// AdjacencyRelation names how two spaces must relate.
type AdjacencyRelation string

const (
	// RelationAdjacent requires a shared wall between the two spaces.
	RelationAdjacent AdjacencyRelation = "adjacent"
	// RelationSeparate forbids a shared wall between the two spaces.
	RelationSeparate AdjacencyRelation = "separate"
)

// AdjacencyRequirement constrains the relation between two locked spaces.
type AdjacencyRequirement struct {
	From     string            `json:"from"`
	To       string            `json:"to"`
	Relation AdjacencyRelation `json:"relation,omitempty"`
}

// EffectiveRelation defaults an unset relation to adjacent.
func (a AdjacencyRequirement) EffectiveRelation() AdjacencyRelation {
	if a.Relation == "" {
		return RelationAdjacent
	}
	return a.Relation
}

// LockInvariants are global rules attached to the lock.
//
// Expressions are boolean expr-lang programs evaluated against the design's
// rooms, levels, levelCount and totalArea. Each false or failing expression
// is one violation.
type LockInvariants struct {
	ForbidUnexpectedLevels bool     `json:"forbidUnexpectedLevels,omitempty"`
	AllowedLevels          []int    `json:"allowedLevels,omitempty"`
	MaxProgramViolations   *int     `json:"maxProgramViolations,omitempty"`
	Expressions            []string `json:"expressions,omitempty"`
}

// IsAllowedLevel reports whether a room may sit on the given level.
// Without an explicit allow-list the locked range [0, LevelCount) applies.
func (l *SpaceProgramLock) IsAllowedLevel(level int) bool {
	if len(l.Invariants.AllowedLevels) > 0 {
		for _, a := range l.Invariants.AllowedLevels {
			if a == level {
				return true
			}
		}
		return false
	}
	return level >= 0 && level < l.LevelCount
}

// LockedLevels returns the distinct levels named by the lock, in ascending order.
func (l *SpaceProgramLock) LockedLevels() []int {
	levels := make([]int, 0, l.LevelCount)
	for i := 0; i < l.LevelCount; i++ {
		levels = append(levels, i)
	}
	return levels
}

// FindSpace looks up a locked space by case-insensitive name.
func (l *SpaceProgramLock) FindSpace(name string) (*LockedSpace, bool) {
	for i := range l.Spaces {
		if strings.EqualFold(l.Spaces[i].Name, name) {
			return &l.Spaces[i], true
		}
	}
	return nil, false
}

// Validate checks lock invariants.
func (l *SpaceProgramLock) Validate() error {
	if l.LevelCount < 1 {
		return fmt.Errorf("levelCount must be at least 1, got %d", l.LevelCount)
	}
	for i, s := range l.Spaces {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("space %d: name is required", i)
		}
		if s.Count < 1 {
			return fmt.Errorf("space %q: count must be at least 1", s.Name)
		}
		if s.LockedLevel < 0 || s.LockedLevel >= l.LevelCount {
			return fmt.Errorf("space %q: locked level %d outside 0..%d", s.Name, s.LockedLevel, l.LevelCount-1)
		}
		if s.TargetAreaM2 < 0 {
			return fmt.Errorf("space %q: target area must be non-negative", s.Name)
		}
	}
	if m := l.Invariants.MaxProgramViolations; m != nil && *m < 0 {
		return fmt.Errorf("maxProgramViolations must be non-negative, got %d", *m)
	}
	return nil
}
