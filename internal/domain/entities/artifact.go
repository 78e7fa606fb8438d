package entities

import (
	"fmt"

	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// Artifact is one rendered panel of a run. Artifacts are never mutated:
// a retry produces a new Artifact that replaces the prior one.
//
// Optional assertions are pointers; nil means the renderer made no claim
// and the corresponding drift check is not performed.
type Artifact struct {
	ID              string              `json:"id"`
	Type            values.ArtifactType `json:"type"`
	Seed            *int64              `json:"seed,omitempty"`
	ImageRef        string              `json:"imageRef,omitempty"`
	ControlImageRef string              `json:"controlImageRef,omitempty"`
	StateHash       string              `json:"stateHash"`

	// GeometryHash is the canonical geometry hash the renderer worked from.
	// All artifacts of a run must agree on it.
	GeometryHash string `json:"geometryHash,omitempty"`
	// GeometrySubsetHash, when asserted, must equal the hash of the state's
	// geometry section.
	GeometrySubsetHash *string `json:"geometrySubsetHash,omitempty"`
	// PromptHash, when asserted, must be non-empty.
	PromptHash *string `json:"promptHash,omitempty"`
	PromptLock string  `json:"promptLock,omitempty"`
}

// Key returns the identity used for deterministic estimates and reporting.
func (a *Artifact) Key() string {
	if a.ID != "" {
		return a.ID
	}
	return string(a.Type)
}

// SeedValue returns the seed and whether one was supplied.
func (a *Artifact) SeedValue() (int64, bool) {
	if a.Seed == nil {
		return 0, false
	}
	return *a.Seed, true
}

// Validate checks the artifact's structural invariants.
func (a *Artifact) Validate() error {
	if a.Type == "" {
		return fmt.Errorf("artifact %q: type is required", a.ID)
	}
	if a.StateHash == "" {
		return fmt.Errorf("artifact %q: stateHash is required", a.Key())
	}
	return nil
}

// ArtifactSet is the ordered list of artifacts produced by one run.
type ArtifactSet []Artifact

// FindType returns the first artifact of the given type.
func (s ArtifactSet) FindType(t values.ArtifactType) (*Artifact, bool) {
	for i := range s {
		if s[i].Type == t {
			return &s[i], true
		}
	}
	return nil, false
}

// Reference returns the run's fingerprint reference artifact.
func (s ArtifactSet) Reference() (*Artifact, bool) {
	for i := range s {
		if s[i].Type.IsReference() {
			return &s[i], true
		}
	}
	return nil, false
}

// Replace swaps in a regenerated artifact with the same ID, appending it when
// no artifact with that ID exists. The receiver is not modified.
func (s ArtifactSet) Replace(a Artifact) ArtifactSet {
	out := make(ArtifactSet, 0, len(s)+1)
	replaced := false
	for _, existing := range s {
		if existing.ID == a.ID && !replaced {
			out = append(out, a)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, a)
	}
	return out
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}

// StringPtr returns a pointer to v.
func StringPtr(v string) *string {
	return &v
}
