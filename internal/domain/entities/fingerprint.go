package entities

import (
	"time"

	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// Fingerprint is the extracted visual signature of a run's reference artifact.
// It is set once per run and persists across modify iterations unless it is
// explicitly regenerated.
type Fingerprint struct {
	RunID               values.RunID `json:"runId"`
	ReferenceArtifactID string       `json:"referenceArtifactId"`
	ReferenceImageRef   string       `json:"referenceImageRef,omitempty"`
	ReferenceHash       string       `json:"referenceHash"`
	Massing             string       `json:"massing,omitempty"`
	RoofProfile         string       `json:"roofProfile,omitempty"`
	MaterialsPalette    []string     `json:"materialsPalette,omitempty"`
	// ColorPalette holds quadrant colors as #rrggbb strings.
	ColorPalette []string  `json:"colorPalette,omitempty"`
	PromptLock   string    `json:"promptLock,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasPalette reports whether pixel-derived colors were captured.
func (f *Fingerprint) HasPalette() bool {
	return len(f.ColorPalette) > 0
}
