package values

import "fmt"

// Checkpoint names a program compliance checkpoint in the pipeline.
type Checkpoint string

const (
	// CheckpointPostSpec runs on the sealed design before rendering.
	CheckpointPostSpec Checkpoint = "post-spec"
	// CheckpointPostRender runs on the rendered artifact set.
	CheckpointPostRender Checkpoint = "post-render"
	// CheckpointPreCompose runs right before final composition.
	CheckpointPreCompose Checkpoint = "pre-compose"
)

// ParseCheckpoint validates a checkpoint name.
func ParseCheckpoint(s string) (Checkpoint, error) {
	switch c := Checkpoint(s); c {
	case CheckpointPostSpec, CheckpointPostRender, CheckpointPreCompose:
		return c, nil
	default:
		return "", fmt.Errorf("invalid checkpoint: %q (valid: post-spec, post-render, pre-compose)", s)
	}
}
