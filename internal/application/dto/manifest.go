package dto

// RunManifest lists the inputs of one run for the full validation pipeline.
// Empty paths skip the stages that need them. String fields may reference
// Vars as {{ .vars.key }}.
type RunManifest struct {
	RunID             string  `json:"runId,omitempty" yaml:"run_id,omitempty"`
	State             string  `json:"state" yaml:"state"`
	Lock              string  `json:"lock" yaml:"lock"`
	Artifacts         string  `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Built             string  `json:"built,omitempty" yaml:"built,omitempty"`
	Baseline          string  `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	BaselineArtifacts string  `json:"baselineArtifacts,omitempty" yaml:"baseline_artifacts,omitempty"`
	Assets            []Asset `json:"assets,omitempty" yaml:"assets,omitempty"`
	// Attempt is the number of fingerprint retries already performed.
	Attempt    int  `json:"attempt,omitempty" yaml:"attempt,omitempty"`
	CheckEdges bool `json:"checkEdges,omitempty" yaml:"check_edges,omitempty"`
	NoBlocking bool `json:"noBlocking,omitempty" yaml:"no_blocking,omitempty"`

	Vars map[string]any `json:"vars,omitempty" yaml:"vars,omitempty"`
}
