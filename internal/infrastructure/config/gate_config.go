// Package config provides infrastructure for loading gate configuration,
// input documents and run manifests.
package config

import (
	"fmt"
	"strings"

	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/domain/services"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// GateConfig is the file form of the gate thresholds. Zero values take the
// defaults when ApplyDefaults runs.
type GateConfig struct {
	Strict      *bool             `yaml:"strict" mapstructure:"strict"`
	HashBackend string            `yaml:"hash_backend" mapstructure:"hash_backend"`
	HistorySize int               `yaml:"history_size" mapstructure:"history_size"`
	Compliance  ComplianceConfig  `yaml:"compliance" mapstructure:"compliance"`
	Drift       DriftConfig       `yaml:"drift" mapstructure:"drift"`
	Fingerprint FingerprintConfig `yaml:"fingerprint" mapstructure:"fingerprint"`
	Correction  CorrectionConfig  `yaml:"correction" mapstructure:"correction"`
}

// ComplianceConfig configures the program compliance gate.
type ComplianceConfig struct {
	AreaTolerance        float64 `yaml:"area_tolerance" mapstructure:"area_tolerance"`
	BuiltAreaTolerance   float64 `yaml:"built_area_tolerance" mapstructure:"built_area_tolerance"`
	MaxProgramViolations int     `yaml:"max_program_violations" mapstructure:"max_program_violations"`
	MaxLevelMismatches   int     `yaml:"max_level_mismatches" mapstructure:"max_level_mismatches"`
	RequireBuiltGeometry bool    `yaml:"require_built_geometry" mapstructure:"require_built_geometry"`
}

// DriftConfig configures the drift gates.
type DriftConfig struct {
	Threshold          float64      `yaml:"threshold" mapstructure:"threshold"`
	Modify             ModifyConfig `yaml:"modify" mapstructure:"modify"`
	AlignmentThreshold float64      `yaml:"alignment_threshold" mapstructure:"alignment_threshold"`
	AlignmentTolerance int          `yaml:"alignment_tolerance" mapstructure:"alignment_tolerance"`
}

// ModifyConfig configures cross-iteration drift.
type ModifyConfig struct {
	MinSimilarity      float64 `yaml:"min_similarity" mapstructure:"min_similarity"`
	MaxHammingDistance int     `yaml:"max_hamming_distance" mapstructure:"max_hamming_distance"`
	AllowSeedChange    bool    `yaml:"allow_seed_change" mapstructure:"allow_seed_change"`
}

// FingerprintConfig configures the fingerprint gate and retry policy.
type FingerprintConfig struct {
	Threshold      float64               `yaml:"threshold" mapstructure:"threshold"`
	RetryRatio     float64               `yaml:"retry_ratio" mapstructure:"retry_ratio"`
	MaxRetries     *int                  `yaml:"max_retries" mapstructure:"max_retries"`
	MinPassRatio   float64               `yaml:"min_pass_ratio" mapstructure:"min_pass_ratio"`
	CriticalTypes  []string              `yaml:"critical_types" mapstructure:"critical_types"`
	StrictFallback *StrictFallbackConfig `yaml:"strict_fallback" mapstructure:"strict_fallback"`
	MaxConcurrent  int                   `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// StrictFallbackConfig overrides the escalated generation parameters.
type StrictFallbackConfig struct {
	ControlStrength   float64 `yaml:"control_strength" mapstructure:"control_strength"`
	ReferenceStrength float64 `yaml:"reference_strength" mapstructure:"reference_strength"`
	GuidanceScale     float64 `yaml:"guidance_scale" mapstructure:"guidance_scale"`
	PreserveSeed      bool    `yaml:"preserve_seed" mapstructure:"preserve_seed"`
}

// CorrectionConfig bounds the correction loop.
type CorrectionConfig struct {
	MaxPasses          int     `yaml:"max_passes" mapstructure:"max_passes"`
	TargetScore        float64 `yaml:"target_score" mapstructure:"target_score"`
	MinAcceptableScore float64 `yaml:"min_acceptable_score" mapstructure:"min_acceptable_score"`
}

// DefaultHistorySize is the number of run snapshots kept in memory.
const DefaultHistorySize = 32

// ApplyDefaults fills zero values with the standard thresholds.
func (c *GateConfig) ApplyDefaults() {
	defaults := dto.DefaultGateOptions()

	if c.Strict == nil {
		strict := defaults.Strict
		c.Strict = &strict
	}
	if c.HashBackend == "" {
		c.HashBackend = defaults.HashBackend
	}
	if c.HistorySize == 0 {
		c.HistorySize = DefaultHistorySize
	}

	cc := &c.Compliance
	if cc.AreaTolerance == 0 {
		cc.AreaTolerance = defaults.Compliance.AreaTolerance
	}
	if cc.BuiltAreaTolerance == 0 {
		cc.BuiltAreaTolerance = defaults.Compliance.BuiltAreaTolerance
	}

	dc := &c.Drift
	if dc.Threshold == 0 {
		dc.Threshold = defaults.Drift.Threshold
	}
	if dc.Modify.MinSimilarity == 0 {
		dc.Modify.MinSimilarity = defaults.Drift.MinSimilarity
	}
	if dc.Modify.MaxHammingDistance == 0 {
		dc.Modify.MaxHammingDistance = defaults.Drift.MaxHammingDistance
	}
	if dc.AlignmentThreshold == 0 {
		dc.AlignmentThreshold = defaults.Drift.AlignmentThreshold
	}
	if dc.AlignmentTolerance == 0 {
		dc.AlignmentTolerance = defaults.Drift.AlignmentTolerance
	}

	fc := &c.Fingerprint
	if fc.Threshold == 0 {
		fc.Threshold = defaults.Fingerprint.Threshold
	}
	if fc.RetryRatio == 0 {
		fc.RetryRatio = defaults.Fingerprint.RetryRatio
	}
	if fc.MaxRetries == nil {
		retries := defaults.Fingerprint.MaxRetries
		fc.MaxRetries = &retries
	}
	if fc.MinPassRatio == 0 {
		fc.MinPassRatio = defaults.Fingerprint.MinPassRatio
	}
	if len(fc.CriticalTypes) == 0 {
		for _, t := range defaults.Fingerprint.CriticalTypes {
			fc.CriticalTypes = append(fc.CriticalTypes, string(t))
		}
	}
	if fc.StrictFallback == nil {
		sf := defaults.Fingerprint.StrictFallback
		fc.StrictFallback = &StrictFallbackConfig{
			ControlStrength:   sf.ControlStrength,
			ReferenceStrength: sf.ReferenceStrength,
			GuidanceScale:     sf.GuidanceScale,
			PreserveSeed:      sf.PreserveSeed,
		}
	}
	if fc.MaxConcurrent == 0 {
		fc.MaxConcurrent = defaults.Fingerprint.MaxConcurrent
	}

	rc := &c.Correction
	if rc.MaxPasses == 0 {
		rc.MaxPasses = defaults.Correction.MaxPasses
	}
	if rc.TargetScore == 0 {
		rc.TargetScore = defaults.Correction.TargetScore
	}
	if rc.MinAcceptableScore == 0 {
		rc.MinAcceptableScore = defaults.Correction.MinAcceptableScore
	}
}

// Validate reports every out-of-range setting. Call after ApplyDefaults.
func (c *GateConfig) Validate() error {
	var errs []string
	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be within [0, 1], got %g", name, v))
		}
	}
	nonNegative := func(name string, v int) {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("%s must be non-negative, got %d", name, v))
		}
	}

	if _, err := services.BackendByName(c.HashBackend); err != nil {
		errs = append(errs, err.Error())
	}
	if c.HistorySize < 1 {
		errs = append(errs, fmt.Sprintf("history_size must be at least 1, got %d", c.HistorySize))
	}

	unit("compliance.area_tolerance", c.Compliance.AreaTolerance)
	unit("compliance.built_area_tolerance", c.Compliance.BuiltAreaTolerance)
	nonNegative("compliance.max_program_violations", c.Compliance.MaxProgramViolations)
	nonNegative("compliance.max_level_mismatches", c.Compliance.MaxLevelMismatches)

	unit("drift.threshold", c.Drift.Threshold)
	unit("drift.modify.min_similarity", c.Drift.Modify.MinSimilarity)
	nonNegative("drift.modify.max_hamming_distance", c.Drift.Modify.MaxHammingDistance)
	if c.Drift.Modify.MaxHammingDistance > 64 {
		errs = append(errs, fmt.Sprintf("drift.modify.max_hamming_distance cannot exceed 64, got %d", c.Drift.Modify.MaxHammingDistance))
	}
	unit("drift.alignment_threshold", c.Drift.AlignmentThreshold)
	nonNegative("drift.alignment_tolerance", c.Drift.AlignmentTolerance)

	unit("fingerprint.threshold", c.Fingerprint.Threshold)
	unit("fingerprint.retry_ratio", c.Fingerprint.RetryRatio)
	unit("fingerprint.min_pass_ratio", c.Fingerprint.MinPassRatio)
	if c.Fingerprint.MaxRetries != nil {
		nonNegative("fingerprint.max_retries", *c.Fingerprint.MaxRetries)
	}
	if c.Fingerprint.MaxConcurrent < 1 {
		errs = append(errs, fmt.Sprintf("fingerprint.max_concurrent must be at least 1, got %d", c.Fingerprint.MaxConcurrent))
	}
	for _, t := range c.Fingerprint.CriticalTypes {
		if strings.TrimSpace(t) == "" {
			errs = append(errs, "fingerprint.critical_types contains an empty type")
		}
	}

	if c.Correction.MaxPasses < 1 {
		errs = append(errs, fmt.Sprintf("correction.max_passes must be at least 1, got %d", c.Correction.MaxPasses))
	}
	if c.Correction.MinAcceptableScore > c.Correction.TargetScore {
		errs = append(errs, fmt.Sprintf("correction.min_acceptable_score (%g) exceeds target_score (%g)",
			c.Correction.MinAcceptableScore, c.Correction.TargetScore))
	}

	if len(errs) > 0 {
		return fmt.Errorf("gate config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ToGateOptions converts the file form into the options the gates take.
func (c *GateConfig) ToGateOptions() dto.GateOptions {
	opts := dto.DefaultGateOptions()
	if c.Strict != nil {
		opts.Strict = *c.Strict
	}
	opts.HashBackend = c.HashBackend

	opts.Compliance = services.ComplianceOptions{
		AreaTolerance:        c.Compliance.AreaTolerance,
		BuiltAreaTolerance:   c.Compliance.BuiltAreaTolerance,
		MaxProgramViolations: c.Compliance.MaxProgramViolations,
		MaxLevelMismatches:   c.Compliance.MaxLevelMismatches,
		RequireBuiltGeometry: c.Compliance.RequireBuiltGeometry,
	}

	opts.Drift = services.DriftOptions{
		Threshold:          c.Drift.Threshold,
		MinSimilarity:      c.Drift.Modify.MinSimilarity,
		MaxHammingDistance: c.Drift.Modify.MaxHammingDistance,
		AllowSeedChange:    c.Drift.Modify.AllowSeedChange,
		AlignmentThreshold: c.Drift.AlignmentThreshold,
		AlignmentTolerance: c.Drift.AlignmentTolerance,
	}

	fp := &opts.Fingerprint
	fp.Threshold = c.Fingerprint.Threshold
	fp.RetryRatio = c.Fingerprint.RetryRatio
	if c.Fingerprint.MaxRetries != nil {
		fp.MaxRetries = *c.Fingerprint.MaxRetries
	}
	fp.MinPassRatio = c.Fingerprint.MinPassRatio
	if len(c.Fingerprint.CriticalTypes) > 0 {
		fp.CriticalTypes = make([]values.ArtifactType, len(c.Fingerprint.CriticalTypes))
		for i, t := range c.Fingerprint.CriticalTypes {
			fp.CriticalTypes[i] = values.ArtifactType(t)
		}
	}
	if sf := c.Fingerprint.StrictFallback; sf != nil {
		fp.StrictFallback = services.StrictFallbackParams{
			ControlStrength:   sf.ControlStrength,
			ReferenceStrength: sf.ReferenceStrength,
			GuidanceScale:     sf.GuidanceScale,
			PreserveSeed:      sf.PreserveSeed,
		}
	}
	fp.MaxConcurrent = c.Fingerprint.MaxConcurrent

	opts.Correction = services.CorrectionOptions{
		MaxPasses:          c.Correction.MaxPasses,
		TargetScore:        c.Correction.TargetScore,
		MinAcceptableScore: c.Correction.MinAcceptableScore,
	}
	return opts
}
