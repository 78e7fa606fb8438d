package values

import (
	"fmt"
)

// Status represents the outcome of a single gate check.
type Status string

const (
	// StatusPass indicates the check passed
	StatusPass Status = "pass"
	// StatusFail indicates the check ran and found a divergence
	StatusFail Status = "fail"
	// StatusError indicates the check could not be evaluated
	StatusError Status = "error"
	// StatusSkipped indicates the check did not apply (no data, non-visual artifact)
	StatusSkipped Status = "skipped"
)

// Precedence returns the numeric precedence of this status.
// Higher values indicate higher priority in aggregation.
//
// Precedence: Fail (3) > Error (2) > Skipped (1) > Pass (0)
func (s Status) Precedence() int {
	switch s {
	case StatusFail:
		return 3
	case StatusError:
		return 2
	case StatusSkipped:
		return 1
	case StatusPass:
		return 0
	default:
		return -1
	}
}

// IsFailure returns true if this status represents a failure or error
func (s Status) IsFailure() bool {
	return s == StatusFail || s == StatusError
}

// IsSuccess returns true if this status represents success
func (s Status) IsSuccess() bool {
	return s == StatusPass
}

// IsSkipped returns true if this status represents a skip
func (s Status) IsSkipped() bool {
	return s == StatusSkipped
}

// Validate returns an error if the status value is invalid
func (s Status) Validate() error {
	switch s {
	case StatusPass, StatusFail, StatusError, StatusSkipped:
		return nil
	default:
		return fmt.Errorf("invalid status: %s", s)
	}
}

// Worst returns the status with the highest precedence.
// An empty list aggregates to skipped.
func Worst(statuses ...Status) Status {
	if len(statuses) == 0 {
		return StatusSkipped
	}
	worst := statuses[0]
	for _, s := range statuses[1:] {
		if s.Precedence() > worst.Precedence() {
			worst = s
		}
	}
	return worst
}

// Recommendation is the per-artifact action suggested by the fingerprint gate.
type Recommendation string

const (
	// RecommendPass means the artifact can be composed as is.
	RecommendPass Recommendation = "pass"
	// RecommendRetry means the artifact is close enough that regeneration is worthwhile.
	RecommendRetry Recommendation = "retry"
	// RecommendBlock means the artifact diverges too far to be salvaged by a plain retry.
	RecommendBlock Recommendation = "block"
)

// RunAction is the run-level decision produced by the retry policy.
type RunAction string

const (
	ActionProceed        RunAction = "proceed"
	ActionRetryRun       RunAction = "retry_run"
	ActionRetryFailed    RunAction = "retry_failed"
	ActionStrictFallback RunAction = "strict_fallback"
	ActionAbort          RunAction = "abort"
)

// CorrectionStatus is the terminal state of the correction loop.
type CorrectionStatus string

const (
	CorrectionValid      CorrectionStatus = "valid"
	CorrectionBestEffort CorrectionStatus = "best-effort"
	CorrectionFailed     CorrectionStatus = "failed"
)

// IsAccepted reports whether the pipeline may continue with the geometry.
// Best-effort results are accepted but must stay labeled as such downstream.
func (s CorrectionStatus) IsAccepted() bool {
	return s == CorrectionValid || s == CorrectionBestEffort
}
