package services

import (
	"fmt"

	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// RetryDecision tells the rendering collaborator what to do after a
// fingerprint pass.
type RetryDecision struct {
	Action values.RunAction `json:"action"`
	// Attempt is the number of retries already spent when the decision was made.
	Attempt   int      `json:"attempt"`
	Artifacts []string `json:"artifacts,omitempty"`
	// Overrides is set only for ActionStrictFallback.
	Overrides *StrictFallbackParams `json:"overrides,omitempty"`
	Reason    string                `json:"reason"`
}

// RetryPolicy turns a fingerprint outcome into a run action.
//
// Critical failures retry the whole run while attempts remain. The attempt
// after the last ordinary retry is a strict fallback with escalated
// overrides; if that fails too the run is aborted. Non-critical failures
// retry only the failed subset, and only when the pass ratio is below the
// minimum and the caller blocks on failure.
type RetryPolicy struct {
	opts FingerprintOptions
}

// NewRetryPolicy creates a policy over the gate's thresholds.
func NewRetryPolicy(opts FingerprintOptions) *RetryPolicy {
	return &RetryPolicy{opts: opts}
}

// Decide picks the next action. attempt counts retries already performed
// for this run, 0 on the first pass.
func (p *RetryPolicy) Decide(outcome *FingerprintOutcome, attempt int, blockOnFailure bool) RetryDecision {
	var critical, failed []string
	for _, r := range outcome.Failed() {
		failed = append(failed, r.ArtifactID)
		if r.Critical {
			critical = append(critical, r.ArtifactID)
		}
	}

	if len(critical) > 0 {
		switch {
		case attempt < p.opts.MaxRetries:
			return RetryDecision{
				Action:    values.ActionRetryRun,
				Attempt:   attempt,
				Artifacts: critical,
				Reason:    fmt.Sprintf("critical artifacts failed; retry %d of %d", attempt+1, p.opts.MaxRetries),
			}
		case attempt == p.opts.MaxRetries:
			overrides := p.opts.StrictFallback
			return RetryDecision{
				Action:    values.ActionStrictFallback,
				Attempt:   attempt,
				Artifacts: critical,
				Overrides: &overrides,
				Reason:    "retries exhausted for critical artifacts; final strict attempt",
			}
		default:
			return RetryDecision{
				Action:    values.ActionAbort,
				Attempt:   attempt,
				Artifacts: critical,
				Reason:    "critical artifacts failed after strict fallback",
			}
		}
	}

	if len(failed) == 0 {
		return RetryDecision{Action: values.ActionProceed, Attempt: attempt, Reason: "all artifacts match the fingerprint"}
	}

	if outcome.PassRatio < p.opts.MinPassRatio && blockOnFailure && attempt < p.opts.MaxRetries {
		return RetryDecision{
			Action:    values.ActionRetryFailed,
			Attempt:   attempt,
			Artifacts: failed,
			Reason: fmt.Sprintf("pass ratio %.2f below %.2f; retry failed artifacts",
				outcome.PassRatio, p.opts.MinPassRatio),
		}
	}

	return RetryDecision{
		Action:    values.ActionProceed,
		Attempt:   attempt,
		Artifacts: failed,
		Reason:    fmt.Sprintf("proceeding with %d non-critical failures (pass ratio %.2f)", len(failed), outcome.PassRatio),
	}
}
