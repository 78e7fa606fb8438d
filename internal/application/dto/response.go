package dto

import (
	"time"

	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/services"
)

// ResponseMetadata contains metadata about the response.
type ResponseMetadata struct {
	// RequestID from the original request
	RequestID string `json:"requestId,omitempty"`

	// ProcessedAt is when the request was processed
	ProcessedAt time.Time `json:"processedAt"`

	// Duration is how long the request took
	Duration time.Duration `json:"duration"`
}

// FingerprintResponse is the result of a fingerprint check.
type FingerprintResponse struct {
	Fingerprint *entities.Fingerprint      `json:"fingerprint,omitempty"`
	Results     []services.ArtifactResult  `json:"results"`
	PassRatio   float64                    `json:"passRatio"`
	Decision    services.RetryDecision     `json:"decision"`
	Report      *entities.ValidationReport `json:"-"`
}

// PreflightResponse lists preflight findings.
type PreflightResponse struct {
	Errors   []string                   `json:"errors,omitempty"`
	Warnings []string                   `json:"warnings,omitempty"`
	Report   *entities.ValidationReport `json:"-"`
}

// HashResponse is the result of hashing or verifying a document.
type HashResponse struct {
	Source   string `json:"source"`
	Backend  string `json:"backend"`
	Hash     string `json:"hash"`
	Stored   string `json:"stored,omitempty"`
	Verified *bool  `json:"verified,omitempty"`
}

// RunResult is everything one command produced, in the shape output
// formatters render.
type RunResult struct {
	RunID       string                       `json:"runId,omitempty"`
	Source      string                       `json:"source,omitempty"`
	StateHash   string                       `json:"stateHash,omitempty"`
	Version     string                       `json:"version"`
	Passed      bool                         `json:"passed"`
	Reports     []*entities.ValidationReport `json:"reports,omitempty"`
	Preflight   *PreflightResponse           `json:"preflight,omitempty"`
	Fingerprint *FingerprintResponse         `json:"fingerprint,omitempty"`
	Correction  *services.CorrectionOutcome  `json:"correction,omitempty"`
	Hash        *HashResponse                `json:"hash,omitempty"`
	Error       string                       `json:"error,omitempty"`
	Metadata    ResponseMetadata             `json:"metadata"`
}

// AddReport appends a report and folds its validity into Passed.
func (r *RunResult) AddReport(report *entities.ValidationReport) {
	if report == nil {
		return
	}
	r.Reports = append(r.Reports, report)
	if !report.Valid {
		r.Passed = false
	}
}

// ViolationCount sums violations across reports.
func (r *RunResult) ViolationCount() int {
	n := 0
	for _, rep := range r.Reports {
		n += len(rep.Violations)
	}
	return n
}
