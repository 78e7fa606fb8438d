package entities

import (
	"time"

	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// RunSnapshot is the audit record of one gate call. Snapshots are kept for
// debugging only; no gate reads them back.
type RunSnapshot struct {
	RunID      values.RunID      `json:"runId"`
	Gate       Gate              `json:"gate"`
	Checkpoint values.Checkpoint `json:"checkpoint,omitempty"`
	StateHash  string            `json:"stateHash,omitempty"`
	Valid      bool              `json:"valid"`
	Score      *float64          `json:"score,omitempty"`
	Violations int               `json:"violations"`
	Warnings   int               `json:"warnings"`
	RecordedAt time.Time         `json:"recordedAt"`
}

// NewRunSnapshot summarizes a report for the run history.
func NewRunSnapshot(runID values.RunID, stateHash string, report *ValidationReport) *RunSnapshot {
	return &RunSnapshot{
		RunID:      runID,
		Gate:       report.Gate,
		Checkpoint: report.Checkpoint,
		StateHash:  stateHash,
		Valid:      report.Valid,
		Score:      report.Score,
		Violations: len(report.Violations),
		Warnings:   len(report.Warnings),
		RecordedAt: report.Timestamp,
	}
}
