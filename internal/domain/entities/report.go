package entities

import (
	"fmt"
	"time"

	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// Gate names the validator that produced a report.
type Gate string

const (
	GateProgramCompliance Gate = "program_compliance"
	GateDrift             Gate = "drift"
	GateModifyDrift       Gate = "modify_drift"
	GateEdgeAlignment     Gate = "edge_alignment"
	GateFingerprint       Gate = "fingerprint"
	GateCorrection        Gate = "correction"
	GatePreflight         Gate = "preflight"
)

// Violation is one failed check. Violations keep the order in which the
// checks ran.
type Violation struct {
	Code     string          `json:"code"`
	Message  string          `json:"message"`
	Severity values.Severity `json:"severity"`
	Subject  string          `json:"subject,omitempty"`
	Expected any             `json:"expected,omitempty"`
	Actual   any             `json:"actual,omitempty"`
}

func (v Violation) String() string {
	if v.Subject == "" {
		return fmt.Sprintf("[%s] %s", v.Code, v.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", v.Code, v.Subject, v.Message)
}

// ValidationReport is produced by every gate call and never mutated after
// it is returned.
type ValidationReport struct {
	Gate       Gate              `json:"gate"`
	Checkpoint values.Checkpoint `json:"checkpoint,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Valid      bool              `json:"valid"`
	Violations []Violation       `json:"violations"`
	Warnings   []Violation       `json:"warnings,omitempty"`
	Checks     int               `json:"checks"`
	Score      *float64          `json:"score,omitempty"`
	Threshold  *float64          `json:"threshold,omitempty"`
	Details    map[string]any    `json:"details,omitempty"`
}

// NewValidationReport starts an empty report for the gate.
func NewValidationReport(gate Gate, checkpoint values.Checkpoint, now time.Time) *ValidationReport {
	return &ValidationReport{
		Gate:       gate,
		Checkpoint: checkpoint,
		Timestamp:  now.UTC(),
		Valid:      true,
		Violations: []Violation{},
	}
}

// Check records one performed check; when ok is false the violation is appended.
func (r *ValidationReport) Check(ok bool, v Violation) bool {
	r.Checks++
	if !ok {
		r.AddViolation(v)
	}
	return ok
}

// AddViolation appends a violation without counting a check.
func (r *ValidationReport) AddViolation(v Violation) {
	if v.Severity == "" {
		v.Severity = values.SeverityHigh
	}
	r.Violations = append(r.Violations, v)
}

// AddWarning appends a non-failing issue.
func (r *ValidationReport) AddWarning(v Violation) {
	if v.Severity == "" {
		v.Severity = values.SeverityLow
	}
	r.Warnings = append(r.Warnings, v)
}

// SetDetail attaches a diagnostic value.
func (r *ValidationReport) SetDetail(key string, value any) {
	if r.Details == nil {
		r.Details = make(map[string]any)
	}
	r.Details[key] = value
}

// SetScore records the score and threshold the report was judged against.
func (r *ValidationReport) SetScore(score, threshold float64) {
	r.Score = &score
	r.Threshold = &threshold
}

// ScoreValue returns the score, or 0 when none was recorded.
func (r *ValidationReport) ScoreValue() float64 {
	if r.Score == nil {
		return 0
	}
	return *r.Score
}

// Merge appends another report's checks, violations and warnings.
func (r *ValidationReport) Merge(other *ValidationReport) {
	if other == nil {
		return
	}
	r.Checks += other.Checks
	r.Violations = append(r.Violations, other.Violations...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// ViolationCount returns the number of violations.
func (r *ValidationReport) ViolationCount() int {
	return len(r.Violations)
}

// Summary renders a one-line description for logs and tables.
func (r *ValidationReport) Summary() string {
	status := "valid"
	if !r.Valid {
		status = "invalid"
	}
	s := fmt.Sprintf("%s: %s (%d checks, %d violations, %d warnings)",
		r.Gate, status, r.Checks, len(r.Violations), len(r.Warnings))
	if r.Score != nil {
		s += fmt.Sprintf(" score=%.3f", *r.Score)
	}
	return s
}
