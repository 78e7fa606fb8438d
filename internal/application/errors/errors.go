// Package apperrors defines application-level error types.
package apperrors

import (
	"fmt"
	"strings"

	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// ValidationError indicates an input document failed validation.
type ValidationError struct {
	Field   string   // Field that failed validation
	Message string   // Error message
	Details []string // Additional details
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s (%d issues)", e.Field, e.Message, len(e.Details))
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string, details ...string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: details,
	}
}

// ComplianceError indicates program-lock violations above tolerance at a
// checkpoint. Violations keep the order in which the checks ran.
type ComplianceError struct {
	Checkpoint values.Checkpoint
	Violations []entities.Violation
}

func (e *ComplianceError) Error() string {
	return fmt.Sprintf("program compliance failed at %s: %d violations%s",
		e.Checkpoint, len(e.Violations), firstViolation(e.Violations))
}

// NewComplianceError creates a compliance error from a report.
func NewComplianceError(report *entities.ValidationReport) *ComplianceError {
	return &ComplianceError{
		Checkpoint: report.Checkpoint,
		Violations: report.Violations,
	}
}

// DriftError indicates divergence between artifacts or iterations above
// the drift threshold.
type DriftError struct {
	Report *entities.ValidationReport
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("%s failed: score %.3f, %d violations%s",
		e.Report.Gate, e.Report.ScoreValue(), len(e.Report.Violations), firstViolation(e.Report.Violations))
}

// NewDriftError creates a drift error carrying the full report.
func NewDriftError(report *entities.ValidationReport) *DriftError {
	return &DriftError{Report: report}
}

// PreflightError indicates malformed or missing inputs detected before any
// gate ran.
type PreflightError struct {
	Errors   []string
	Warnings []string
}

func (e *PreflightError) Error() string {
	if len(e.Errors) == 0 {
		return "preflight failed"
	}
	return fmt.Sprintf("preflight failed: %s", strings.Join(e.Errors, "; "))
}

// NewPreflightError creates a preflight error.
func NewPreflightError(errs, warnings []string) *PreflightError {
	return &PreflightError{
		Errors:   errs,
		Warnings: warnings,
	}
}

// ConfigurationError indicates system config or setup issue.
type ConfigurationError struct {
	Cause   error
	Aspect  string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error (%s): %s: %v", e.Aspect, e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Aspect, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(aspect, message string, cause error) *ConfigurationError {
	return &ConfigurationError{
		Aspect:  aspect,
		Message: message,
		Cause:   cause,
	}
}

func firstViolation(vs []entities.Violation) string {
	if len(vs) == 0 {
		return ""
	}
	return fmt.Sprintf(" (first: %s)", vs[0])
}
