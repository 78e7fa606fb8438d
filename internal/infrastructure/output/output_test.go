package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/services"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// createTestResult creates a pipeline result with a passing compliance
// report, a failing drift report and a fingerprint decision.
func createTestResult() *dto.RunResult {
	result := &dto.RunResult{
		RunID:     "2f6c1a52-5b9e-4c8a-9d8e-0e1f2a3b4c5d",
		Source:    "runs/run.yaml",
		StateHash: "sha256:4be1",
		Version:   "1.0.0",
		Passed:    true,
		Metadata:  dto.ResponseMetadata{ProcessedAt: testTime, Duration: 1500 * time.Millisecond},
	}

	compliance := entities.NewValidationReport(entities.GateProgramCompliance, values.CheckpointPostSpec, testTime)
	compliance.Check(true, entities.Violation{})
	compliance.Check(true, entities.Violation{})
	compliance.AddWarning(entities.Violation{Code: "area_deviation", Subject: "kitchen", Message: "area 11.2 is 8% under target"})
	result.AddReport(compliance)

	drift := entities.NewValidationReport(entities.GateDrift, "", testTime)
	drift.Check(false, entities.Violation{
		Code:     "state_hash_mismatch",
		Subject:  "plan-0",
		Message:  "artifact was rendered from another state",
		Expected: "sha256:4be1",
		Actual:   "sha256:9a0c",
	})
	drift.Check(true, entities.Violation{})
	drift.SetScore(0.5, 0.1)
	drift.Valid = false
	drift.SetDetail("checked_artifacts", 2)
	result.AddReport(drift)

	result.Fingerprint = &dto.FingerprintResponse{
		Fingerprint: &entities.Fingerprint{ReferenceArtifactID: "hero"},
		Results: []services.ArtifactResult{
			{ArtifactID: "axo", Type: values.ArtifactAxonometric, Score: 0.91, Passed: true, Critical: true, Recommendation: values.RecommendPass},
			{ArtifactID: "palette", Type: values.ArtifactMaterialPalette, Skipped: true},
		},
		PassRatio: 1,
		Decision:  services.RetryDecision{Action: values.ActionProceed, Reason: "all artifacts passed"},
	}

	return result
}

func TestTableFormatter_Format(t *testing.T) {
	result := createTestResult()
	var buf bytes.Buffer
	formatter := NewTableFormatter(&buf)
	formatter.EnableColor = false // Disable color for deterministic string comparison

	err := formatter.Format(result)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Run: 2f6c1a52-5b9e-4c8a-9d8e-0e1f2a3b4c5d")
	assert.Contains(t, output, "State: sha256:4be1")
	assert.Contains(t, output, "✓ program_compliance @ post-spec")
	assert.Contains(t, output, "✗ drift")
	assert.Contains(t, output, "Score: 0.500 (threshold 0.100)")
	assert.Contains(t, output, "(high) [state_hash_mismatch] plan-0: artifact was rendered from another state")
	assert.Contains(t, output, "expected sha256:4be1, got sha256:9a0c")
	assert.Contains(t, output, "(low) [area_deviation] kitchen")
	assert.Contains(t, output, "checked_artifacts: 2")
	assert.Contains(t, output, "Reference: hero")
	assert.Contains(t, output, "pass (critical)")
	assert.Contains(t, output, "skipped")
	assert.Contains(t, output, "Decision: proceed (attempt 0)")
	assert.Contains(t, output, "Gates:      2 total")
	assert.Contains(t, output, "Passed: 1")
	assert.Contains(t, output, "Failed: 1")
	assert.Contains(t, output, "Result:     FAILED")
	assert.NotContains(t, output, "\033[")
}

func TestTableFormatter_EmptyResult(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewTableFormatter(&buf)
	formatter.EnableColor = false

	err := formatter.Format(&dto.RunResult{Source: "state.json", Error: "decode failed"})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Source: state.json")
	assert.Contains(t, output, "No gates executed.")
	assert.Contains(t, output, "Error: decode failed")
	assert.NotContains(t, output, "Summary:")
}

func TestTableFormatter_HashAndCorrection(t *testing.T) {
	verified := false
	result := &dto.RunResult{
		Hash: &dto.HashResponse{Source: "state.json", Backend: "sha256", Hash: "sha256:aa", Stored: "sha256:bb", Verified: &verified},
		Correction: &services.CorrectionOutcome{
			Status:     values.CorrectionBestEffort,
			PassesUsed: 2,
			History: []services.CorrectionPass{
				{Pass: 1, Score: 62.5, Applied: 2},
				{Pass: 2, Score: 81, Error: "reasoner timeout"},
			},
		},
	}
	var buf bytes.Buffer
	formatter := NewTableFormatter(&buf)
	formatter.EnableColor = false

	require.NoError(t, formatter.Format(result))

	output := buf.String()
	assert.Contains(t, output, "Hash (sha256): sha256:aa")
	assert.Contains(t, output, "✗ mismatch")
	assert.Contains(t, output, "Status: best-effort after 2 passes")
	assert.Contains(t, output, "reasoner timeout")
	assert.NotContains(t, output, "No gates executed.")
}

func TestTableFormatter_Color(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(&buf).Format(createTestResult()))

	assert.Contains(t, buf.String(), colorRed+"✗"+colorReset)
}

func TestJSONFormatter_Format_Indented(t *testing.T) {
	t.Parallel()
	result := createTestResult()
	var buf bytes.Buffer

	formatter := NewJSONFormatter(&buf, true)
	err := formatter.Format(result)
	require.NoError(t, err)

	output := buf.String()

	var decoded dto.RunResult
	err = json.Unmarshal([]byte(output), &decoded)
	require.NoError(t, err)

	assert.Equal(t, result.RunID, decoded.RunID)
	assert.False(t, decoded.Passed)
	require.Len(t, decoded.Reports, 2)
	assert.Equal(t, entities.GateDrift, decoded.Reports[1].Gate)
	assert.Equal(t, values.ActionProceed, decoded.Fingerprint.Decision.Action)

	assert.Contains(t, output, "  ")
	assert.Contains(t, output, "\n")
}

func TestJSONFormatter_Format_Compact(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	require.NoError(t, NewJSONFormatter(&buf, false).Format(createTestResult()))

	output := buf.String()
	assert.NotContains(t, output, "\n  ")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestYAMLFormatter_Format(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	require.NoError(t, NewYAMLFormatter(&buf).Format(createTestResult()))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "2f6c1a52-5b9e-4c8a-9d8e-0e1f2a3b4c5d", decoded["runId"])
	assert.Equal(t, false, decoded["passed"])
	reports, ok := decoded["reports"].([]any)
	require.True(t, ok)
	assert.Len(t, reports, 2)
}
