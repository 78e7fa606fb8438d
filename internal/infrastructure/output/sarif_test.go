package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/owenrumney/go-sarif/v3/pkg/report/v210/sarif"
	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formatToReport(t *testing.T, result *dto.RunResult) *sarif.Report {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewSARIFFormatter(&buf, "").Format(result))

	report, err := sarif.FromBytes(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)
	return report
}

func TestSARIFFormatter_Format(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	formatter := NewSARIFFormatter(&buf, "run.yaml")
	require.NoError(t, formatter.Format(createTestResult()))

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))

	assert.Equal(t, "2.1.0", raw["version"])
	assert.Contains(t, raw, "$schema")

	runs := raw["runs"].([]interface{})
	require.Len(t, runs, 1)
	run := runs[0].(map[string]interface{})
	assert.Contains(t, run, "tool")
	assert.Contains(t, run, "results")
	assert.Contains(t, run, "invocations")
}

func TestSARIFFormatter_ValidatesAgainstSchema(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	require.NoError(t, NewSARIFFormatter(&buf, "run.yaml").Format(createTestResult()))

	report, err := sarif.FromBytes(buf.Bytes())
	require.NoError(t, err)
	require.NoError(t, report.Validate())
}

func TestSARIFFormatter_ToolMetadata(t *testing.T) {
	t.Parallel()
	result := createTestResult()
	result.Version = "1.2.3"

	report := formatToReport(t, result)

	tool := report.Runs[0].Tool
	assert.Equal(t, "Plumbline", *tool.Driver.Name)
	assert.Equal(t, "1.2.3", *tool.Driver.Version)
}

func TestSARIFFormatter_ResultsPerViolation(t *testing.T) {
	t.Parallel()
	report := formatToReport(t, createTestResult())

	results := report.Runs[0].Results
	// compliance warning, drift violation
	require.Len(t, results, 2)

	assert.Equal(t, "program_compliance/area_deviation", *results[0].RuleID)
	assert.Equal(t, "warning", results[0].Level)
	assert.Equal(t, "review", results[0].Kind)

	assert.Equal(t, "drift/state_hash_mismatch", *results[1].RuleID)
	assert.Equal(t, "error", results[1].Level)
	assert.Equal(t, "fail", results[1].Kind)
	assert.Contains(t, *results[1].Message.Text, "plan-0")

	assert.Len(t, report.Runs[0].Tool.Driver.Rules, 2)
}

func TestSARIFFormatter_SeverityLevelMapping(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		severity  values.Severity
		wantLevel string
	}{
		{"critical", values.SeverityCritical, "error"},
		{"high", values.SeverityHigh, "error"},
		{"medium", values.SeverityMedium, "warning"},
		{"low", values.SeverityLow, "warning"},
		{"info", values.SeverityInfo, "note"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rep := entities.NewValidationReport(entities.GateFingerprint, "", testTime)
			rep.AddViolation(entities.Violation{Code: "low_similarity", Severity: tc.severity, Message: "m"})
			rep.Valid = false
			result := &dto.RunResult{}
			result.AddReport(rep)

			report := formatToReport(t, result)
			require.Len(t, report.Runs[0].Results, 1)
			assert.Equal(t, tc.wantLevel, report.Runs[0].Results[0].Level)
		})
	}
}

func TestSARIFFormatter_PassingReport(t *testing.T) {
	t.Parallel()
	rep := entities.NewValidationReport(entities.GateProgramCompliance, values.CheckpointPreCompose, testTime)
	result := &dto.RunResult{Passed: true}
	result.AddReport(rep)

	report := formatToReport(t, result)

	require.Len(t, report.Runs[0].Results, 1)
	res := report.Runs[0].Results[0]
	assert.Equal(t, "program_compliance", *res.RuleID)
	assert.Equal(t, "note", res.Level)
	assert.Equal(t, "pass", res.Kind)
	assert.Equal(t, "Gate program_compliance passed at pre-compose", *res.Message.Text)
	assert.Empty(t, res.Locations)
}

func TestSARIFMapper_Location(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, NewSARIFFormatter(&buf, "/srv/runs/run.yaml").Format(&dto.RunResult{
		Reports: []*entities.ValidationReport{entities.NewValidationReport(entities.GateDrift, "", testTime)},
	}))

	report, err := sarif.FromBytes(buf.Bytes())
	require.NoError(t, err)
	res := report.Runs[0].Results[0]
	require.Len(t, res.Locations, 1)
	assert.Equal(t, "file:///srv/runs/run.yaml", *res.Locations[0].PhysicalLocation.ArtifactLocation.URI)
}
