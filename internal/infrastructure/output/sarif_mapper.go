package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/owenrumney/go-sarif/v3/pkg/report/v210/sarif"
	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

type sarifMapper struct {
	result     *dto.RunResult
	sourcePath string
	cwd        string
	rules      map[string]bool
}

func newSARIFMapper(result *dto.RunResult, sourcePath string) *sarifMapper {
	cwd, _ := os.Getwd() // Best effort, ignore error
	return &sarifMapper{
		result:     result,
		sourcePath: sourcePath,
		cwd:        cwd,
		rules:      make(map[string]bool),
	}
}

// mapToRun populates the SARIF run with rules, results, artifacts, and invocations.
func (m *sarifMapper) mapToRun(run *sarif.Run) {
	for _, report := range m.result.Reports {
		m.addReport(run, report)
	}
	if m.sourcePath != "" {
		run.AddArtifact(sarif.NewArtifact().
			WithLocation(sarif.NewArtifactLocation().WithURI(m.normalizeURI(m.sourcePath))))
	}
	m.addInvocation(run)
	m.addProperties(run)
}

// addReport emits one result per violation and warning, or a single pass
// result for a clean report.
func (m *sarifMapper) addReport(run *sarif.Run, report *entities.ValidationReport) {
	if len(report.Violations) == 0 && len(report.Warnings) == 0 {
		ruleID := string(report.Gate)
		m.addRule(run, ruleID, report.Gate, values.SeverityInfo)

		result := sarif.NewRuleResult(ruleID)
		result.Level = "note"
		result.Kind = "pass"
		result.Message = sarif.NewTextMessage(m.passMessage(report))
		m.locate(result)
		result.WithProperties(m.reportProperties(report))
		run.AddResult(result)
		return
	}

	for _, v := range report.Violations {
		run.AddResult(m.violationResult(run, report, v, false))
	}
	for _, v := range report.Warnings {
		run.AddResult(m.violationResult(run, report, v, true))
	}
}

func (m *sarifMapper) violationResult(run *sarif.Run, report *entities.ValidationReport, v entities.Violation, warning bool) *sarif.Result {
	ruleID := fmt.Sprintf("%s/%s", report.Gate, v.Code)
	m.addRule(run, ruleID, report.Gate, v.Severity)

	result := sarif.NewRuleResult(ruleID)
	if warning {
		result.Level = "warning"
		result.Kind = "review"
	} else {
		result.Level = m.mapSeverityToLevel(v.Severity)
		result.Kind = "fail"
	}
	result.Message = sarif.NewTextMessage(v.String())
	m.locate(result)

	props := m.reportProperties(report)
	props.Add("severity", string(v.Severity))
	if v.Subject != "" {
		props.Add("subject", v.Subject)
	}
	if v.Expected != nil {
		props.Add("expected", v.Expected)
	}
	if v.Actual != nil {
		props.Add("actual", v.Actual)
	}
	result.WithProperties(props)
	return result
}

// addRule registers a rule once per ID.
func (m *sarifMapper) addRule(run *sarif.Run, id string, gate entities.Gate, severity values.Severity) {
	if m.rules[id] {
		return
	}
	m.rules[id] = true

	rule := sarif.NewReportingDescriptor().WithID(id)
	rule.WithName(id)
	desc := fmt.Sprintf("%s gate check", gate)
	rule.WithShortDescription(&sarif.MultiformatMessageString{Text: &desc})
	rule.WithDefaultConfiguration(&sarif.ReportingConfiguration{
		Level: m.mapSeverityToLevel(severity),
	})

	props := sarif.NewPropertyBag()
	props.WithTags([]string{string(gate)})
	rule.WithProperties(props)

	run.Tool.Driver.AddRule(rule)
}

func (m *sarifMapper) reportProperties(report *entities.ValidationReport) *sarif.PropertyBag {
	props := sarif.NewPropertyBag()
	props.Add("gate", string(report.Gate))
	if report.Checkpoint != "" {
		props.Add("checkpoint", string(report.Checkpoint))
	}
	if report.Score != nil {
		props.Add("score", *report.Score)
	}
	return props
}

func (m *sarifMapper) locate(result *sarif.Result) {
	if m.sourcePath == "" {
		return
	}
	pLoc := sarif.NewPhysicalLocation().
		WithArtifactLocation(sarif.NewArtifactLocation().WithURI(m.normalizeURI(m.sourcePath)))
	result.Locations = []*sarif.Location{sarif.NewLocation().WithPhysicalLocation(pLoc)}
}

// mapSeverityToLevel converts a violation severity to a SARIF level.
func (m *sarifMapper) mapSeverityToLevel(severity values.Severity) string {
	switch severity {
	case values.SeverityCritical, values.SeverityHigh:
		return "error"
	case values.SeverityMedium, values.SeverityLow:
		return "warning"
	case values.SeverityInfo:
		return "note"
	default:
		return "warning"
	}
}

// normalizeURI converts a file path to a SARIF-compliant URI.
func (m *sarifMapper) normalizeURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path) // Fallback to original
	}

	if m.cwd != "" {
		if rel, err := filepath.Rel(m.cwd, abs); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}

	return "file://" + filepath.ToSlash(abs)
}

// addInvocation adds run metadata to the run.
func (m *sarifMapper) addInvocation(run *sarif.Run) {
	invocation := sarif.NewInvocation()
	invocation.ExecutionSuccessful = ptrBool(m.result.Error == "")

	if at := m.result.Metadata.ProcessedAt; !at.IsZero() {
		start := at.UTC().Format("2006-01-02T15:04:05.000Z")
		end := at.Add(m.result.Metadata.Duration).UTC().Format("2006-01-02T15:04:05.000Z")
		invocation.StartTimeUtc = &start
		invocation.EndTimeUtc = &end
	}

	if hostname, err := os.Hostname(); err == nil {
		invocation.Machine = &hostname
	}

	if m.cwd != "" {
		cwd := "file://" + filepath.ToSlash(m.cwd)
		invocation.WorkingDirectory = sarif.NewArtifactLocation().WithURI(cwd)
	}

	props := sarif.NewPropertyBag()
	if m.result.RunID != "" {
		props.Add("runId", m.result.RunID)
	}
	if m.result.StateHash != "" {
		props.Add("stateHash", m.result.StateHash)
	}
	if m.result.Error != "" {
		props.Add("error", m.result.Error)
	}
	invocation.WithProperties(props)

	run.AddInvocation(invocation)
}

// addProperties adds summary statistics to run properties.
func (m *sarifMapper) addProperties(run *sarif.Run) {
	props := sarif.NewPropertyBag()
	props.Add("passed", m.result.Passed)
	props.Add("reports", len(m.result.Reports))
	props.Add("violations", m.result.ViolationCount())
	if fp := m.result.Fingerprint; fp != nil {
		props.Add("fingerprintDecision", string(fp.Decision.Action))
		props.Add("passRatio", fp.PassRatio)
	}
	if c := m.result.Correction; c != nil {
		props.Add("correctionStatus", string(c.Status))
	}
	run.WithProperties(props)
}

func (m *sarifMapper) passMessage(report *entities.ValidationReport) string {
	if report.Checkpoint != "" {
		return fmt.Sprintf("Gate %s passed at %s", report.Gate, report.Checkpoint)
	}
	return fmt.Sprintf("Gate %s passed", report.Gate)
}

func ptrBool(b bool) *bool {
	return &b
}
