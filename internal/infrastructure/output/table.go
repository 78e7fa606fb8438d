package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/services"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// TableFormatter formats gate results as a human-readable table.
type TableFormatter struct {
	writer      io.Writer
	EnableColor bool
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{
		writer:      w,
		EnableColor: true, // Default to true, caller can disable
	}
}

// colorize returns the string wrapped in ANSI color codes if enabled.
func (f *TableFormatter) colorize(text, code string) string {
	if !f.EnableColor {
		return text
	}
	return code + text + colorReset
}

func (f *TableFormatter) rule() string {
	return f.colorize(strings.Repeat("─", 80), colorGray)
}

// Format writes the result as a table.
//
//nolint:errcheck // Table formatting errors are non-critical (best-effort terminal output)
func (f *TableFormatter) Format(result *dto.RunResult) error {
	fmt.Fprintln(f.writer, f.rule())
	if result.RunID != "" {
		fmt.Fprintf(f.writer, "Run: %s\n", f.colorize(result.RunID, colorBold))
	}
	if result.Source != "" {
		fmt.Fprintf(f.writer, "Source: %s\n", result.Source)
	}
	if result.StateHash != "" {
		fmt.Fprintf(f.writer, "State: %s\n", result.StateHash)
	}
	if !result.Metadata.ProcessedAt.IsZero() {
		fmt.Fprintf(f.writer, "Executed: %s\n", result.Metadata.ProcessedAt.Format(time.RFC3339))
		fmt.Fprintf(f.writer, "Duration: %s\n", result.Metadata.Duration.Round(time.Millisecond))
	}
	fmt.Fprintln(f.writer)

	if result.Hash != nil {
		f.formatHash(result.Hash)
	}
	if result.Preflight != nil {
		f.formatPreflight(result.Preflight)
	}

	if len(result.Reports) == 0 && result.Hash == nil {
		fmt.Fprintln(f.writer, "No gates executed.")
	}
	if len(result.Reports) > 0 {
		fmt.Fprintln(f.writer, f.colorize("Gates:", colorBold))
		fmt.Fprintln(f.writer, f.rule())
		for _, report := range result.Reports {
			f.formatReport(report)
		}
		fmt.Fprintln(f.writer, f.rule())
		fmt.Fprintln(f.writer)
	}

	if result.Fingerprint != nil {
		f.formatFingerprint(result.Fingerprint)
	}
	if result.Correction != nil {
		f.formatCorrection(result.Correction)
	}
	if result.Error != "" {
		fmt.Fprintf(f.writer, "%s: %s\n\n", f.colorize("Error", colorRed), result.Error)
	}

	if len(result.Reports) > 0 {
		f.formatSummary(result)
	}
	return nil
}

// formatReport formats a single gate report.
//
//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatReport(report *entities.ValidationReport) {
	symbol, color := f.getStatusInfo(report.Valid)
	name := string(report.Gate)
	if report.Checkpoint != "" {
		name += " @ " + string(report.Checkpoint)
	}
	fmt.Fprintf(f.writer, "%s %s\n", f.colorize(symbol, color), f.colorize(name, color))

	fmt.Fprintf(f.writer, "  Checks: %d\n", report.Checks)
	if report.Score != nil {
		if report.Threshold != nil {
			fmt.Fprintf(f.writer, "  Score: %.3f (threshold %.3f)\n", *report.Score, *report.Threshold)
		} else {
			fmt.Fprintf(f.writer, "  Score: %.3f\n", *report.Score)
		}
	}

	if len(report.Violations) > 0 {
		fmt.Fprintf(f.writer, "  %s:\n", f.colorize("Violations", colorRed))
		for _, v := range report.Violations {
			f.formatViolation(v)
		}
	}
	if len(report.Warnings) > 0 {
		fmt.Fprintf(f.writer, "  %s:\n", f.colorize("Warnings", colorYellow))
		for _, v := range report.Warnings {
			f.formatViolation(v)
		}
	}
	f.formatDetails(report.Details)

	fmt.Fprintln(f.writer)
}

// formatViolation formats one violation line with its expected and actual values.
//
//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatViolation(v entities.Violation) {
	severity := f.colorize(string(v.Severity), f.severityColor(v.Severity))
	fmt.Fprintf(f.writer, "    - (%s) %s\n", severity, v.String())
	if v.Expected != nil || v.Actual != nil {
		fmt.Fprintf(f.writer, "      expected %v, got %v\n", f.formatValue(v.Expected), f.formatValue(v.Actual))
	}
}

// formatDetails formats report diagnostics in key order.
//
//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatDetails(details map[string]any) {
	if len(details) == 0 {
		return
	}
	keys := make([]string, 0, len(details))
	for k, v := range details {
		if v == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return
	}

	fmt.Fprintln(f.writer, "  Details:")
	for _, k := range keys {
		fmt.Fprintf(f.writer, "    - %s: %s\n", f.colorize(k, colorBlue), f.formatValue(details[k]))
	}
}

// formatFingerprint formats the per-artifact comparison table and retry decision.
//
//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatFingerprint(fp *dto.FingerprintResponse) {
	fmt.Fprintln(f.writer, f.colorize("Fingerprint:", colorBold))
	fmt.Fprintln(f.writer, f.rule())
	if fp.Fingerprint != nil {
		fmt.Fprintf(f.writer, "Reference: %s\n", f.colorize(fp.Fingerprint.ReferenceArtifactID, colorCyan))
	}

	tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ARTIFACT\tTYPE\tSCORE\tRESULT\tRECOMMENDATION")
	for _, r := range fp.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ArtifactID, r.Type, f.formatScore(r), f.resultLabel(r), r.Recommendation)
	}
	_ = tw.Flush()

	fmt.Fprintf(f.writer, "Pass ratio: %.2f\n", fp.PassRatio)
	f.formatDecision(fp.Decision)
	fmt.Fprintln(f.writer)
}

func (f *TableFormatter) formatScore(r services.ArtifactResult) string {
	if r.Skipped {
		return "-"
	}
	return fmt.Sprintf("%.3f", r.Score)
}

func (f *TableFormatter) resultLabel(r services.ArtifactResult) string {
	label := "fail"
	switch {
	case r.Skipped:
		label = "skipped"
	case r.Passed:
		label = "pass"
	}
	if r.Critical {
		label += " (critical)"
	}
	return label
}

//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatDecision(d services.RetryDecision) {
	color := colorGreen
	if d.Action == values.ActionAbort {
		color = colorRed
	} else if d.Action != values.ActionProceed {
		color = colorYellow
	}
	fmt.Fprintf(f.writer, "Decision: %s (attempt %d)\n", f.colorize(string(d.Action), color), d.Attempt)
	if d.Reason != "" {
		fmt.Fprintf(f.writer, "  Reason: %s\n", d.Reason)
	}
	if len(d.Artifacts) > 0 {
		fmt.Fprintf(f.writer, "  Artifacts: %s\n", strings.Join(d.Artifacts, ", "))
	}
	if o := d.Overrides; o != nil {
		fmt.Fprintf(f.writer, "  Overrides: control=%.2f reference=%.2f guidance=%.1f preserve_seed=%t\n",
			o.ControlStrength, o.ReferenceStrength, o.GuidanceScale, o.PreserveSeed)
	}
}

// formatCorrection formats the correction loop history.
//
//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatCorrection(c *services.CorrectionOutcome) {
	fmt.Fprintln(f.writer, f.colorize("Correction:", colorBold))
	fmt.Fprintln(f.writer, f.rule())

	color := colorRed
	switch c.Status {
	case values.CorrectionValid:
		color = colorGreen
	case values.CorrectionBestEffort:
		color = colorYellow
	}
	fmt.Fprintf(f.writer, "Status: %s after %d passes\n", f.colorize(string(c.Status), color), c.PassesUsed)

	tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PASS\tSCORE\tVIOLATIONS\tAPPLIED\tSKIPPED\tERROR")
	for _, p := range c.History {
		fmt.Fprintf(tw, "%d\t%.1f\t%d\t%d\t%d\t%s\n",
			p.Pass, p.Score, len(p.Violations), p.Applied, len(p.Skipped), p.Error)
	}
	_ = tw.Flush()
	fmt.Fprintln(f.writer)
}

//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatHash(h *dto.HashResponse) {
	fmt.Fprintf(f.writer, "Hash (%s): %s\n", h.Backend, f.colorize(h.Hash, colorCyan))
	if h.Stored != "" {
		fmt.Fprintf(f.writer, "Stored: %s\n", h.Stored)
	}
	if h.Verified != nil {
		symbol, color := f.getStatusInfo(*h.Verified)
		label := "verified"
		if !*h.Verified {
			label = "mismatch"
		}
		fmt.Fprintf(f.writer, "%s %s\n", f.colorize(symbol, color), label)
	}
	fmt.Fprintln(f.writer)
}

//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatPreflight(p *dto.PreflightResponse) {
	if len(p.Errors) == 0 && len(p.Warnings) == 0 {
		return
	}
	fmt.Fprintln(f.writer, f.colorize("Preflight:", colorBold))
	for _, e := range p.Errors {
		fmt.Fprintf(f.writer, "  %s %s\n", f.colorize("✗", colorRed), e)
	}
	for _, w := range p.Warnings {
		fmt.Fprintf(f.writer, "  %s %s\n", f.colorize("⚠", colorYellow), w)
	}
	fmt.Fprintln(f.writer)
}

// formatSummary formats the summary statistics.
//
//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatSummary(result *dto.RunResult) {
	passed, warnings := 0, 0
	for _, r := range result.Reports {
		if r.Valid {
			passed++
		}
		warnings += len(r.Warnings)
	}

	fmt.Fprintln(f.writer, f.colorize("Summary:", colorBold))
	fmt.Fprintln(f.writer, f.rule())
	fmt.Fprintf(f.writer, "Gates:      %d total\n", len(result.Reports))
	fmt.Fprintf(f.writer, "  %s Passed: %d\n", f.colorize("✓", colorGreen), passed)
	fmt.Fprintf(f.writer, "  %s Failed: %d\n", f.colorize("✗", colorRed), len(result.Reports)-passed)
	fmt.Fprintf(f.writer, "Violations: %d\n", result.ViolationCount())
	fmt.Fprintf(f.writer, "Warnings:   %d\n", warnings)

	verdict, color := "PASSED", colorGreen
	if !result.Passed {
		verdict, color = "FAILED", colorRed
	}
	fmt.Fprintf(f.writer, "Result:     %s\n", f.colorize(verdict, color))
	fmt.Fprintln(f.writer, f.rule())
}

// formatValue formats a value for display
func (f *TableFormatter) formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.3f", v)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", value)
	}
}

func (f *TableFormatter) severityColor(s values.Severity) string {
	switch s {
	case values.SeverityCritical, values.SeverityHigh:
		return colorRed
	case values.SeverityMedium:
		return colorYellow
	default:
		return colorGray
	}
}

// getStatusInfo returns a symbol and color for a pass/fail outcome.
func (f *TableFormatter) getStatusInfo(valid bool) (string, string) {
	if valid {
		return "✓", colorGreen
	}
	return "✗", colorRed
}
