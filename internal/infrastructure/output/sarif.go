// Package output provides formatters for gate results.
package output

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v3/pkg/report/v210/sarif"
	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/version"
)

// SARIFFormatter formats gate results as SARIF 2.1.0 JSON.
// It maps violation codes to SARIF rules and violations to results located
// in the input document.
//
// Usage:
//
//	formatter := output.NewSARIFFormatter(os.Stdout, "runs/run.yaml")
//	if err := formatter.Format(result); err != nil {
//	    log.Fatal(err)
//	}
type SARIFFormatter struct {
	writer     io.Writer
	sourcePath string
}

// NewSARIFFormatter creates a new SARIF formatter.
// sourcePath is the document results are located in when the result
// carries no source of its own.
func NewSARIFFormatter(writer io.Writer, sourcePath string) *SARIFFormatter {
	return &SARIFFormatter{
		writer:     writer,
		sourcePath: sourcePath,
	}
}

// Format writes the result as SARIF 2.1.0 JSON.
// Returns error if SARIF creation or marshaling fails.
func (f *SARIFFormatter) Format(result *dto.RunResult) error {
	report := sarif.NewReport()

	run := sarif.NewRunWithInformationURI("Plumbline", "https://github.com/plumbline-dev/plumbline")
	toolVersion := result.Version
	if toolVersion == "" {
		toolVersion = version.Get().Version
	}
	run.Tool.Driver.Version = &toolVersion
	run.Tool.Driver.Organization = ptrString("Plumbline")

	source := result.Source
	if source == "" {
		source = f.sourcePath
	}
	mapper := newSARIFMapper(result, source)
	mapper.mapToRun(run)

	report.AddRun(run)

	if err := report.Write(f.writer); err != nil {
		return fmt.Errorf("failed to write SARIF output: %w", err)
	}

	_, err := f.writer.Write([]byte("\n"))
	return err
}

func ptrString(s string) *string {
	return &s
}
