package output

import (
	"bytes"
	"testing"

	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
)

// FuzzSARIFGeneration fuzzes SARIF output generation
func FuzzSARIFGeneration(f *testing.F) {
	seeds := []string{
		"test output",
		"",
		"room: kitchen <&>",
	}

	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, message string) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("PANIC on input %q: %v", message, r)
			}
		}()

		rep := entities.NewValidationReport(entities.GateDrift, "", testTime)
		rep.AddViolation(entities.Violation{Code: message, Subject: message, Message: message})
		res := &dto.RunResult{Error: message}
		res.AddReport(rep)

		buf := &bytes.Buffer{}
		formatter := NewSARIFFormatter(buf, "run.yaml")
		_ = formatter.Format(res)
	})
}
