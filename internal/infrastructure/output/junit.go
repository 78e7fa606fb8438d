package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
)

// JUnitFormatter formats gate results as JUnit XML. Each gate report is a
// test case; an invalid report is a failure.
type JUnitFormatter struct {
	writer io.Writer
}

// NewJUnitFormatter creates a new JUnit formatter.
func NewJUnitFormatter(w io.Writer) *JUnitFormatter {
	return &JUnitFormatter{
		writer: w,
	}
}

// JUnitTestSuites JUnit XML structures
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Content string `xml:",chardata"`
}

type JUnitError struct {
	Message string `xml:"message,attr"`
	Content string `xml:",chardata"`
}

type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// Format writes the result as JUnit XML.
func (f *JUnitFormatter) Format(result *dto.RunResult) error {
	name := result.RunID
	if name == "" {
		name = result.Source
	}
	suite := JUnitTestSuite{
		Name: name,
		Time: result.Metadata.Duration.Seconds(),
	}

	for _, report := range result.Reports {
		c := JUnitTestCase{
			Name:      caseName(report),
			ClassName: string(report.Gate),
		}
		if !report.Valid {
			c.Failure = &JUnitFailure{
				Message: report.Summary(),
				Content: formatViolations(report),
			}
			suite.Failures++
		}
		suite.TestCases = append(suite.TestCases, c)
		suite.Tests++
	}

	// An error that stopped the pipeline before any report becomes one
	// errored case so CI does not read the empty suite as success.
	if result.Error != "" {
		suite.TestCases = append(suite.TestCases, JUnitTestCase{
			Name:      "pipeline",
			ClassName: "plumbline",
			Error:     &JUnitError{Message: result.Error},
		})
		suite.Tests++
		suite.Errors++
	}

	suites := JUnitTestSuites{
		Name:       "Plumbline Gates",
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Errors:     suite.Errors,
		Time:       suite.Time,
		TestSuites: []JUnitTestSuite{suite},
	}

	_, err := f.writer.Write([]byte(xml.Header))
	if err != nil {
		return err
	}

	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(suites); err != nil {
		return err
	}

	_, err = f.writer.Write([]byte("\n"))
	return err
}

func caseName(report *entities.ValidationReport) string {
	if report.Checkpoint == "" {
		return string(report.Gate)
	}
	return fmt.Sprintf("%s@%s", report.Gate, report.Checkpoint)
}

func formatViolations(report *entities.ValidationReport) string {
	var out strings.Builder
	for _, v := range report.Violations {
		fmt.Fprintf(&out, "%s (%s)\n", v.String(), v.Severity)
	}
	return out.String()
}
