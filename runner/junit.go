package runner

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gbhanda/volttron-ci/types"
)

// junitTestSuites is the <testsuites> wrapper some pytest versions emit.
type junitTestSuites struct {
	XMLName xml.Name         `xml:"testsuites"`
	Suites  []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Skipped  int             `xml:"skipped,attr"`
	Time     float64         `xml:"time,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *junitOutcome `xml:"failure"`
	Error     *junitOutcome `xml:"error"`
	Skipped   *junitOutcome `xml:"skipped"`
}

type junitOutcome struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// ParseReportFile reads a JUnit XML report produced by the test step and
// folds it into per-case counts.
func ParseReportFile(path string) (*types.TestReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}
	return parseReport(data)
}

// parseReport handles both the bare <testsuite> root and the <testsuites>
// wrapper.
func parseReport(data []byte) (*types.TestReport, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty report file")
	}

	var suites []junitTestSuite

	var wrapped junitTestSuites
	if err := xml.Unmarshal(data, &wrapped); err == nil {
		suites = wrapped.Suites
	} else {
		var single junitTestSuite
		if err := xml.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("parsing report: %w", err)
		}
		suites = []junitTestSuite{single}
	}

	report := &types.TestReport{}
	for _, suite := range suites {
		report.Tests += suite.Tests
		report.Failures += suite.Failures
		report.Errors += suite.Errors
		report.Skipped += suite.Skipped
		report.Duration += time.Duration(suite.Time * float64(time.Second))

		for _, c := range suite.Cases {
			report.Cases = append(report.Cases, types.TestCase{
				Name:      c.Name,
				ClassName: c.ClassName,
				Status:    caseStatus(c),
				Message:   caseMessage(c),
				Duration:  time.Duration(c.Time * float64(time.Second)),
			})
		}
	}
	return report, nil
}

func caseStatus(c junitTestCase) types.CaseStatus {
	switch {
	case c.Error != nil:
		return types.CaseStatusError
	case c.Failure != nil:
		return types.CaseStatusFail
	case c.Skipped != nil:
		return types.CaseStatusSkip
	default:
		return types.CaseStatusPass
	}
}

func caseMessage(c junitTestCase) string {
	var o *junitOutcome
	switch {
	case c.Error != nil:
		o = c.Error
	case c.Failure != nil:
		o = c.Failure
	case c.Skipped != nil:
		o = c.Skipped
	default:
		return ""
	}
	if o.Message != "" {
		return o.Message
	}
	return strings.TrimSpace(o.Body)
}
