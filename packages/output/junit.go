package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitbatch/packages/core/runner"
)

// JUnit XML structures

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite is one run against one endpoint
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase is one record
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a record that produced no body
type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitSkipped represents a record already in the ledger, or one only planned
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter writes a run report as JUnit XML so CI systems can show
// per-record outcomes.
type JUnitFormatter struct {
	Collector
	writer io.Writer
	name   string
	result *runner.RunResult
	now    func() time.Time
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer: os.Stdout,
		name:   "hitbatch",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

// JUnitWithSuiteName names the suite, usually after the target URL.
func JUnitWithSuiteName(name string) JUnitOption {
	return func(f *JUnitFormatter) {
		f.name = name
	}
}

func (f *JUnitFormatter) FormatResult(result *runner.RunResult) {
	f.result = result
}

func (f *JUnitFormatter) FormatError(err error) {
	// Errors are included in individual test cases
}

func (f *JUnitFormatter) FormatHeader(version string) {
	// No header needed for JUnit XML
}

// Flush writes the accumulated JUnit XML output
func (f *JUnitFormatter) Flush() error {
	timestamp := f.now().Format(time.RFC3339)
	records := f.Records()

	suite := JUnitTestSuite{
		Name:      f.name,
		Tests:     len(records),
		Timestamp: timestamp,
		TestCases: make([]JUnitTestCase, 0, len(records)),
	}
	if f.result != nil {
		suite.Time = f.result.Summary.Duration.Seconds()
	}

	for _, r := range records {
		tc := JUnitTestCase{
			Name:      fmt.Sprintf("record %d: %s", r.Index+1, truncate(r.Data, 120)),
			ClassName: f.name,
			Time:      r.Duration / 1000,
		}

		switch r.Outcome {
		case OutcomeSkipped:
			suite.Skipped++
			tc.Skipped = &JUnitSkipped{Message: "already done"}
		case OutcomePlanned:
			suite.Skipped++
			tc.Skipped = &JUnitSkipped{Message: "dry run"}
		case OutcomeFailed:
			suite.Failures++
			tc.Failure = &JUnitFailure{
				Message: fmt.Sprintf("no body after %d attempt(s)", r.Attempts),
				Type:    "RequestFailure",
				Content: r.Error,
			}
		}

		suite.TestCases = append(suite.TestCases, tc)
	}

	suites := JUnitTestSuites{
		Name:       "hitbatch",
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Skipped:    suite.Skipped,
		Time:       suite.Time,
		Timestamp:  timestamp,
		TestSuites: []JUnitTestSuite{suite},
	}

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	return encoder.Encode(suites)
}
