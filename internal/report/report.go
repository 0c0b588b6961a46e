// Package report aggregates test results, persists them as JSON and
// renders the console summary.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/promptworkbench/wbtest/internal/output"
	"github.com/promptworkbench/wbtest/internal/runner"
	"github.com/promptworkbench/wbtest/pkg/wbtest"
)

const (
	filePrefix    = "test_report_"
	fileTimestamp = "20060102_150405"
	isoTimestamp  = "2006-01-02T15:04:05.000000"
	nameWidth     = 25
)

// Report is the aggregate of one run.
type Report struct {
	RunID         string
	Timestamp     time.Time
	StartedAt     time.Time
	FinishedAt    time.Time
	TotalTests    int
	Passed        int
	Failed        int
	TotalDuration time.Duration
	Tests         []runner.TestResult
}

// Build aggregates results, keeping their order. The report timestamp is
// the finish time.
func Build(results []runner.TestResult, startedAt, finishedAt time.Time) *Report {
	r := &Report{
		RunID:      uuid.NewString(),
		Timestamp:  finishedAt,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		TotalTests: len(results),
		Tests:      append([]runner.TestResult(nil), results...),
	}
	for _, res := range results {
		if res.Passed {
			r.Passed++
		} else {
			r.Failed++
		}
		r.TotalDuration += res.Duration
	}
	return r
}

// SuccessRate returns passed/total as a percentage; zero for an empty run.
func (r *Report) SuccessRate() float64 {
	if r.TotalTests == 0 {
		return 0
	}
	return float64(r.Passed) / float64(r.TotalTests) * 100
}

// ExitCode is the process exit status for the run.
func (r *Report) ExitCode() int {
	if r.Failed == 0 {
		return wbtest.ExitSuccess
	}
	return wbtest.ExitFailure
}

// FileName returns the report file name for the given time.
func FileName(t time.Time) string {
	return filePrefix + t.Format(fileTimestamp) + ".json"
}

type jsonResult struct {
	Name     string  `json:"name"`
	Passed   bool    `json:"passed"`
	Output   string  `json:"output"`
	Duration float64 `json:"duration"`
	Command  string  `json:"command"`
	ExitCode int     `json:"exit_code"`
	TimedOut bool    `json:"timed_out"`
}

type jsonReport struct {
	Timestamp     string       `json:"timestamp"`
	TotalTests    int          `json:"total_tests"`
	Passed        int          `json:"passed"`
	Failed        int          `json:"failed"`
	TotalDuration float64      `json:"total_duration"`
	Tests         []jsonResult `json:"tests"`
	RunID         string       `json:"run_id"`
	StartedAt     string       `json:"started_at"`
	FinishedAt    string       `json:"finished_at"`
	SuccessRate   float64      `json:"success_rate"`
}

// MarshalJSON renders durations in seconds and times in local ISO 8601.
func (r *Report) MarshalJSON() ([]byte, error) {
	doc := jsonReport{
		Timestamp:     r.Timestamp.Format(isoTimestamp),
		TotalTests:    r.TotalTests,
		Passed:        r.Passed,
		Failed:        r.Failed,
		TotalDuration: r.TotalDuration.Seconds(),
		Tests:         make([]jsonResult, 0, len(r.Tests)),
		RunID:         r.RunID,
		StartedAt:     r.StartedAt.Format(isoTimestamp),
		FinishedAt:    r.FinishedAt.Format(isoTimestamp),
		SuccessRate:   r.SuccessRate(),
	}
	for _, t := range r.Tests {
		doc.Tests = append(doc.Tests, jsonResult{
			Name:     t.Name,
			Passed:   t.Passed,
			Output:   t.Output,
			Duration: t.Duration.Seconds(),
			Command:  t.Command,
			ExitCode: t.ExitCode,
			TimedOut: t.TimedOut,
		})
	}
	return json.Marshal(doc)
}

// Write persists the report as indented JSON in dir and returns the file
// path. A report written within the same second replaces the earlier one.
func (r *Report) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	path := filepath.Join(dir, FileName(r.Timestamp))
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Print renders the summary block, one line per test and the final verdict.
// path is the saved report location; empty omits that line.
func (r *Report) Print(w *output.Writer, path string) {
	w.SummaryHeader("🧪 TEST SUMMARY")
	w.SummaryItem("Total Tests", fmt.Sprintf("%d", r.TotalTests))
	w.SummaryPassed("Passed", fmt.Sprintf("%d", r.Passed))
	w.SummaryFailed("Failed", fmt.Sprintf("%d", r.Failed))
	w.SummaryItem("Success Rate", fmt.Sprintf("%.1f%%", r.SuccessRate()))
	w.SummaryItem("Total Duration", fmt.Sprintf("%.2fs", r.TotalDuration.Seconds()))
	if path != "" {
		w.SummaryItem("Report saved", path)
	}

	w.SummarySectionLabel("📋 DETAILED RESULTS:")
	for _, t := range r.Tests {
		w.SummaryLine(t.Passed, ResultLine(t))
	}

	if r.Failed == 0 {
		w.FinalSuccess("🎉 All tests passed!")
	} else {
		w.FinalFailure("💥 %d tests failed!", r.Failed)
	}
}

// ResultLine formats one detailed-results line: status, name padded to a
// fixed display width, and duration.
func ResultLine(t runner.TestResult) string {
	status := "❌ FAIL"
	if t.Passed {
		status = "✅ PASS"
	}
	return fmt.Sprintf("%s | %s | %6.2fs", status, text.Pad(t.Name, nameWidth, ' '), t.Duration.Seconds())
}
