// Package output provides formatted console narration for the CLI and probes.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Writer handles CLI output formatting.
type Writer struct {
	out   io.Writer
	err   io.Writer
	color bool
	quiet bool
}

// New creates a new Writer with default settings.
func New() *Writer {
	return &Writer{
		out:   os.Stdout,
		err:   os.Stderr,
		color: isTerminal(),
	}
}

// NewWithWriters creates a Writer with custom io.Writers (for testing).
func NewWithWriters(out, err io.Writer, color bool) *Writer {
	return &Writer{
		out:   out,
		err:   err,
		color: color,
	}
}

// SetQuiet enables or disables quiet mode.
func (w *Writer) SetQuiet(quiet bool) {
	w.quiet = quiet
}

// Print writes to stdout.
func (w *Writer) Print(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format, args...)
}

// Println writes a line to stdout.
func (w *Writer) Println(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Error writes to stderr.
func (w *Writer) Error(format string, args ...interface{}) {
	fmt.Fprintf(w.err, format, args...)
}

// Errorln writes a line to stderr.
func (w *Writer) Errorln(format string, args ...interface{}) {
	fmt.Fprintf(w.err, format+"\n", args...)
}

// Info prints an info message (skipped in quiet mode).
func (w *Writer) Info(format string, args ...interface{}) {
	if w.quiet {
		return
	}
	w.Println(format, args...)
}

// Warning prints a warning message.
func (w *Writer) Warning(format string, args ...interface{}) {
	if w.color {
		w.Errorln("\033[33mwarning: "+format+"\033[0m", args...)
	} else {
		w.Errorln("warning: "+format, args...)
	}
}

// ErrorPrefix prints an error message with wbtest prefix to stderr.
func (w *Writer) ErrorPrefix(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Errorln("%swbtest:%s %s", red, reset, msg)
	} else {
		w.Errorln("wbtest: %s", msg)
	}
}

// Banner prints the run header followed by an underline of the given width.
func (w *Writer) Banner(title string, width int) {
	if w.color {
		w.Println("%s%s%s", bold+cyan, title, reset)
	} else {
		w.Println("%s", title)
	}
	w.Println("%s", strings.Repeat("=", width))
}

// Rule prints a horizontal rule.
func (w *Writer) Rule(char string, width int) {
	w.Println("%s", strings.Repeat(char, width))
}

// TestStart prints the start of a test invocation.
func (w *Writer) TestStart(name, command string) {
	if w.quiet {
		return
	}
	w.Println("")
	if w.color {
		w.Println("🚀 %s%s%s", bold+cyan, name, reset)
		w.Println("%sRunning: %s%s", dim, command, reset)
	} else {
		w.Println("🚀 %s", name)
		w.Println("Running: %s", command)
	}
	w.Rule("-", 50)
}

// TestDuration prints the wall-clock duration of a finished test.
func (w *Writer) TestDuration(d time.Duration) {
	if w.quiet {
		return
	}
	w.Println("⏱️  Duration: %.2fs", d.Seconds())
}

// Captured echoes captured child output under a labelled header.
// Empty text prints nothing.
func (w *Writer) Captured(label, text string) {
	if w.quiet || text == "" {
		return
	}
	w.Println("%s", label)
	w.Println("%s", strings.TrimRight(text, "\n"))
}

// TestPassed prints a passed test marker.
func (w *Writer) TestPassed(name string) {
	if w.color {
		w.Println("%s✅ %s - PASSED%s", green, name, reset)
	} else {
		w.Println("✅ %s - PASSED", name)
	}
}

// TestFailed prints a failed test marker with its exit code.
func (w *Writer) TestFailed(name string, exitCode int) {
	if w.color {
		w.Println("%s❌ %s - FAILED (exit code: %d)%s", red, name, exitCode, reset)
	} else {
		w.Println("❌ %s - FAILED (exit code: %d)", name, exitCode)
	}
}

// TestTimedOut prints a timeout marker.
func (w *Writer) TestTimedOut(name string, timeout time.Duration) {
	if w.color {
		w.Println("%s⏰ %s - TIMEOUT (%s)%s", yellow, name, formatSeconds(timeout), reset)
	} else {
		w.Println("⏰ %s - TIMEOUT (%s)", name, formatSeconds(timeout))
	}
}

// TestErrored prints a marker for a test that could not be executed.
func (w *Writer) TestErrored(name string, err error) {
	if w.color {
		w.Println("%s💥 %s - ERROR: %v%s", red, name, err, reset)
	} else {
		w.Println("💥 %s - ERROR: %v", name, err)
	}
}

// Waiting prints the inter-test settle message.
func (w *Writer) Waiting(d time.Duration) {
	if w.quiet {
		return
	}
	w.Println("")
	w.Println("⏳ Waiting %s before next test...", formatSeconds(d))
}

// Heading prints a probe section heading preceded by a blank line.
func (w *Writer) Heading(format string, args ...interface{}) {
	w.Println("")
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Println("%s%s%s", bold, msg, reset)
	} else {
		w.Println("%s", msg)
	}
}

// Pass prints a ✅ step line.
func (w *Writer) Pass(format string, args ...interface{}) {
	w.marker("✅", green, format, args...)
}

// Fail prints a ❌ step line.
func (w *Writer) Fail(format string, args ...interface{}) {
	w.marker("❌", red, format, args...)
}

// Note prints an ℹ️ step line.
func (w *Writer) Note(format string, args ...interface{}) {
	w.marker("ℹ️ ", dim, format, args...)
}

// Caution prints a ⚠️ step line.
func (w *Writer) Caution(format string, args ...interface{}) {
	w.marker("⚠️ ", yellow, format, args...)
}

// Snapshot prints a 📸 line for a saved screenshot.
func (w *Writer) Snapshot(format string, args ...interface{}) {
	w.marker("📸", cyan, format, args...)
}

// Detail prints an indented detail line.
func (w *Writer) Detail(format string, args ...interface{}) {
	w.Println("  - %s", fmt.Sprintf(format, args...))
}

func (w *Writer) marker(symbol, color, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Println("%s%s %s%s", color, symbol, msg, reset)
	} else {
		w.Println("%s %s", symbol, msg)
	}
}

// SummaryHeader prints a summary section header.
func (w *Writer) SummaryHeader(title string) {
	w.Println("")
	w.Rule("=", 60)
	if w.color {
		w.Println("%s%s%s", bold+cyan, title, reset)
	} else {
		w.Println("%s", title)
	}
	w.Rule("=", 60)
}

// SummaryItem prints a labeled summary item with value.
func (w *Writer) SummaryItem(label, value string) {
	if w.color {
		w.Println("%s%s:%s %s", dim, label, reset, value)
	} else {
		w.Println("%s: %s", label, value)
	}
}

// SummaryPassed prints a passed/success items summary.
func (w *Writer) SummaryPassed(label, value string) {
	if w.color {
		w.Println("%s%s:%s %s%s ✅%s", dim, label, reset, green, value, reset)
	} else {
		w.Println("%s: %s ✅", label, value)
	}
}

// SummaryFailed prints a failed items summary.
func (w *Writer) SummaryFailed(label, value string) {
	if w.color {
		w.Println("%s%s:%s %s%s ❌%s", dim, label, reset, red, value, reset)
	} else {
		w.Println("%s: %s ❌", label, value)
	}
}

// SummarySectionLabel prints a label for a summary section.
func (w *Writer) SummarySectionLabel(label string) {
	w.Println("")
	if w.color {
		w.Println("%s%s%s", bold, label, reset)
	} else {
		w.Println("%s", label)
	}
	w.Rule("-", 40)
}

// SummaryLine prints one pre-formatted per-test result line.
func (w *Writer) SummaryLine(passed bool, line string) {
	switch {
	case !w.color:
		w.Println("%s", line)
	case passed:
		w.Println("%s%s%s", green, line, reset)
	default:
		w.Println("%s%s%s", red, line, reset)
	}
}

// FinalSuccess prints a final success message.
func (w *Writer) FinalSuccess(format string, args ...interface{}) {
	w.Println("")
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Println("%s%s%s", green, msg, reset)
	} else {
		w.Println("%s", msg)
	}
}

// FinalFailure prints a final failure message.
func (w *Writer) FinalFailure(format string, args ...interface{}) {
	w.Println("")
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Println("%s%s%s", red, msg, reset)
	} else {
		w.Println("%s", msg)
	}
}

// ValidationSuccess prints a validation success message.
func (w *Writer) ValidationSuccess(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Println("%s%s%s %s", green, "✓", reset, msg)
	} else {
		w.Println("%s", msg)
	}
}

// Hint prints a hint message for the user.
func (w *Writer) Hint(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Println("%s%s%s", dim, msg, reset)
	} else {
		w.Println("%s", msg)
	}
}

// formatSeconds renders whole seconds without decimals.
func formatSeconds(d time.Duration) string {
	secs := d.Seconds()
	if secs == float64(int64(secs)) {
		return fmt.Sprintf("%ds", int64(secs))
	}
	return fmt.Sprintf("%.2fs", secs)
}

// isTerminal returns true if stdout is a terminal.
func isTerminal() bool {
	if fi, _ := os.Stdout.Stat(); fi != nil {
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// ANSI color codes.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)
