// Package runner executes test specifications sequentially as isolated
// child processes and records one result per specification.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/acarl005/stripansi"
	"go.uber.org/zap"

	"github.com/promptworkbench/wbtest/internal/output"
	"github.com/promptworkbench/wbtest/internal/shell"
)

// TimeoutOutput is the output recorded for a test that exceeded its timeout.
const TimeoutOutput = "Timeout"

// TestSpec is one runnable test: a named shell command with a timeout.
type TestSpec struct {
	Name    string
	Command string
	Timeout time.Duration
}

// TestResult is the outcome of running a TestSpec.
type TestResult struct {
	Name    string
	Passed  bool
	Output  string
	Command string

	// Duration is the wall-clock time of the run; the configured timeout
	// when the test timed out, zero when the process never started.
	Duration time.Duration

	// ExitCode is the child's exit status, or -1 when it did not exit
	// on its own (timeout, spawn failure, interruption).
	ExitCode int
	TimedOut bool
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Runner.
type Options struct {
	WorkDir string        // Child working directory; empty inherits ours
	Delay   time.Duration // Pause between consecutive tests
	Env     []string      // Extra KEY=VALUE entries appended to os.Environ()
	Output  *output.Writer
	Logger  *zap.Logger
	Sleep   SleepFunc // nil uses a context-aware timer

	// Grace is how long a timed-out test may take to exit after SIGTERM,
	// and how long output pipes may stay open after it exits, before the
	// test's process group is killed. Zero uses shell.DefaultGrace.
	Grace time.Duration
}

// Runner executes test specifications one at a time.
type Runner struct {
	workDir string
	delay   time.Duration
	env     []string
	out     *output.Writer
	log     *zap.Logger
	sleep   SleepFunc
	grace   time.Duration
}

// New creates a Runner.
func New(opts Options) *Runner {
	r := &Runner{
		workDir: opts.WorkDir,
		delay:   opts.Delay,
		env:     opts.Env,
		out:     opts.Output,
		log:     opts.Logger,
		sleep:   opts.Sleep,
		grace:   opts.Grace,
	}
	if r.out == nil {
		r.out = output.New()
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.sleep == nil {
		r.sleep = sleepContext
	}
	if r.grace <= 0 {
		r.grace = shell.DefaultGrace
	}
	return r
}

// RunAll executes specs in order with the configured delay between
// consecutive tests. A cancelled context stops the run; results collected
// so far are returned together with the context error.
func (r *Runner) RunAll(ctx context.Context, specs []TestSpec) ([]TestResult, error) {
	results := make([]TestResult, 0, len(specs))
	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		results = append(results, r.RunTest(ctx, spec))

		if i < len(specs)-1 && r.delay > 0 {
			r.out.Waiting(r.delay)
			if err := r.sleep(ctx, r.delay); err != nil {
				return results, err
			}
		}
	}
	return results, ctx.Err()
}

// RunTest executes a single spec. It never returns an error: every failure
// mode is folded into the result.
func (r *Runner) RunTest(ctx context.Context, spec TestSpec) TestResult {
	r.out.TestStart(spec.Name, spec.Command)
	log := r.log.With(zap.String("test", spec.Name))

	result := r.execute(ctx, spec, log)

	switch {
	case result.TimedOut:
		r.out.TestTimedOut(spec.Name, spec.Timeout)
	case result.ExitCode == -1 && result.Duration == 0:
		r.out.TestErrored(spec.Name, errors.New(result.Output))
	default:
		r.out.TestDuration(result.Duration)
		if result.Passed {
			r.out.TestPassed(spec.Name)
		} else {
			r.out.TestFailed(spec.Name, result.ExitCode)
		}
	}

	log.Info("test finished",
		zap.Bool("passed", result.Passed),
		zap.Int("exit_code", result.ExitCode),
		zap.Bool("timed_out", result.TimedOut),
		zap.Duration("duration", result.Duration),
	)
	return result
}

func (r *Runner) execute(parent context.Context, spec TestSpec, log *zap.Logger) TestResult {
	result := TestResult{
		Name:     spec.Name,
		Command:  spec.Command,
		ExitCode: -1,
	}

	ctx := parent
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, spec.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := shell.Command(ctx, spec.Command)
	cmd.Dir = r.workDir
	cmd.Env = append(os.Environ(), r.env...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.grace

	start := time.Now()
	if err := cmd.Start(); err != nil {
		log.Warn("failed to start test", zap.Error(err))
		result.Output = err.Error()
		return result
	}
	log.Debug("test started", zap.String("command", spec.Command), zap.Int("pid", cmd.Process.Pid))

	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil
	leftovers := errors.Is(waitErr, exec.ErrWaitDelay)
	// Background children may outlive the shell; none survive the test.
	if err := shell.Kill(cmd); err != nil {
		log.Debug("process group already gone", zap.Error(err))
	}

	if timedOut {
		result.Output = TimeoutOutput
		result.Duration = spec.Timeout
		result.TimedOut = true
		return result
	}

	result.Duration = elapsed
	outText := stripansi.Strip(stdout.String())
	errText := stripansi.Strip(stderr.String())
	r.out.Captured("📤 Output:", outText)
	r.out.Captured("⚠️  Stderr:", errText)

	if parent.Err() != nil {
		result.Output = parent.Err().Error()
		return result
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil, leftovers && cmd.ProcessState != nil && cmd.ProcessState.Success():
		if leftovers {
			log.Warn("test left background processes holding its output", zap.Duration("grace", r.grace))
		}
		result.Passed = true
		result.ExitCode = 0
		result.Output = outText
	case errors.As(waitErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		result.Output = errText
	default:
		result.Output = waitErr.Error()
	}
	return result
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
