//go:build !windows

package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promptworkbench/wbtest/internal/output"
)

type recordedSleeps struct {
	calls []time.Duration
}

func (s *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return ctx.Err()
}

func newTestRunner(t *testing.T, delay time.Duration) (*Runner, *bytes.Buffer, *recordedSleeps) {
	t.Helper()
	stdout := &bytes.Buffer{}
	sleeps := &recordedSleeps{}
	r := New(Options{
		WorkDir: t.TempDir(),
		Delay:   delay,
		Output:  output.NewWithWriters(stdout, &bytes.Buffer{}, false),
		Logger:  zap.NewNop(),
		Sleep:   sleeps.sleep,
	})
	return r, stdout, sleeps
}

func TestRunAll_MixedOutcomes(t *testing.T) {
	r, _, _ := newTestRunner(t, 0)
	specs := []TestSpec{
		{Name: "A", Command: "exit 0", Timeout: 5 * time.Second},
		{Name: "B", Command: "sleep 10", Timeout: time.Second},
		{Name: "C", Command: "exit 3", Timeout: 5 * time.Second},
	}

	results, err := r.RunAll(context.Background(), specs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "A", results[0].Name)
	assert.True(t, results[0].Passed)
	assert.Equal(t, "", results[0].Output)
	assert.Equal(t, 0, results[0].ExitCode)

	assert.Equal(t, "B", results[1].Name)
	assert.False(t, results[1].Passed)
	assert.Equal(t, TimeoutOutput, results[1].Output)
	assert.Equal(t, time.Second, results[1].Duration)
	assert.True(t, results[1].TimedOut)

	assert.Equal(t, "C", results[2].Name)
	assert.False(t, results[2].Passed)
	assert.Equal(t, "", results[2].Output)
	assert.Equal(t, 3, results[2].ExitCode)

	for i, res := range results {
		assert.Equal(t, specs[i].Command, res.Command)
	}
}

func TestRunTest_CapturesStdoutOnSuccess(t *testing.T) {
	r, stdout, _ := newTestRunner(t, 0)

	res := r.RunTest(context.Background(), TestSpec{Name: "echo", Command: "echo hello; echo noise >&2", Timeout: 5 * time.Second})

	assert.True(t, res.Passed)
	assert.Equal(t, "hello\n", res.Output)
	assert.Contains(t, stdout.String(), "✅ echo - PASSED")
	assert.Contains(t, stdout.String(), "📤 Output:\nhello")
}

func TestRunTest_CapturesStderrOnFailure(t *testing.T) {
	r, stdout, _ := newTestRunner(t, 0)

	res := r.RunTest(context.Background(), TestSpec{Name: "fail", Command: "echo progress; echo oops >&2; exit 2", Timeout: 5 * time.Second})

	assert.False(t, res.Passed)
	assert.Equal(t, "oops\n", res.Output)
	assert.Equal(t, 2, res.ExitCode)
	assert.Contains(t, stdout.String(), "❌ fail - FAILED (exit code: 2)")
}

func TestRunTest_StripsANSI(t *testing.T) {
	r, _, _ := newTestRunner(t, 0)

	res := r.RunTest(context.Background(), TestSpec{Name: "color", Command: `printf '\033[32mgreen\033[0m'`, Timeout: 5 * time.Second})

	assert.True(t, res.Passed)
	assert.Equal(t, "green", res.Output)
}

func TestRunTest_SpawnError(t *testing.T) {
	stdout := &bytes.Buffer{}
	r := New(Options{
		WorkDir: filepath.Join(t.TempDir(), "does-not-exist"),
		Output:  output.NewWithWriters(stdout, &bytes.Buffer{}, false),
	})

	res := r.RunTest(context.Background(), TestSpec{Name: "D", Command: "exit 0", Timeout: 5 * time.Second})

	assert.False(t, res.Passed)
	assert.Zero(t, res.Duration)
	assert.Equal(t, -1, res.ExitCode)
	assert.NotEmpty(t, res.Output)
	assert.Contains(t, stdout.String(), "💥 D - ERROR:")
}

func TestRunTest_UsesWorkDir(t *testing.T) {
	r, _, _ := newTestRunner(t, 0)
	require.NoError(t, os.WriteFile(filepath.Join(r.workDir, "marker.txt"), []byte("here"), 0644))

	res := r.RunTest(context.Background(), TestSpec{Name: "cat", Command: "cat marker.txt", Timeout: 5 * time.Second})

	assert.True(t, res.Passed)
	assert.Equal(t, "here", res.Output)
}

func TestRunTest_ExtraEnv(t *testing.T) {
	r, _, _ := newTestRunner(t, 0)
	r.env = []string{"WBTEST_PROBE_MARKER=set"}

	res := r.RunTest(context.Background(), TestSpec{Name: "env", Command: `printf "$WBTEST_PROBE_MARKER"`, Timeout: 5 * time.Second})

	assert.Equal(t, "set", res.Output)
}

func TestRunAll_DelayBetweenTestsOnly(t *testing.T) {
	r, stdout, sleeps := newTestRunner(t, 3*time.Second)
	specs := []TestSpec{
		{Name: "one", Command: "exit 0", Timeout: 5 * time.Second},
		{Name: "two", Command: "exit 1", Timeout: 5 * time.Second},
		{Name: "three", Command: "exit 0", Timeout: 5 * time.Second},
	}

	results, err := r.RunAll(context.Background(), specs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, sleeps.calls)
	assert.Equal(t, 2, strings.Count(stdout.String(), "⏳ Waiting 3s before next test..."))
}

func TestRunAll_NoDelayForSingleTest(t *testing.T) {
	r, _, sleeps := newTestRunner(t, 3*time.Second)

	_, err := r.RunAll(context.Background(), []TestSpec{{Name: "only", Command: "exit 0", Timeout: 5 * time.Second}})

	require.NoError(t, err)
	assert.Empty(t, sleeps.calls)
}

func TestRunAll_Empty(t *testing.T) {
	r, _, _ := newTestRunner(t, 0)

	results, err := r.RunAll(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunAll_CancelledContextStops(t *testing.T) {
	r, _, _ := newTestRunner(t, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	r.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	results, err := r.RunAll(ctx, []TestSpec{
		{Name: "first", Command: "exit 0", Timeout: 5 * time.Second},
		{Name: "second", Command: "exit 0", Timeout: 5 * time.Second},
	})

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.Equal(t, "first", results[0].Name)
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}

// processAlive reports whether pid is running. Zombies count as gone.
func processAlive(pid int) bool {
	if err := syscall.Kill(pid, 0); err != nil {
		return false
	}
	stat, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		// Without procfs the zero signal is all we have.
		_, procErr := os.Stat("/proc/self")
		return procErr != nil
	}
	fields := strings.Fields(string(stat))
	return len(fields) < 3 || fields[2] != "Z"
}

func newGraceRunner(t *testing.T, grace time.Duration) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	return New(Options{
		WorkDir: dir,
		Output:  output.NewWithWriters(&bytes.Buffer{}, &bytes.Buffer{}, false),
		Grace:   grace,
	}), dir
}

func TestRunTest_BackgroundChildKeepsSuccess(t *testing.T) {
	r, _ := newGraceRunner(t, 300*time.Millisecond)

	res := r.RunTest(context.Background(), TestSpec{Name: "bg", Command: "sleep 20 & echo $!; exit 0", Timeout: 10 * time.Second})

	assert.True(t, res.Passed)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
	assert.Less(t, res.Duration, 5*time.Second)

	pid, err := strconv.Atoi(strings.TrimSpace(res.Output))
	require.NoError(t, err, "output %q", res.Output)
	assert.Eventually(t, func() bool { return !processAlive(pid) }, 5*time.Second, 50*time.Millisecond,
		"background child %d survived the test", pid)
}

func TestRunTest_TimeoutSendsTermFirst(t *testing.T) {
	r, dir := newGraceRunner(t, 5*time.Second)

	res := r.RunTest(context.Background(), TestSpec{
		Name:    "cleanup",
		Command: "trap 'echo cleaned > cleanup.txt; exit 0' TERM; sleep 10 & wait",
		Timeout: 300 * time.Millisecond,
	})

	assert.True(t, res.TimedOut)
	assert.Equal(t, TimeoutOutput, res.Output)
	data, err := os.ReadFile(filepath.Join(dir, "cleanup.txt"))
	require.NoError(t, err, "TERM handler did not run")
	assert.Equal(t, "cleaned\n", string(data))
}

func TestRunTest_TimeoutKillsAfterGrace(t *testing.T) {
	r, _ := newGraceRunner(t, 300*time.Millisecond)

	start := time.Now()
	res := r.RunTest(context.Background(), TestSpec{
		Name:    "stubborn",
		Command: "trap '' TERM; sleep 10 & wait",
		Timeout: 200 * time.Millisecond,
	})

	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 5*time.Second)
}
