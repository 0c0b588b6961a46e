package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wberrors "github.com/promptworkbench/wbtest/internal/errors"
)

func passStep(name string) Step {
	return Step{Name: name, Run: func(*Session) error { return nil }}
}

func statuses(outcomes []Outcome) []Status {
	out := make([]Status, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Status
	}
	return out
}

func TestScenarioRun_RecordsOutcomes(t *testing.T) {
	s, buf := newTestSession(t, newFakePage())
	sc := &Scenario{
		Name:  "sample",
		Title: "🚀 Starting sample",
		Done:  "🎉 Sample done",
		Steps: []Step{
			passStep("open"),
			{Name: "find", Run: func(*Session) error { return wberrors.ElementNotFound("Save button") }},
			{Name: "depends", Needs: []string{"find"}, Run: func(*Session) error {
				t.Fatal("dependent step ran")
				return nil
			}},
			{Name: "check", Run: func(*Session) error { return Check("Project not found in list") }},
			{Name: "after", Needs: []string{"open"}, Run: func(*Session) error { return nil }},
		},
	}

	outcomes, err := sc.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []Status{Passed, Missing, Skipped, Failed, Passed}, statuses(outcomes))

	got := buf.String()
	assert.Contains(t, got, "🚀 Starting sample")
	assert.Contains(t, got, "❌ Save button not found")
	assert.Contains(t, got, "Skipping depends: find did not pass")
	assert.Contains(t, got, "❌ Project not found in list")
	assert.Contains(t, got, "🎉 Sample done")
}

func TestScenarioRun_UnexpectedErrorStops(t *testing.T) {
	s, buf := newTestSession(t, newFakePage())
	boom := errors.New("browser crashed")
	sc := &Scenario{
		Name: "sample",
		Done: "done",
		Steps: []Step{
			passStep("one"),
			{Name: "two", Run: func(*Session) error { return boom }},
			{Name: "three", Run: func(*Session) error {
				t.Fatal("step after unexpected error ran")
				return nil
			}},
		},
	}

	outcomes, err := sc.Run(context.Background(), s)
	assert.Same(t, boom, err)
	assert.Len(t, outcomes, 1)
	assert.NotContains(t, buf.String(), "done")
}

func TestScenarioRun_HaltEndsEarly(t *testing.T) {
	s, buf := newTestSession(t, newFakePage())
	sc := &Scenario{
		Name: "sample",
		Done: "all done",
		Steps: []Step{
			{Name: "editor", Halt: true, Run: func(*Session) error { return wberrors.ElementNotFound("Monaco editor") }},
			{Name: "type", Run: func(*Session) error {
				t.Fatal("step after halt ran")
				return nil
			}},
		},
	}

	outcomes, err := sc.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []Status{Missing}, statuses(outcomes))
	assert.NotContains(t, buf.String(), "all done")
}

func TestScenarioRun_Cancelled(t *testing.T) {
	s, _ := newTestSession(t, newFakePage())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sc := &Scenario{Name: "sample", Steps: []Step{passStep("one")}}
	outcomes, err := sc.Run(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outcomes)
}

func TestGuard(t *testing.T) {
	boom := errors.New("unexpected dialog")
	failing := func(strict bool) *Scenario {
		return &Scenario{
			Name:      "sample",
			Strict:    strict,
			ErrorShot: "sample_error.png",
			Steps:     []Step{{Name: "boom", Run: func(*Session) error { return boom }}},
		}
	}

	t.Run("strict forwards the step error", func(t *testing.T) {
		page := newFakePage()
		s, buf := newTestSession(t, page)

		_, err := Guard(context.Background(), s, failing(true))
		assert.Same(t, boom, err)
		assert.Equal(t, []string{"sample_error.png"}, page.shots)
		assert.Contains(t, buf.String(), "❌ Error during sample: unexpected dialog")
	})

	t.Run("lenient logs only", func(t *testing.T) {
		page := newFakePage()
		s, _ := newTestSession(t, page)

		_, err := Guard(context.Background(), s, failing(false))
		assert.NoError(t, err)
		assert.Equal(t, []string{"sample_error.png"}, page.shots)
	})

	t.Run("no screenshot on success", func(t *testing.T) {
		page := newFakePage()
		s, _ := newTestSession(t, page)

		_, err := Guard(context.Background(), s, &Scenario{Name: "ok", Strict: true, ErrorShot: "x.png", Steps: []Step{passStep("one")}})
		assert.NoError(t, err)
		assert.Empty(t, page.shots)
	})
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "passed", Passed.String())
	assert.Equal(t, "missing", Missing.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "status(9)", Status(9).String())
}
