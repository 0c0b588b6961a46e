package probe

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	wberrors "github.com/promptworkbench/wbtest/internal/errors"
)

// Status is the outcome of one step.
type Status int

const (
	// Passed means the step's interactions and checks all succeeded.
	Passed Status = iota
	// Failed means a post-condition check did not hold.
	Failed
	// Missing means a required element was absent or invisible.
	Missing
	// Skipped means a step it needs did not pass.
	Skipped
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Missing:
		return "missing"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// CheckError reports a post-condition that did not hold. It is narrated
// and recorded but does not stop the scenario.
type CheckError struct {
	Message string
}

func (e *CheckError) Error() string {
	return e.Message
}

// Check returns a CheckError with a formatted message.
func Check(format string, args ...interface{}) error {
	return &CheckError{Message: fmt.Sprintf(format, args...)}
}

// Step is one locate/interact/settle/check unit of a scenario.
type Step struct {
	Name string
	// Heading is printed before the step runs, if set.
	Heading string
	// Needs lists steps that must have passed for this one to run.
	Needs []string
	// Halt ends the scenario early, without failing it, when this step
	// does not pass.
	Halt bool
	Run  func(s *Session) error
}

// Outcome records how a step ended.
type Outcome struct {
	Step   string
	Status Status
	Err    error
}

// Scenario is an ordered list of steps sharing one browser session.
type Scenario struct {
	Name  string
	Title string
	// Strict scenarios return unexpected errors after the error screenshot.
	// Lenient ones only log them.
	Strict bool
	// Headless is the default browser mode when none is requested.
	Headless  bool
	ErrorShot string
	// Done is printed after the last step.
	Done  string
	Steps []Step
}

// Run executes the steps in order. Missing elements and failed checks are
// narrated and recorded. Any other error stops the scenario and is
// returned unchanged, along with the outcomes so far.
func (sc *Scenario) Run(ctx context.Context, s *Session) ([]Outcome, error) {
	out := s.Output()
	passed := make(map[string]bool, len(sc.Steps))
	outcomes := make([]Outcome, 0, len(sc.Steps))

	if sc.Title != "" {
		out.Println("%s", sc.Title)
	}

	for _, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		if step.Heading != "" {
			out.Heading("%s", step.Heading)
		}

		if unmet := unmetNeed(step.Needs, passed); unmet != "" {
			out.Note("Skipping %s: %s did not pass", step.Name, unmet)
			outcomes = append(outcomes, Outcome{Step: step.Name, Status: Skipped})
			if step.Halt {
				return outcomes, nil
			}
			continue
		}

		err := step.Run(s)
		var check *CheckError
		switch {
		case err == nil:
			passed[step.Name] = true
			outcomes = append(outcomes, Outcome{Step: step.Name, Status: Passed})
		case wberrors.IsKind(err, wberrors.KindElementNotFound):
			out.Fail("%s", err.Error())
			outcomes = append(outcomes, Outcome{Step: step.Name, Status: Missing, Err: err})
		case errors.As(err, &check):
			out.Fail("%s", check.Message)
			outcomes = append(outcomes, Outcome{Step: step.Name, Status: Failed, Err: err})
		default:
			return outcomes, err
		}

		if step.Halt && !passed[step.Name] {
			s.log.Info("scenario ended early", zap.String("probe", sc.Name), zap.String("step", step.Name))
			return outcomes, nil
		}
	}

	if sc.Done != "" {
		out.Heading("%s", sc.Done)
	}
	return outcomes, nil
}

// Guard runs sc on s. On an unexpected error it narrates the failure and
// saves the error screenshot, then returns the error for strict scenarios
// and nil for lenient ones.
func Guard(ctx context.Context, s *Session, sc *Scenario) ([]Outcome, error) {
	outcomes, err := sc.Run(ctx, s)
	logOutcomes(s.log, sc.Name, outcomes)
	if err == nil {
		return outcomes, nil
	}

	s.Output().Fail("Error during %s: %v", sc.Name, err)
	s.log.Error("probe failed", zap.String("probe", sc.Name), zap.Error(err))
	if sc.ErrorShot != "" {
		if _, shotErr := s.Screenshot(sc.ErrorShot, false); shotErr != nil {
			s.log.Warn("error screenshot failed", zap.Error(shotErr))
		}
	}
	if sc.Strict {
		return outcomes, err
	}
	return outcomes, nil
}

func unmetNeed(needs []string, passed map[string]bool) string {
	for _, n := range needs {
		if !passed[n] {
			return n
		}
	}
	return ""
}

func logOutcomes(log *zap.Logger, name string, outcomes []Outcome) {
	counts := make(map[Status]int, 4)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	log.Info("probe steps finished",
		zap.String("probe", name),
		zap.Int("passed", counts[Passed]),
		zap.Int("failed", counts[Failed]),
		zap.Int("missing", counts[Missing]),
		zap.Int("skipped", counts[Skipped]),
	)
}
