// Package probe drives the Prompt Workbench UI through scripted browser
// scenarios.
//
// Each scenario is an ordered list of steps. A step locates elements
// through candidate selector lists, interacts, waits a fixed settle delay
// and optionally checks a post-condition. Missing elements and failed
// checks are narrated and the scenario moves on. Unexpected errors go to
// a single guard that saves an error screenshot.
package probe

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	wberrors "github.com/promptworkbench/wbtest/internal/errors"
	"github.com/promptworkbench/wbtest/internal/output"
	"github.com/promptworkbench/wbtest/internal/suite"
)

// Config holds everything a probe run needs.
type Config struct {
	BaseURL       string
	ScreenshotDir string
	// Headless overrides the scenario default when set.
	Headless    *bool
	Selectors   Selectors
	LoadTimeout time.Duration
	// Intn seeds generated names. Nil uses math/rand.
	Intn   func(int) int
	Output *output.Writer
	Logger *zap.Logger
}

// Build returns the named scenario.
func Build(name string, sel Selectors, intn func(int) int) (*Scenario, error) {
	switch name {
	case suite.ProbeDiscovery:
		return Discovery(sel), nil
	case suite.ProbeProjectManagement:
		return ProjectManagement(sel, intn), nil
	case suite.ProbeVersionControl:
		return VersionControl(sel, intn), nil
	default:
		known := append([]string(nil), suite.ProbeNames...)
		sort.Strings(known)
		return nil, wberrors.NotFound("probe", fmt.Sprintf("%s (known: %v)", name, known))
	}
}

// Run opens a browser session, runs the named scenario under the guard
// and closes the session on every path.
func Run(ctx context.Context, name string, cfg Config) error {
	sc, err := Build(name, cfg.Selectors, cfg.Intn)
	if err != nil {
		return err
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ScreenshotDir != "" {
		if err := os.MkdirAll(cfg.ScreenshotDir, 0755); err != nil {
			return wberrors.Environmentf("create screenshot directory: %v", err)
		}
	}

	headless := ResolveHeadless(cfg.Headless, sc.Headless, os.Getenv)
	log.Info("starting probe", zap.String("probe", name), zap.String("url", cfg.BaseURL), zap.Bool("headless", headless))

	s, err := Open(Options{
		BaseURL:       cfg.BaseURL,
		ScreenshotDir: cfg.ScreenshotDir,
		Headless:      headless,
		LoadTimeout:   cfg.LoadTimeout,
		Output:        cfg.Output,
		Logger:        log.With(zap.String("probe", name)),
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			log.Warn("closing browser session", zap.Error(closeErr))
		}
	}()

	_, err = Guard(ctx, s, sc)
	if err != nil {
		return wberrors.TestError(name, err)
	}
	return nil
}

// ResolveHeadless picks the browser mode. An explicit flag wins, then
// WBTEST_HEADLESS, then the scenario default. Linux without a display is
// always headless.
func ResolveHeadless(flag *bool, def bool, getenv func(string) string) bool {
	headless := def
	if v := getenv("WBTEST_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			headless = b
		}
	}
	if flag != nil {
		headless = *flag
	}
	if runtime.GOOS == "linux" && getenv("DISPLAY") == "" && getenv("WAYLAND_DISPLAY") == "" {
		return true
	}
	return headless
}
