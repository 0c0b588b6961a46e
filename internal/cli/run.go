package cli

import (
	"context"
	"os"
	"path"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/promptworkbench/wbtest/internal/artifacts"
	wberrors "github.com/promptworkbench/wbtest/internal/errors"
	"github.com/promptworkbench/wbtest/internal/metrics"
	"github.com/promptworkbench/wbtest/internal/report"
	"github.com/promptworkbench/wbtest/internal/runner"
	"github.com/promptworkbench/wbtest/internal/suite"
	"github.com/promptworkbench/wbtest/pkg/wbtest"
)

const bannerTitle = "🧪 Prompt Workbench Test Suite"

// exportTimeout bounds the post-run exports, which still run after an
// interrupt.
const exportTimeout = 2 * time.Minute

func (a *app) runCommand() *cli.Command {
	return &cli.Command{
		Name:         "run",
		Usage:        "Run every test in the suite and write a report",
		Flags:        []cli.Flag{SuiteFlag, BaseURLFlag, ReportDirFlag, ScreenshotDirFlag, DelayFlag},
		OnUsageError: usageError,
		Action:       a.runAction,
	}
}

func (a *app) runAction(c *cli.Context) error {
	s, err := a.loadSuite(c.String(SuiteFlag.Name))
	if err != nil {
		return err
	}
	if err := a.applyOverrides(c, s); err != nil {
		return err
	}

	self, err := os.Executable()
	if err != nil {
		return wberrors.WrapKind(wberrors.KindEnvironment, err, "cannot locate the wbtest binary")
	}
	specs := s.Specs(self)

	screenshots := s.Resolve(s.ScreenshotDir)
	if err := os.MkdirAll(screenshots, 0755); err != nil {
		return wberrors.Environmentf("create screenshot directory: %v", err)
	}

	a.out.Banner(bannerTitle, 50)
	startedAt := time.Now()
	a.out.Println("Started at: %s", startedAt.Format("2006-01-02 15:04:05"))
	a.log.Info("run started",
		zap.String("suite", suiteLabel(s)),
		zap.Int("tests", len(specs)),
		zap.String("work_dir", s.WorkDir),
	)

	r := runner.New(runner.Options{
		WorkDir: s.WorkDir,
		Delay:   s.DelayDuration(),
		Env: []string{
			EnvVarPrefix + "_BASE_URL=" + s.BaseURL,
			EnvVarPrefix + "_SCREENSHOT_DIR=" + screenshots,
		},
		Output: a.out,
		Logger: a.log,
	})
	results, runErr := r.RunAll(c.Context, specs)
	finishedAt := time.Now()

	rep := report.Build(results, startedAt, finishedAt)
	reportPath, writeErr := rep.Write(s.Resolve(s.ReportDir))
	if writeErr != nil {
		a.log.Error("report not saved", zap.Error(writeErr))
	}
	rep.Print(a.out, reportPath)

	exportCtx, cancel := context.WithTimeout(context.WithoutCancel(c.Context), exportTimeout)
	a.publish(exportCtx, s, rep, reportPath, screenshots)
	cancel()

	switch {
	case writeErr != nil:
		a.out.ErrorPrefix("failed to save report: %v", writeErr)
		return exitError(wbtest.ExitFailure)
	case runErr != nil:
		a.out.ErrorPrefix("run interrupted after %d of %d tests: %v", len(results), len(specs), runErr)
		return exitError(wbtest.ExitFailure)
	}
	if code := rep.ExitCode(); code != wbtest.ExitSuccess {
		return exitError(code)
	}
	return nil
}

// loadSuite reads path, or wbtest.yaml from the working directory, or
// falls back to the built-in suite.
func (a *app) loadSuite(path string) (*suite.Suite, error) {
	if path == "" {
		if _, err := os.Stat(suite.DefaultFile); err == nil {
			path = suite.DefaultFile
		}
	}
	if path == "" {
		s := suite.Builtin()
		wd, err := os.Getwd()
		if err != nil {
			return nil, wberrors.WrapKind(wberrors.KindEnvironment, err, "cannot determine working directory")
		}
		s.WorkDir = wd
		a.log.Debug("using built-in suite", zap.String("work_dir", wd))
		return s, nil
	}

	s, warnings, err := suite.Load(path)
	for _, w := range warnings {
		a.out.Warning("%s", w)
	}
	if err != nil {
		return nil, wberrors.WrapKind(wberrors.KindConfig, err, err.Error())
	}
	a.log.Debug("suite loaded", zap.String("path", s.Path), zap.Int("tests", len(s.Tests)))
	return s, nil
}

// applyOverrides merges flags (and their environment variables) into s
// and re-validates the result.
func (a *app) applyOverrides(c *cli.Context, s *suite.Suite) error {
	o := suite.Overrides{
		BaseURL:       c.String(BaseURLFlag.Name),
		ReportDir:     c.String(ReportDirFlag.Name),
		ScreenshotDir: c.String(ScreenshotDirFlag.Name),
	}
	if raw := c.String(DelayFlag.Name); raw != "" {
		d, err := suite.ParseDuration(raw)
		if err != nil {
			return wberrors.Configf("--delay: %v", err)
		}
		o.Delay = &d
	}
	s.Apply(o)

	if _, err := suite.Validate(s); err != nil {
		return wberrors.WrapKind(wberrors.KindConfig, err, err.Error())
	}
	return nil
}

// publish runs the optional post-run exports. Their failures are reported
// but never change the exit code.
func (a *app) publish(ctx context.Context, s *suite.Suite, rep *report.Report, reportPath, screenshots string) {
	if s.Metrics != nil {
		textfile := s.Resolve(s.Metrics.Textfile)
		rec := metrics.NewRecorder()
		rec.Observe(rep)
		if err := rec.WriteTextfile(textfile); err != nil {
			a.out.Warning("metrics not written: %v", err)
			a.log.Warn("metrics textfile failed", zap.String("path", textfile), zap.Error(err))
		} else {
			a.out.Info("📈 Metrics written to %s", textfile)
		}
	}

	if s.Artifacts == nil || s.Artifacts.S3 == nil || reportPath == "" {
		return
	}
	cfg := s.Artifacts.S3
	uploader, err := artifacts.New(ctx, artifacts.Config{
		Bucket:    cfg.Bucket,
		Prefix:    cfg.Prefix,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		PathStyle: cfg.PathStyle,
	}, a.log)
	if err != nil {
		a.out.Warning("artifacts not uploaded: %v", err)
		return
	}
	keys, err := uploader.Upload(ctx, rep.RunID, reportPath, screenshots)
	if len(keys) > 0 {
		a.out.Info("☁️  Uploaded %d artifacts to s3://%s/%s", len(keys), cfg.Bucket, path.Dir(keys[0]))
	}
	if err != nil {
		a.out.Warning("artifacts upload incomplete: %v", err)
	}
}

func suiteLabel(s *suite.Suite) string {
	if s.Path == "" {
		return "(built-in)"
	}
	return s.Path
}
