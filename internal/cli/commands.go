package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/playwright-community/playwright-go"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	wberrors "github.com/promptworkbench/wbtest/internal/errors"
	"github.com/promptworkbench/wbtest/internal/probe"
	"github.com/promptworkbench/wbtest/internal/server"
	"github.com/promptworkbench/wbtest/internal/suite"
	"github.com/promptworkbench/wbtest/pkg/wbtest"
)

func (a *app) probeCommand() *cli.Command {
	return &cli.Command{
		Name:         "probe",
		Usage:        "Drive one browser probe against the running application",
		ArgsUsage:    strings.Join(suite.ProbeNames, "|"),
		Flags:        []cli.Flag{BaseURLFlag, ScreenshotDirFlag, HeadlessFlag, SelectorsFlag, LoadTimeoutFlag},
		OnUsageError: usageError,
		Action:       a.probeAction,
	}
}

func (a *app) probeAction(c *cli.Context) error {
	name := c.Args().First()
	if name == "" || c.NArg() > 1 {
		return wberrors.Configf("probe: expected exactly one probe name (%s)", strings.Join(suite.ProbeNames, ", "))
	}

	sel, err := probe.LoadSelectors(c.String(SelectorsFlag.Name))
	if err != nil {
		return wberrors.WrapKind(wberrors.KindConfig, err, err.Error())
	}

	cfg := probe.Config{
		BaseURL:       c.String(BaseURLFlag.Name),
		ScreenshotDir: c.String(ScreenshotDirFlag.Name),
		Selectors:     sel,
		LoadTimeout:   c.Duration(LoadTimeoutFlag.Name),
		Output:        a.out,
		Logger:        a.log,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = suite.DefaultBaseURL
	}
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = suite.DefaultScreenshotDir
	}
	if c.IsSet(HeadlessFlag.Name) {
		headless := c.Bool(HeadlessFlag.Name)
		cfg.Headless = &headless
	}

	err = probe.Run(c.Context, name, cfg)
	if wberrors.IsKind(err, wberrors.KindNotFound) {
		return wberrors.WrapKind(wberrors.KindConfig, err, err.Error())
	}
	return err
}

func (a *app) withServerCommand() *cli.Command {
	return &cli.Command{
		Name:      "with-server",
		Usage:     "Start the application, wait for its port, run a command, stop the application",
		ArgsUsage: "-- COMMAND [ARGS...]",
		Flags: []cli.Flag{
			ServerCommandFlag, PortFlag, HostFlag, ServerTimeoutFlag, GraceFlag, ServerOutputFlag,
		},
		OnUsageError: usageError,
		Action:       a.withServerAction,
	}
}

func (a *app) withServerAction(c *cli.Context) error {
	timeout, err := suite.ParseDuration(c.String(ServerTimeoutFlag.Name))
	if err != nil {
		return wberrors.Configf("--timeout: %v", err)
	}
	port := c.Int(PortFlag.Name)
	if port < 1 || port > 65535 {
		return wberrors.Configf("--port must be between 1 and 65535, got %d", port)
	}

	opts := server.Options{
		Command: c.String(ServerCommandFlag.Name),
		Host:    c.String(HostFlag.Name),
		Port:    port,
		Timeout: timeout,
		Grace:   c.Duration(GraceFlag.Name),
		Stdout:  a.stdout,
		Stderr:  a.stderr,
		Logger:  a.log,
	}
	if c.Bool(ServerOutputFlag.Name) {
		opts.ServerOutput = a.stderr
	}

	code, err := server.Run(c.Context, opts, c.Args().Slice())
	if err != nil {
		return err
	}
	if code != wbtest.ExitSuccess {
		return exitError(code)
	}
	return nil
}

func (a *app) validateCommand() *cli.Command {
	return &cli.Command{
		Name:         "validate",
		Usage:        "Check a suite file without running it",
		ArgsUsage:    "[FILE]",
		OnUsageError: usageError,
		Action:       a.validateAction,
	}
}

func (a *app) validateAction(c *cli.Context) error {
	s, err := a.loadSuite(c.Args().First())
	if err != nil {
		return err
	}
	self, err := os.Executable()
	if err != nil {
		self = "wbtest"
	}

	a.out.ValidationSuccess("Suite is valid.")
	a.out.SummaryItem("Suite", suiteLabel(s))
	a.out.SummaryItem("Base URL", s.BaseURL)
	a.out.SummaryItem("Delay", s.DelayDuration().String())
	a.out.Print("%s\n", testsTable(s, self))
	if s.Path != "" {
		a.out.Hint("Run it with: wbtest run --suite %s", s.Path)
	}
	return nil
}

// testsTable renders the resolved tests of s.
func testsTable(s *suite.Suite, self string) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Name", "Timeout", "Command"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Timeout", Align: text.AlignRight},
		{Name: "Command", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})
	for i, spec := range s.Specs(self) {
		t.AppendRow(table.Row{i + 1, spec.Name, spec.Timeout.String(), spec.Command})
	}
	t.SetStyle(table.StyleLight)
	return t.Render()
}

func (a *app) installCommand() *cli.Command {
	return &cli.Command{
		Name:  "install",
		Usage: "Download the Playwright driver and Chromium",
		Action: func(c *cli.Context) error {
			a.out.Println("Installing Playwright driver and Chromium...")
			err := playwright.Install(&playwright.RunOptions{
				Browsers: []string{"chromium"},
			})
			if err != nil {
				a.log.Error("playwright install failed", zap.Error(err))
				return wberrors.WrapKind(wberrors.KindEnvironment, err, fmt.Sprintf("playwright install failed: %v", err))
			}
			a.out.FinalSuccess("✅ Playwright is ready")
			return nil
		},
	}
}
