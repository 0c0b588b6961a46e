// Package cli wires the wbtest commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	wberrors "github.com/promptworkbench/wbtest/internal/errors"
	"github.com/promptworkbench/wbtest/internal/logging"
	"github.com/promptworkbench/wbtest/internal/output"
	"github.com/promptworkbench/wbtest/pkg/wbtest"
)

// Version is set at build time.
var Version = "dev"

// app carries the process-wide state resolved once per invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	out    *output.Writer
	log    *zap.Logger
}

// Run executes the CLI with os.Args-style arguments and returns an exit
// code.
func Run(ctx context.Context, args []string) int {
	a := &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
		out:    output.New(),
	}
	return a.run(ctx, args)
}

func (a *app) run(ctx context.Context, args []string) int {
	a.log = zap.NewNop()
	err := a.newApp().RunContext(ctx, args)
	defer func() { _ = a.log.Sync() }()
	return a.exitCode(err)
}

func (a *app) newApp() *cli.App {
	return &cli.App{
		Name:           "wbtest",
		Usage:          "End-to-end probe runner for Prompt Workbench",
		Version:        Version,
		Writer:         a.stdout,
		ErrWriter:      a.stderr,
		DefaultCommand: "run",
		Flags:          []cli.Flag{LogLevelFlag, LogFormatFlag, LogFileFlag, QuietFlag},
		Before:         a.before,
		OnUsageError:   usageError,
		// Exit codes are mapped in run; urfave must not call os.Exit.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			a.runCommand(),
			a.probeCommand(),
			a.withServerCommand(),
			a.validateCommand(),
			a.installCommand(),
			a.versionCommand(),
			a.completionCommand(),
		},
	}
}

func (a *app) before(c *cli.Context) error {
	log, err := logging.New(logging.Config{
		Level:  c.String(LogLevelFlag.Name),
		Format: c.String(LogFormatFlag.Name),
		File:   c.String(LogFileFlag.Name),
	})
	if err != nil {
		return wberrors.WrapKind(wberrors.KindConfig, err, err.Error())
	}
	a.log = log
	a.out.SetQuiet(c.Bool(QuietFlag.Name))
	return nil
}

func usageError(_ *cli.Context, err error, _ bool) error {
	return wberrors.WrapKind(wberrors.KindConfig, err, err.Error())
}

// exitError ends a command with a specific code and no further message.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func (e exitError) ExitCode() int { return int(e) }

func (a *app) exitCode(err error) int {
	if err == nil {
		return wbtest.ExitSuccess
	}
	var code exitError
	if errors.As(err, &code) {
		return int(code)
	}
	a.out.ErrorPrefix("%v", err)
	var we *wberrors.WbError
	if errors.As(err, &we) {
		return we.ExitCode()
	}
	// Anything urfave reports on its own is a usage problem.
	return wbtest.ExitConfigError
}

func (a *app) versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the version",
		Action: func(*cli.Context) error {
			a.out.Println("wbtest %s", Version)
			return nil
		},
	}
}
