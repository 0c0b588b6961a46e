// Package server runs a command against a freshly started application
// server: start the server, wait for its port, run the command, tear the
// server down.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"go.uber.org/zap"

	wberrors "github.com/promptworkbench/wbtest/internal/errors"
	"github.com/promptworkbench/wbtest/internal/shell"
)

// Defaults for Options.
const (
	DefaultHost         = "localhost"
	DefaultGrace        = 5 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// Options configures Run.
type Options struct {
	Command string        // Shell command that starts the server
	Host    string        // Host to probe; DefaultHost when empty
	Port    int           // Port the server listens on
	Timeout time.Duration // Bound on waiting for the port

	// Grace is how long the server may take to exit after SIGTERM before
	// it is killed.
	Grace        time.Duration
	PollInterval time.Duration
	WorkDir      string

	// ServerOutput receives the server's stdout and stderr; nil discards.
	ServerOutput io.Writer

	// Stdio for the wrapped command; nil uses the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Logger *zap.Logger
}

func (o *Options) applyDefaults() {
	if o.Host == "" {
		o.Host = DefaultHost
	}
	if o.Grace == 0 {
		o.Grace = DefaultGrace
	}
	if o.PollInterval == 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ServerOutput == nil {
		o.ServerOutput = io.Discard
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Run starts the server, waits until its port accepts connections, runs
// argv and returns argv's exit code. The server is always torn down before
// Run returns. An error means argv never ran or could not be started.
func Run(ctx context.Context, opts Options, argv []string) (int, error) {
	opts.applyDefaults()
	log := opts.Logger

	if len(argv) == 0 {
		return -1, wberrors.Config("with-server: no command given after --")
	}
	if opts.Command == "" {
		return -1, wberrors.Config("with-server: --server is required")
	}

	srv := shell.Command(context.WithoutCancel(ctx), opts.Command)
	srv.Dir = opts.WorkDir
	srv.Stdout = opts.ServerOutput
	srv.Stderr = opts.ServerOutput
	if err := srv.Start(); err != nil {
		return -1, wberrors.WrapKind(wberrors.KindEnvironment, err, fmt.Sprintf("failed to start server %q", opts.Command))
	}
	log.Info("server started", zap.String("command", opts.Command), zap.Int("pid", srv.Process.Pid))

	exited := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = srv.Wait()
		close(exited)
	}()
	defer func() {
		select {
		case <-exited:
			log.Info("server already exited", zap.Error(waitErr))
			return
		default:
		}
		killed := shell.Terminate(srv, exited, opts.Grace)
		<-exited
		log.Info("server stopped", zap.Bool("killed", killed))
	}()

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	if err := WaitForPort(ctx, addr, opts.Timeout, opts.PollInterval, exited); err != nil {
		return -1, err
	}
	log.Info("server ready", zap.String("addr", addr))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.WorkDir
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		log.Info("command failed", zap.Int("exit_code", exitErr.ExitCode()))
		return exitErr.ExitCode(), nil
	default:
		return -1, wberrors.WrapKind(wberrors.KindEnvironment, err, fmt.Sprintf("failed to run %q", argv[0]))
	}
}

// WaitForPort polls addr until a TCP connection succeeds, timeout elapses,
// ctx is done, or exited closes.
func WaitForPort(ctx context.Context, addr string, timeout, interval time.Duration, exited <-chan struct{}) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		conn, err := net.DialTimeout("tcp", addr, interval)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if !time.Now().Before(deadline) {
			return wberrors.Timeout(addr, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-exited:
			return wberrors.Newf("server exited before %s accepted connections", addr)
		case <-ticker.C:
		}
	}
}
