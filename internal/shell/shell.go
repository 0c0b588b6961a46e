// Package shell builds child processes for user-supplied command strings.
package shell

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// DefaultGrace is how long a cancelled command may take to exit after
// SIGTERM, and how long Wait blocks on output pipes once the shell has
// exited. It outlasts the with-server teardown so a wrapped server is
// stopped before the wrapper is killed.
const DefaultGrace = 10 * time.Second

// Command returns a command that runs cmdStr through the platform shell in
// its own process group. Cancelling ctx sends SIGTERM to the whole group;
// Wait gives up on the group after cmd.WaitDelay. Processes that moved to
// their own group (a server started by with-server) are not signalled:
// their owner tears them down on SIGTERM. Call Kill after Wait to clear
// anything left behind.
func Command(ctx context.Context, cmdStr string) *exec.Cmd {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = windowsCommand(ctx, cmdStr)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", cmdStr)
	}
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return interruptGroup(cmd)
	}
	cmd.WaitDelay = DefaultGrace
	return cmd
}

// Kill sends SIGKILL to the process group of a started command.
func Kill(cmd *exec.Cmd) error {
	return killGroup(cmd)
}

// windowsCommand creates a PowerShell command using the full path.
func windowsCommand(ctx context.Context, cmdStr string) *exec.Cmd {
	systemRoot := os.Getenv("SYSTEMROOT")
	if systemRoot == "" {
		systemRoot = `C:\Windows`
	}
	powershell := filepath.Join(systemRoot, "System32", "WindowsPowerShell", "v1.0", "powershell.exe")
	return exec.CommandContext(ctx, powershell, "-NoProfile", "-NonInteractive", "-Command", cmdStr)
}

// Terminate asks the process group of a started command to stop, waits up
// to grace for done to close, then kills the group. It returns true when
// the group had to be killed.
func Terminate(cmd *exec.Cmd, done <-chan struct{}, grace time.Duration) bool {
	if cmd.Process == nil {
		return false
	}
	if err := interruptGroup(cmd); err != nil {
		_ = killGroup(cmd)
		return true
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
		return false
	case <-timer.C:
		_ = killGroup(cmd)
		return true
	}
}
