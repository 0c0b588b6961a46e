package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/promptworkbench/wbtest/internal/output"
	"github.com/promptworkbench/wbtest/internal/report"
	"github.com/promptworkbench/wbtest/internal/runner"
	"github.com/promptworkbench/wbtest/internal/server"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fixture commands use POSIX shell syntax")
	}
	if testing.Short() {
		t.Skip("spawns child processes")
	}
}

func TestRunCommandsSuite(t *testing.T) {
	skipWithoutShell(t)
	s := loadFixture(t, "commands")
	s.WorkDir = t.TempDir()

	var buf bytes.Buffer
	r := runner.New(runner.Options{
		WorkDir: s.WorkDir,
		Delay:   s.DelayDuration(),
		Env:     []string{"WBTEST_BASE_URL=" + s.BaseURL},
		Output:  output.NewWithWriters(&buf, &buf, false),
	})

	started := time.Now()
	results, err := r.RunAll(context.Background(), s.Specs("wbtest"))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	rep := report.Build(results, started, time.Now())

	if rep.TotalTests != 3 || rep.Passed != 1 || rep.Failed != 2 {
		t.Fatalf("unexpected totals: total=%d passed=%d failed=%d", rep.TotalTests, rep.Passed, rep.Failed)
	}
	if want := "hello from http://localhost:3000\n"; results[0].Output != want {
		t.Errorf("expected output %q, got %q", want, results[0].Output)
	}
	if results[1].ExitCode != 2 || results[1].Output != "nope\n" {
		t.Errorf("unexpected failing result: %+v", results[1])
	}
	if !results[2].TimedOut || results[2].Output != runner.TimeoutOutput || results[2].Duration != time.Second {
		t.Errorf("unexpected timeout result: %+v", results[2])
	}
	if rep.ExitCode() != 1 {
		t.Errorf("expected exit code 1, got %d", rep.ExitCode())
	}

	path, err := rep.Write(s.Resolve(s.ReportDir))
	if err != nil {
		t.Fatalf("write report: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var doc struct {
		TotalTests int `json:"total_tests"`
		Tests      []struct {
			Name   string `json:"name"`
			Passed bool   `json:"passed"`
		} `json:"tests"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if doc.TotalTests != 3 || doc.Tests[0].Name != "Greeting" || !doc.Tests[0].Passed {
		t.Errorf("unexpected report document: %+v", doc)
	}
}

func TestWithServer(t *testing.T) {
	skipWithoutShell(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	var stdout bytes.Buffer
	code, err := server.Run(context.Background(), server.Options{
		Command:      "sleep 30",
		Host:         "127.0.0.1",
		Port:         port,
		Timeout:      5 * time.Second,
		Grace:        time.Second,
		PollInterval: 50 * time.Millisecond,
		Stdout:       &stdout,
	}, []string{"sh", "-c", "echo port " + strconv.Itoa(port) + "; exit 4"})
	if err != nil {
		t.Fatalf("with-server failed: %v", err)
	}
	if code != 4 {
		t.Errorf("expected the wrapped command's exit code 4, got %d", code)
	}
	if want := "port " + strconv.Itoa(port) + "\n"; stdout.String() != want {
		t.Errorf("expected stdout %q, got %q", want, stdout.String())
	}
}

func TestWithServerNeverReady(t *testing.T) {
	skipWithoutShell(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = server.Run(context.Background(), server.Options{
		Command:      "sleep 30",
		Host:         "127.0.0.1",
		Port:         port,
		Timeout:      300 * time.Millisecond,
		Grace:        time.Second,
		PollInterval: 50 * time.Millisecond,
	}, []string{"true"})
	if err == nil {
		t.Fatal("expected a timeout waiting for the port")
	}
}
