// Package metrics exports run results in the Prometheus text format for
// the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/promptworkbench/wbtest/internal/report"
)

const Namespace = "wbtest"

// Recorder holds the gauges for one run on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	testsTotal   prometheus.Gauge
	testsPassed  prometheus.Gauge
	testsFailed  prometheus.Gauge
	runDuration  prometheus.Gauge
	lastRun      prometheus.Gauge
	testDuration *prometheus.GaugeVec
	testPassed   *prometheus.GaugeVec
	testTimedOut *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		testsTotal: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "tests_total",
			Help:      "Number of tests in the last run",
		}),
		testsPassed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "tests_passed",
			Help:      "Number of passed tests in the last run",
		}),
		testsFailed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "tests_failed",
			Help:      "Number of failed tests in the last run",
		}),
		runDuration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Sum of test durations in the last run",
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		testDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "test_duration_seconds",
			Help:      "Duration of each test in the last run",
		}, []string{"test"}),
		testPassed: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "test_passed",
			Help:      "1 if the test passed in the last run, 0 otherwise",
		}, []string{"test"}),
		testTimedOut: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "test_timed_out",
			Help:      "1 if the test hit its timeout in the last run, 0 otherwise",
		}, []string{"test"}),
	}
}

// Observe records a finished run.
func (r *Recorder) Observe(rep *report.Report) {
	r.testsTotal.Set(float64(rep.TotalTests))
	r.testsPassed.Set(float64(rep.Passed))
	r.testsFailed.Set(float64(rep.Failed))
	r.runDuration.Set(rep.TotalDuration.Seconds())
	r.lastRun.Set(float64(rep.FinishedAt.Unix()))

	for _, t := range rep.Tests {
		r.testDuration.WithLabelValues(t.Name).Set(t.Duration.Seconds())
		r.testPassed.WithLabelValues(t.Name).Set(boolToFloat(t.Passed))
		r.testTimedOut.WithLabelValues(t.Name).Set(boolToFloat(t.TimedOut))
	}
}

// WriteTextfile writes the registry to path atomically, creating the
// parent directory when needed.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
