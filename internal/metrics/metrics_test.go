package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Paintersrp/cmdlaunch/internal/metrics"
)

func TestRegistryExposesMetrics(t *testing.T) {
	metrics.EmitBuildInfo()
	metrics.RecordLaunch(metrics.ModeBackground, true, 5*time.Millisecond)
	metrics.RecordLaunch(metrics.ModeInteractive, false, time.Millisecond)
	metrics.SetTrackedProcesses(4)
	metrics.AddTerminations(metrics.TerminationForced, 2)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status code from metrics handler: %d", rec.Code)
	}

	body := rec.Body.String()
	for _, line := range []string{
		`cmdlaunch_launches_total{mode="background",result="ok"}`,
		`cmdlaunch_launches_total{mode="interactive",result="error"}`,
		`cmdlaunch_tracked_processes 4`,
		`cmdlaunch_terminations_total{kind="forced"}`,
		`cmdlaunch_launch_duration_seconds_bucket{mode="background"`,
		"cmdlaunch_build_info{",
		"go_version=",
	} {
		if !strings.Contains(body, line) {
			t.Fatalf("expected %q in metrics body:\n%s", line, body)
		}
	}
}

func TestTrackedProcessesNeverNegative(t *testing.T) {
	metrics.SetTrackedProcesses(-3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "cmdlaunch_tracked_processes 0") {
		t.Fatalf("expected gauge clamped to zero:\n%s", rec.Body.String())
	}
}
