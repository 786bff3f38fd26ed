package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	launches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cmdlaunch",
		Name:      "launches_total",
		Help:      "Total number of launch attempts by mode and outcome.",
	}, []string{"mode", "result"})

	launchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cmdlaunch",
		Name:      "launch_duration_seconds",
		Help:      "Time spent starting a command in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"mode"})

	trackedProcesses = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cmdlaunch",
		Name:      "tracked_processes",
		Help:      "Number of background processes currently tracked.",
	})

	terminations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cmdlaunch",
		Name:      "terminations_total",
		Help:      "Processes stopped by the termination coordinator, by kind.",
	}, []string{"kind"})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cmdlaunch",
		Name:      "build_info",
		Help:      "Build metadata for the running cmdlaunch binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

// Launch modes.
const (
	ModeBackground  = "background"
	ModeInteractive = "interactive"
	ModeFallback    = "fallback"
)

// Termination kinds.
const (
	TerminationGraceful = "graceful"
	TerminationForced   = "forced"
	TerminationFailed   = "failed"
)

func init() {
	registry.MustRegister(launches, launchLatency, trackedProcesses, terminations, buildInfo)
}

// Registry returns the Prometheus registry containing all cmdlaunch metrics.
func Registry() *prometheus.Registry {
	return registry
}

// RecordLaunch counts a launch attempt and its latency.
func RecordLaunch(mode string, ok bool, d time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	launches.WithLabelValues(mode, result).Inc()
	launchLatency.WithLabelValues(mode).Observe(d.Seconds())
}

// SetTrackedProcesses records the registry size.
func SetTrackedProcesses(n int) {
	if n < 0 {
		n = 0
	}
	trackedProcesses.Set(float64(n))
}

// AddTerminations increments the termination counter for kind.
func AddTerminations(kind string, n int) {
	if kind == "" || n <= 0 {
		return
	}
	terminations.WithLabelValues(kind).Add(float64(n))
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
