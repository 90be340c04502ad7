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

	processUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "groundctl",
		Name:      "process_up",
		Help:      "Liveness of managed processes (1=running, 0=stopped).",
	}, []string{"process"})

	launchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "groundctl",
		Name:      "launches_total",
		Help:      "Total number of completed launch sequences.",
	})

	stopsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "groundctl",
		Name:      "stops_total",
		Help:      "Total number of completed shutdown sequences.",
	})

	stopDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "groundctl",
		Name:      "stop_duration_seconds",
		Help:      "Time taken to gracefully stop each managed process.",
	}, []string{"process"})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "groundctl",
		Name:      "build_info",
		Help:      "Build metadata for the running groundctl binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(processUp, launchesTotal, stopsTotal, stopDuration, buildInfo)
}

// Registry returns the Prometheus registry containing all groundctl metrics.
func Registry() *prometheus.Registry {
	return registry
}

// SetProcessUp records the liveness state of the named process.
func SetProcessUp(process string, up bool) {
	if process == "" {
		return
	}
	value := 0.0
	if up {
		value = 1.0
	}
	processUp.WithLabelValues(process).Set(value)
}

// IncLaunches counts a completed launch sequence.
func IncLaunches() {
	launchesTotal.Inc()
}

// IncStops counts a completed shutdown sequence.
func IncStops() {
	stopsTotal.Inc()
}

// ObserveStopDuration records how long a graceful stop took.
func ObserveStopDuration(process string, d time.Duration) {
	label := process
	if label == "" {
		label = "unknown"
	}
	stopDuration.WithLabelValues(label).Observe(d.Seconds())
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

// ResetProcess clears the per-process series.
func ResetProcess(process string) {
	if process == "" {
		return
	}
	processUp.DeleteLabelValues(process)
	stopDuration.DeleteLabelValues(process)
}
