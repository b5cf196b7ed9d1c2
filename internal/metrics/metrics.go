// Package metrics provides Prometheus metrics for disc imports.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector owns the import metrics and the registry they are exported from.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry  *prometheus.Registry
	imports   *prometheus.CounterVec
	warnings  prometheus.Counter
	dataBytes prometheus.Counter
	active    prometheus.Gauge
	duration  prometheus.Histogram
}

// New creates a collector backed by a private registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		imports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cdmedia",
			Name:      "imports_total",
			Help:      "Finished disc imports by terminal status",
		}, []string{"status"}),
		warnings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cdmedia",
			Name:      "import_warnings_total",
			Help:      "Recoverable reader warnings across all imports",
		}),
		dataBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cdmedia",
			Name:      "imported_bytes_total",
			Help:      "Bytes of sector data published in bundles",
		}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cdmedia",
			Name:      "imports_active",
			Help:      "Imports currently reading a disc",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cdmedia",
			Name:      "import_duration_seconds",
			Help:      "Wall time from launch to terminal outcome",
			Buckets:   []float64{30, 60, 120, 300, 600, 900, 1200, 1800, 2700, 3600},
		}),
	}
}

// Registry exposes the registry for HTTP or textfile export.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ImportStarted marks an import as active.
func (c *Collector) ImportStarted() {
	if c == nil {
		return
	}
	c.active.Inc()
}

// ImportFinished records a terminal outcome for an import previously passed
// to ImportStarted.
func (c *Collector) ImportFinished(status string, warnings int, duration time.Duration, dataBytes int64) {
	if c == nil {
		return
	}
	c.active.Dec()
	c.imports.WithLabelValues(status).Inc()
	if warnings > 0 {
		c.warnings.Add(float64(warnings))
	}
	if dataBytes > 0 {
		c.dataBytes.Add(float64(dataBytes))
	}
	c.duration.Observe(duration.Seconds())
}

// WriteTextfile writes the current metrics in the text exposition format for
// the node exporter textfile collector. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
