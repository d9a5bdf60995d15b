package crash

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/hugo-lorenzo-mato/crashlog/internal/fsutil"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsExporter writes crash counters to a Prometheus textfile, for
// collection by node_exporter's textfile collector.
type MetricsExporter struct {
	path string
	reg  *prometheus.Registry

	written   prometheus.Counter
	failed    prometheus.Counter
	lastFault prometheus.Gauge
}

// NewMetricsExporter creates an exporter writing to path.
func NewMetricsExporter(path string) *MetricsExporter {
	m := &MetricsExporter{
		path: path,
		reg:  prometheus.NewRegistry(),
		written: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crashlog",
			Name:      "reports_written_total",
			Help:      "Total number of crash reports written by this process.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crashlog",
			Name:      "report_failures_total",
			Help:      "Total number of faults whose report could not be written.",
		}),
		lastFault: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crashlog",
			Name:      "last_fault_timestamp_seconds",
			Help:      "Unix time of the last captured fault.",
		}),
	}
	m.reg.MustRegister(m.written, m.failed, m.lastFault)
	return m
}

// Path returns the textfile path.
func (m *MetricsExporter) Path() string {
	return m.path
}

// Record counts one captured fault and rewrites the textfile.
func (m *MetricsExporter) Record(at time.Time, written bool) error {
	if written {
		m.written.Inc()
	} else {
		m.failed.Inc()
	}
	m.lastFault.Set(float64(at.Unix()))

	if err := fsutil.EnsureDir(filepath.Dir(m.path)); err != nil {
		return fmt.Errorf("creating metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(m.path, m.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
