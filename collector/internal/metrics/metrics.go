package metrics

import (
	"bytes"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/startingnine/startingnine/collector/internal/atomicfile"
)

const namespace = "startingnine"

// Metrics holds the collector's run metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	providerRequests *prometheus.CounterVec
	entities         *prometheus.CounterVec
	cacheRecords     prometheus.Gauge
	umpiresReported  prometheus.Gauge
	lastRun          *prometheus.GaugeVec
}

// New registers the collector metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Stats API calls by endpoint and result.",
		}, []string{"endpoint", "result"}),
		entities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_total",
			Help:      "Processed players by kind (starter, batter) and outcome.",
		}, []string{"kind", "outcome"}),
		cacheRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_records",
			Help:      "Records held in the daily cache after the last run.",
		}),
		umpiresReported: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "umpires_reported",
			Help:      "Officials in the last umpire report.",
		}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the job last completed.",
		}, []string{"job"}),
	}
	m.registry.MustRegister(m.providerRequests, m.entities, m.cacheRecords, m.umpiresReported, m.lastRun)
	return m
}

// ObserveRequest counts one provider call. Its signature matches
// statsapi.Observer.
func (m *Metrics) ObserveRequest(endpoint string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.providerRequests.WithLabelValues(endpoint, result).Inc()
}

// ObserveEntity counts one processed player.
func (m *Metrics) ObserveEntity(kind, outcome string) {
	m.entities.WithLabelValues(kind, outcome).Inc()
}

// SetCacheRecords records how many person records the daily cache holds
// after a matchup run.
func (m *Metrics) SetCacheRecords(n int) { m.cacheRecords.Set(float64(n)) }

// SetUmpiresReported records how many officials the last umpire report lists.
func (m *Metrics) SetUmpiresReported(n int) { m.umpiresReported.Set(float64(n)) }

// MarkRun stamps the completion time of job.
func (m *Metrics) MarkRun(job string, at time.Time) {
	m.lastRun.WithLabelValues(job).Set(float64(at.Unix()))
}

// WriteTextfile gathers the registry and writes it in the Prometheus text
// format to path, replacing the file atomically so a textfile collector
// never reads a partial exposition.
func (m *Metrics) WriteTextfile(path string) error {
	mfs, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gather: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}

	if err := atomicfile.Write(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}
