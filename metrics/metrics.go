// ABOUTME: Prometheus instrumentation for sync, search and export activity
// ABOUTME: Recorder interface with a registry-backed implementation and a no-op fallback
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leadsync"

// Recorder is what components depend on; nil-safe wiring uses Noop.
type Recorder interface {
	RemoteWrite(op string, err error)
	Snapshot(size int)
	Search(outcome string)
	DetailFetch(found bool)
	Export(sink string, err error)
	SetPending(n int)
	SetLeads(n int)
}

type Prometheus struct {
	registry      *prometheus.Registry
	remoteWrites  *prometheus.CounterVec
	snapshots     prometheus.Counter
	snapshotSize  prometheus.Gauge
	searches      *prometheus.CounterVec
	detailFetches *prometheus.CounterVec
	exports       *prometheus.CounterVec
	pendingWrites prometheus.Gauge
	leadsInStore  prometheus.Gauge
}

// New registers collectors on a fresh registry.
func New() *Prometheus {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		remoteWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_writes_total",
			Help:      "Remote store writes by operation and result",
		}, []string{"op", "result"}),
		snapshots: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_snapshots_total",
			Help:      "Remote snapshots received",
		}),
		snapshotSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remote_snapshot_leads",
			Help:      "Leads in the most recent remote snapshot",
		}),
		searches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Area searches by outcome",
		}, []string{"outcome"}),
		detailFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detail_fetches_total",
			Help:      "Place detail lookups by result",
		}, []string{"result"}),
		exports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Best-effort exports by sink and result",
		}, []string{"sink", "result"}),
		pendingWrites: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_writes",
			Help:      "Leads waiting in the sync buffer",
		}),
		leadsInStore: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "leads",
			Help:      "Leads currently held in memory",
		}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) RemoteWrite(op string, err error) {
	p.remoteWrites.WithLabelValues(op, result(err)).Inc()
}

func (p *Prometheus) Snapshot(size int) {
	p.snapshots.Inc()
	p.snapshotSize.Set(float64(size))
}

func (p *Prometheus) Search(outcome string) {
	p.searches.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) DetailFetch(found bool) {
	label := "empty"
	if found {
		label = "found"
	}
	p.detailFetches.WithLabelValues(label).Inc()
}

func (p *Prometheus) Export(sink string, err error) {
	p.exports.WithLabelValues(sink, result(err)).Inc()
}

func (p *Prometheus) SetPending(n int) {
	p.pendingWrites.Set(float64(n))
}

func (p *Prometheus) SetLeads(n int) {
	p.leadsInStore.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

type noop struct{}

// Noop discards everything.
func Noop() Recorder { return noop{} }

func (noop) RemoteWrite(string, error) {}
func (noop) Snapshot(int)              {}
func (noop) Search(string)             {}
func (noop) DetailFetch(bool)          {}
func (noop) Export(string, error)      {}
func (noop) SetPending(int)            {}
func (noop) SetLeads(int)              {}
