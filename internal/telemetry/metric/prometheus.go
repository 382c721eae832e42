package metric

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "securestore"

// Open results.
const (
	ResultOK        = "ok"
	ResultAbsent    = "absent"
	ResultIntegrity = "integrity"
	ResultMalformed = "malformed"
	ResultError     = "error"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Engine metrics
	SealTotal *prometheus.CounterVec // labels: mode
	OpenTotal *prometheus.CounterVec // labels: kind, result

	// Key derivation metrics
	DeriveTotal    *prometheus.CounterVec   // labels: purpose, result
	DeriveDuration *prometheus.HistogramVec // labels: purpose

	// Storage metrics
	StoreWriteFailures prometheus.Counter
	ClearRemoved       prometheus.Counter
}

// NewRegistry creates a registry with every securestore metric registered,
// plus the Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		SealTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "seal_total",
			Help:      "Values sealed, by protection mode",
		}, []string{"mode"}),
		OpenTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "open_total",
			Help:      "Envelopes opened, by envelope kind and result",
		}, []string{"kind", "result"}),
		DeriveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keyderiv",
			Name:      "derive_total",
			Help:      "Key derivations, by purpose and result",
		}, []string{"purpose", "result"}),
		DeriveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "keyderiv",
			Name:      "derive_duration_seconds",
			Help:      "PBKDF2 key derivation latency",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"purpose"}),
		StoreWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "write_failures_total",
			Help:      "Volatile store writes that failed",
		}),
		ClearRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "clear_removed_total",
			Help:      "Envelopes removed by Clear",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.SealTotal,
		r.OpenTotal,
		r.DeriveTotal,
		r.DeriveDuration,
		r.StoreWriteFailures,
		r.ClearRemoved,
	)

	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler returns an HTTP handler exposing this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registerer exposes the underlying registerer for storage gauges.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObserveSeal records a sealed value.
func (r *Registry) ObserveSeal(mode string) {
	r.SealTotal.WithLabelValues(mode).Inc()
}

// ObserveOpen records an open attempt.
func (r *Registry) ObserveOpen(kind, result string) {
	r.OpenTotal.WithLabelValues(kind, result).Inc()
}

// ObserveDerive records a key derivation.
func (r *Registry) ObserveDerive(purpose string, elapsed time.Duration, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.DeriveTotal.WithLabelValues(purpose, result).Inc()
	if err == nil {
		r.DeriveDuration.WithLabelValues(purpose).Observe(elapsed.Seconds())
	}
}

// IncStoreWriteFailure records a failed volatile store write.
func (r *Registry) IncStoreWriteFailure() {
	r.StoreWriteFailures.Inc()
}

// AddClearRemoved records envelopes removed by Clear.
func (r *Registry) AddClearRemoved(n int) {
	r.ClearRemoved.Add(float64(n))
}

// Sample is one securestore series in a Snapshot.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Snapshot gathers the securestore_* series (counters and gauges; histograms
// report their sample count). Runtime and process series are skipped.
func (r *Registry) Snapshot() ([]Sample, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, namespace+"_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}

			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				v = float64(m.GetHistogram().GetSampleCount())
			}
			out = append(out, Sample{Name: name, Labels: labels, Value: v})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
