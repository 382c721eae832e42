package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SizeFunc reports the volatile store occupancy at scrape time.
type SizeFunc func() (keys int, managed int)

// StoreCollector reports volatile store size on every scrape.
type StoreCollector struct {
	size SizeFunc

	keysDesc    *prometheus.Desc
	managedDesc *prometheus.Desc
}

// NewStoreCollector creates a collector around size.
func NewStoreCollector(size SizeFunc) *StoreCollector {
	return &StoreCollector{
		size: size,
		keysDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "volatile", "keys"),
			"Keys currently held in the volatile store",
			nil, nil,
		),
		managedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "volatile", "envelopes"),
			"Volatile store entries recognised as securestore envelopes",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keysDesc
	ch <- c.managedDesc
}

// Collect implements prometheus.Collector.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	keys, managed := c.size()
	ch <- prometheus.MustNewConstMetric(c.keysDesc, prometheus.GaugeValue, float64(keys))
	ch <- prometheus.MustNewConstMetric(c.managedDesc, prometheus.GaugeValue, float64(managed))
}

// RegisterStore registers a StoreCollector with r.
func (r *Registry) RegisterStore(size SizeFunc) error {
	return r.registry.Register(NewStoreCollector(size))
}

// RegisterUsedBytes exposes the bytes the volatile store charges against
// its quota, read at scrape time.
func (r *Registry) RegisterUsedBytes(used func() int64) error {
	return r.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "volatile",
		Name:      "used_bytes",
		Help:      "Bytes of keys and values held against the volatile store quota",
	}, func() float64 { return float64(used()) }))
}
