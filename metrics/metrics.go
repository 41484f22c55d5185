// Package metrics exports mbuf pool statistics to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oy3o/mbuf"
)

// StatsSource is anything that can report pool statistics, usually *mbuf.Pool.
// Stats must be safe to call from the scrape goroutine.
type StatsSource interface {
	Stats() mbuf.Stats
}

// Collector is a prometheus.Collector that reads a StatsSource on every scrape.
type Collector struct {
	source StatsSource

	hits     *prometheus.Desc
	misses   *prometheus.Desc
	rejected *prometheus.Desc
	returns  *prometheus.Desc
	drops    *prometheus.Desc
	idle     *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector for source. Metric names are prefixed
// with namespace, e.g. "mbuf" yields mbuf_pool_hits_total.
func NewCollector(namespace string, source StatsSource) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, labels, nil)
	}
	return &Collector{
		source:   source,
		hits:     desc("hits_total", "Take calls served from an idle buffer."),
		misses:   desc("misses_total", "Take calls served by a fresh allocation."),
		rejected: desc("rejected_total", "Take calls for a size no capacity class can hold."),
		returns:  desc("returns_total", "Buffers given back and filed in a bucket."),
		drops:    desc("drops_total", "Buffers given back and released because their capacity left the class ladder."),
		idle:     desc("idle_buffers", "Idle buffers held per capacity class.", "class"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.rejected
	ch <- c.returns
	ch <- c.drops
	ch <- c.idle
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()

	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.rejected, prometheus.CounterValue, float64(s.Rejected))
	ch <- prometheus.MustNewConstMetric(c.returns, prometheus.CounterValue, float64(s.Returns))
	ch <- prometheus.MustNewConstMetric(c.drops, prometheus.CounterValue, float64(s.Drops))

	for i, class := range mbuf.Classes() {
		ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.Idle[i]), strconv.Itoa(class))
	}
}
