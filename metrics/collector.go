// Package metrics exports filesystem operation counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/brettbedarf/varfs/filesystem"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsSource is anything that reports per-operation counters.
// *filesystem.FileSystem satisfies it.
type StatsSource interface {
	Stats() map[string]filesystem.OpStats
}

var (
	opsDesc = prometheus.NewDesc(
		"varfs_ops_total",
		"Total number of filesystem operations",
		[]string{"op"}, nil,
	)
	errorsDesc = prometheus.NewDesc(
		"varfs_op_errors_total",
		"Total number of filesystem operations that returned an errno",
		[]string{"op"}, nil,
	)
	bytesReadDesc = prometheus.NewDesc(
		"varfs_bytes_read_total",
		"Total bytes returned by reads",
		nil, nil,
	)
	bytesWrittenDesc = prometheus.NewDesc(
		"varfs_bytes_written_total",
		"Total bytes accepted by writes",
		nil, nil,
	)
)

// Collector reads counters from its source at scrape time, so it never
// holds state of its own.
type Collector struct {
	source StatsSource
}

var _ prometheus.Collector = (*Collector)(nil)

func NewCollector(source StatsSource) *Collector {
	return &Collector{source: source}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- opsDesc
	ch <- errorsDesc
	ch <- bytesReadDesc
	ch <- bytesWrittenDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()
	for op, s := range stats {
		ch <- prometheus.MustNewConstMetric(opsDesc, prometheus.CounterValue, float64(s.Calls), op)
		ch <- prometheus.MustNewConstMetric(errorsDesc, prometheus.CounterValue, float64(s.Errors), op)
	}
	ch <- prometheus.MustNewConstMetric(bytesReadDesc, prometheus.CounterValue, float64(stats[filesystem.OpRead].Bytes))
	ch <- prometheus.MustNewConstMetric(bytesWrittenDesc, prometheus.CounterValue, float64(stats[filesystem.OpWrite].Bytes))
}

// Handler serves source's metrics on a private registry, alongside the Go
// runtime and process collectors.
func Handler(source StatsSource) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(source),
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
