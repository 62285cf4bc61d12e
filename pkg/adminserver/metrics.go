package adminserver

import (
	"fmt"
	"io"

	"github.com/halvardsen/pagepool/pkg/bufferpool"
)

// PrometheusExporter writes a ParallelPool's Stats in Prometheus text
// exposition format.
type PrometheusExporter struct {
	pool      *bufferpool.ParallelPool
	namespace string
}

// NewPrometheusExporter builds an exporter over pool under the given
// metric namespace prefix.
func NewPrometheusExporter(pool *bufferpool.ParallelPool, namespace string) *PrometheusExporter {
	if namespace == "" {
		namespace = "pagepool"
	}
	return &PrometheusExporter{pool: pool, namespace: namespace}
}

// WriteMetrics writes aggregate and per-shard gauges/counters to w.
// See https://prometheus.io/docs/instrumenting/exposition_formats/
func (pe *PrometheusExporter) WriteMetrics(w io.Writer) error {
	stats := pe.pool.Stats()

	if err := pe.writeGauge(w, "frames_total", "Total frames across all shards", float64(stats.Totals.Size)); err != nil {
		return err
	}
	if err := pe.writeGauge(w, "frames_free", "Free frames across all shards", float64(stats.Totals.FramesFree)); err != nil {
		return err
	}
	if err := pe.writeGauge(w, "frames_pinned", "Pinned frames across all shards", float64(stats.Totals.FramesPinned)); err != nil {
		return err
	}
	if err := pe.writeGauge(w, "frames_resident", "Resident frames across all shards", float64(stats.Totals.FramesResident)); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "fetch_hits_total", "Total fetch hits across all shards", stats.Totals.Hits); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "fetch_misses_total", "Total fetch misses across all shards", stats.Totals.Misses); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "evictions_total", "Total page evictions across all shards", stats.Totals.Evictions); err != nil {
		return err
	}

	if len(stats.Shards) > 0 {
		if err := pe.writeFamilyHeader(w, "shard_frames_resident", "Resident frames, per shard", "gauge"); err != nil {
			return err
		}
		if err := pe.writeFamilyHeader(w, "shard_evictions_total", "Total page evictions, per shard", "counter"); err != nil {
			return err
		}
		if err := pe.writeFamilyHeader(w, "shard_fetch_hits_total", "Total fetch hits, per shard", "counter"); err != nil {
			return err
		}
		if err := pe.writeFamilyHeader(w, "shard_fetch_misses_total", "Total fetch misses, per shard", "counter"); err != nil {
			return err
		}
	}

	for i, shard := range stats.Shards {
		if err := pe.writeShardGauge(w, i, "shard_frames_resident", shard.FramesResident); err != nil {
			return err
		}
		if err := pe.writeShardCounter(w, i, "shard_evictions_total", shard.Evictions); err != nil {
			return err
		}
		if err := pe.writeShardCounter(w, i, "shard_fetch_hits_total", shard.Hits); err != nil {
			return err
		}
		if err := pe.writeShardCounter(w, i, "shard_fetch_misses_total", shard.Misses); err != nil {
			return err
		}
	}

	return nil
}

func (pe *PrometheusExporter) writeFamilyHeader(w io.Writer, name, help, kind string) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", metricName, help, metricName, kind)
	return err
}

func (pe *PrometheusExporter) writeCounter(w io.Writer, name, help string, value uint64) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", metricName, help, metricName, metricName, value)
	return err
}

func (pe *PrometheusExporter) writeGauge(w io.Writer, name, help string, value float64) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n", metricName, help, metricName, metricName, value)
	return err
}

func (pe *PrometheusExporter) writeShardGauge(w io.Writer, shard int, name string, value int) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "%s{shard=\"%d\"} %d\n", metricName, shard, value)
	return err
}

func (pe *PrometheusExporter) writeShardCounter(w io.Writer, shard int, name string, value uint64) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "%s{shard=\"%d\"} %d\n", metricName, shard, value)
	return err
}
