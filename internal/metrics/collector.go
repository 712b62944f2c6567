package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// ServerStats provides the collector access to live server state.
type ServerStats interface {
	PostWritePending() int
	SSESubscriberCount() int
	SummariesInFlight() int
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	pool  *pgxpool.Pool
	stats ServerStats

	postWritePending  *prometheus.Desc
	sseSubscribers    *prometheus.Desc
	summariesInFlight *prometheus.Desc
	dbTotalConns      *prometheus.Desc
	dbAcquiredConns   *prometheus.Desc
	dbIdleConns       *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// pool is nil for the SQLite backend (pool gauges report 0).
func NewCollector(pool *pgxpool.Pool, stats ServerStats) *Collector {
	return &Collector{
		pool:  pool,
		stats: stats,
		postWritePending: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "post_write_pending"),
			"Post-write jobs waiting in the queue.",
			nil, nil,
		),
		sseSubscribers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "sse_subscribers_active"),
			"Current number of SSE subscribers.",
			nil, nil,
		),
		summariesInFlight: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "summaries_in_flight"),
			"Meetings with a summarization currently running.",
			nil, nil,
		),
		dbTotalConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "total_conns"),
			"Total database pool connections.",
			nil, nil,
		),
		dbAcquiredConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "acquired_conns"),
			"Database pool connections currently in use.",
			nil, nil,
		),
		dbIdleConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "idle_conns"),
			"Database pool idle connections.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.postWritePending
	ch <- c.sseSubscribers
	ch <- c.summariesInFlight
	ch <- c.dbTotalConns
	ch <- c.dbAcquiredConns
	ch <- c.dbIdleConns
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var pending, subs, inFlight int
	if c.stats != nil {
		pending = c.stats.PostWritePending()
		subs = c.stats.SSESubscriberCount()
		inFlight = c.stats.SummariesInFlight()
	}
	ch <- prometheus.MustNewConstMetric(c.postWritePending, prometheus.GaugeValue, float64(pending))
	ch <- prometheus.MustNewConstMetric(c.sseSubscribers, prometheus.GaugeValue, float64(subs))
	ch <- prometheus.MustNewConstMetric(c.summariesInFlight, prometheus.GaugeValue, float64(inFlight))

	if c.pool != nil {
		stat := c.pool.Stat()
		ch <- prometheus.MustNewConstMetric(c.dbTotalConns, prometheus.GaugeValue, float64(stat.TotalConns()))
		ch <- prometheus.MustNewConstMetric(c.dbAcquiredConns, prometheus.GaugeValue, float64(stat.AcquiredConns()))
		ch <- prometheus.MustNewConstMetric(c.dbIdleConns, prometheus.GaugeValue, float64(stat.IdleConns()))
	} else {
		ch <- prometheus.MustNewConstMetric(c.dbTotalConns, prometheus.GaugeValue, 0)
		ch <- prometheus.MustNewConstMetric(c.dbAcquiredConns, prometheus.GaugeValue, 0)
		ch <- prometheus.MustNewConstMetric(c.dbIdleConns, prometheus.GaugeValue, 0)
	}
}
