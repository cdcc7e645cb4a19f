package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics records metadata for scheduled jobs.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of cron jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_success",
		Help: "Successful cron job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_failure",
		Help: "Failed cron job executions.",
	}, []string{"job"})
	reg.MustRegister(duration, success, failure)
	return &CronJobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named job.
func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (c *CronJobMetrics) IncSuccess(job string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (c *CronJobMetrics) IncFailure(job string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// CatalogSyncMetrics counts per-product outcomes of catalog sync batches.
type CatalogSyncMetrics struct {
	synced  prometheus.Counter
	skipped prometheus.Counter
	failed  prometheus.Counter
}

// NewCatalogSyncMetrics registers catalog sync counters on the provided registerer.
func NewCatalogSyncMetrics(reg prometheus.Registerer) *CatalogSyncMetrics {
	if reg == nil {
		return &CatalogSyncMetrics{}
	}
	synced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_sync_products_synced_total",
		Help: "Products updated from the supplier catalog.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_sync_products_skipped_total",
		Help: "Products skipped during catalog sync.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_sync_products_failed_total",
		Help: "Products that failed to sync.",
	})
	reg.MustRegister(synced, skipped, failed)
	return &CatalogSyncMetrics{synced: synced, skipped: skipped, failed: failed}
}

// IncSynced increments the synced counter.
func (c *CatalogSyncMetrics) IncSynced() {
	if c == nil || c.synced == nil {
		return
	}
	c.synced.Inc()
}

// IncSkipped increments the skipped counter.
func (c *CatalogSyncMetrics) IncSkipped() {
	if c == nil || c.skipped == nil {
		return
	}
	c.skipped.Inc()
}

// IncFailed increments the failed counter.
func (c *CatalogSyncMetrics) IncFailed() {
	if c == nil || c.failed == nil {
		return
	}
	c.failed.Inc()
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
