package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	JobsStarted    *prometheus.CounterVec
	LinksCollected *prometheus.CounterVec
	RecordsTotal   *prometheus.CounterVec
	ErrorsTotal    *prometheus.CounterVec
	FetchDuration  prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		JobsStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quicklead_jobs_started_total",
			Help: "The total number of scraping jobs accepted",
		}, nil),
		LinksCollected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quicklead_links_collected_total",
			Help: "The total number of business references discovered",
		}, nil),
		RecordsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quicklead_records_total",
			Help: "The total number of business records produced",
		}, []string{"status"}), // 'scraped' or 'error'
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quicklead_errors_total",
			Help: "The total number of errors encountered",
		}, []string{"type"}), // e.g., 'fetch_failed', 'archive_failed'
		FetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "quicklead_detail_fetch_duration_seconds",
			Help:    "Wall time of one business detail fetch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

func (m *Metrics) IncJobsStarted() {
	m.JobsStarted.WithLabelValues().Inc()
}

func (m *Metrics) AddLinksCollected(n int) {
	m.LinksCollected.WithLabelValues().Add(float64(n))
}

func (m *Metrics) IncRecords(status string) {
	m.RecordsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncErrorsTotal(errorType string) {
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

func (m *Metrics) ObserveFetchDuration(d time.Duration) {
	m.FetchDuration.Observe(d.Seconds())
}
