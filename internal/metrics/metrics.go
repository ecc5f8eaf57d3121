// Package metrics declares the Prometheus metrics of the dashboard service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AnalysesTotal    *prometheus.CounterVec
	BankSyncsTotal   *prometheus.CounterVec
	WebhooksTotal    *prometheus.CounterVec
	AlertsTotal      *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	JobRunsTotal     *prometheus.CounterVec
	IngestedTotal    prometheus.Counter
	ExpiredKeysSwept prometheus.Counter
}

// NewMetrics registers the collectors once and returns them. Every call
// returns the same instance.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dashboard_http_requests_total",
					Help: "HTTP requests by route, method and status code",
				},
				[]string{"route", "method", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "dashboard_http_request_duration_seconds",
					Help:    "HTTP request latency by route",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"route", "method"},
			),
			AnalysesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dashboard_analyses_total",
					Help: "Transaction analyses by trigger and outcome",
				},
				[]string{"trigger", "outcome"}, // trigger: api, ingest, setup, schedule
			),
			BankSyncsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dashboard_bank_syncs_total",
					Help: "Bank transaction syncs by outcome",
				},
				[]string{"outcome"},
			),
			WebhooksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dashboard_plaid_webhooks_total",
					Help: "Plaid webhooks received by type and code",
				},
				[]string{"type", "code"},
			),
			AlertsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dashboard_alerts_generated_total",
					Help: "Alerts raised by type",
				},
				[]string{"type"},
			),
			CacheLookups: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dashboard_cache_lookups_total",
					Help: "Cache lookups by cache and result",
				},
				[]string{"cache", "result"}, // result: hit, miss
			),
			JobRunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dashboard_job_runs_total",
					Help: "Scheduled job runs by job and outcome",
				},
				[]string{"job", "outcome"},
			),
			IngestedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "dashboard_transactions_ingested_total",
					Help: "Transactions saved from bank feeds and imports",
				},
			),
			ExpiredKeysSwept: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "dashboard_expired_keys_swept_total",
					Help: "Expired key/value rows removed by the sweeper",
				},
			),
		}
	})
	return globalMetrics
}

// Outcome maps an error to the "ok"/"error" label value
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// CacheResult maps a cache lookup to the "hit"/"miss" label value
func CacheResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
