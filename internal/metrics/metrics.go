package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leasedesk_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leasedesk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leasedesk_uploads_total",
			Help: "Total number of upload attempts by outcome.",
		},
		[]string{"status"},
	)

	UploadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leasedesk_upload_bytes_total",
			Help: "Total bytes of successfully stored uploads.",
		},
	)

	RateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leasedesk_rate_limit_rejections_total",
			Help: "Requests rejected by the per-minute rate limiter.",
		},
		[]string{"backend"},
	)

	QuotaRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leasedesk_quota_rejections_total",
			Help: "Requests rejected by the monthly quota ledger.",
		},
	)

	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leasedesk_extractions_total",
			Help: "Lease field extraction attempts by outcome.",
		},
		[]string{"status"},
	)

	BillingEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leasedesk_billing_events_total",
			Help: "Billing webhook events processed by type.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UploadsTotal,
		UploadBytesTotal,
		RateLimitRejectionsTotal,
		QuotaRejectionsTotal,
		ExtractionsTotal,
		BillingEventsTotal,
	)
}
