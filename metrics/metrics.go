package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cityconnect",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cityconnect",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	issueEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cityconnect",
			Subsystem: "issues",
			Name:      "events_total",
			Help:      "Issue writes by kind (created, status, comment, vote, deleted).",
		},
		[]string{"event"},
	)

	issuesByCategory = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cityconnect",
			Subsystem: "issues",
			Name:      "created_by_category_total",
			Help:      "Issues created, by category.",
		},
		[]string{"category"},
	)

	uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cityconnect",
			Subsystem: "storage",
			Name:      "uploads_total",
			Help:      "File uploads by outcome.",
		},
		[]string{"success"},
	)

	activeSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cityconnect",
			Subsystem: "realtime",
			Name:      "active_subscriptions",
			Help:      "Live subscriptions currently open.",
		},
	)
)

var registerOnce sync.Once

// Init registers the collectors. The measurement id, when set, is attached
// as a constant label so dashboards can tell deployments apart. Collectors
// still count when Init is never called; they are just not exported.
func Init(measurementID string) {
	registerOnce.Do(func() {
		var reg prometheus.Registerer = Registry
		if measurementID != "" {
			reg = prometheus.WrapRegistererWith(prometheus.Labels{"measurement_id": measurementID}, Registry)
		}
		reg.MustRegister(httpRequests, httpDuration, issueEvents, issuesByCategory, uploads, activeSubscriptions)
	})
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func ObserveRequest(method, path string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func IssueEvent(event string) {
	issueEvents.WithLabelValues(event).Inc()
}

func IssueCreated(category string) {
	issueEvents.WithLabelValues("created").Inc()
	issuesByCategory.WithLabelValues(category).Inc()
}

func Upload(success bool) {
	uploads.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func SubscriptionOpened() { activeSubscriptions.Inc() }

func SubscriptionClosed() { activeSubscriptions.Dec() }
