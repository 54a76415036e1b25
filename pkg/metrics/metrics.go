package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	PrescriptionsUploaded prometheus.Counter
	VerificationsTotal    *prometheus.CounterVec
	RevocationsTotal      prometheus.Counter
	SecurityCodesIssued   prometheus.Counter

	OrdersApproved          prometheus.Counter
	ShipmentsBlocked        *prometheus.CounterVec
	OrdersCancelledByRevoke prometheus.Counter

	AuditEntriesTotal  prometheus.Counter
	AuditBufferDropped prometheus.Counter
}

func NewCollector(serviceName string) *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer, serviceName)
}

// NewCollectorWith registers all metrics against the given registerer.
func NewCollectorWith(reg prometheus.Registerer, serviceName string) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		PrescriptionsUploaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "pharmacy",
			Name:      "prescriptions_uploaded_total",
			Help:      "Total prescriptions uploaded by patients.",
		}),

		VerificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "pharmacy",
			Name:      "verifications_total",
			Help:      "Total verification reviews by outcome.",
		}, []string{"outcome"}),

		RevocationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "pharmacy",
			Name:      "revocations_total",
			Help:      "Total prescriptions revoked.",
		}),

		SecurityCodesIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "pharmacy",
			Name:      "security_codes_issued_total",
			Help:      "Total security codes generated.",
		}),

		OrdersApproved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "fulfillment",
			Name:      "orders_approved_total",
			Help:      "Total orders approved for shipment.",
		}),

		ShipmentsBlocked: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "fulfillment",
			Name:      "shipments_blocked_total",
			Help:      "Approvals blocked by prescription state, by reason.",
		}, []string{"reason"}),

		OrdersCancelledByRevoke: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "fulfillment",
			Name:      "orders_cancelled_by_revocation_total",
			Help:      "Pending orders cancelled because their prescription was revoked.",
		}),

		AuditEntriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries written.",
		}),

		AuditBufferDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "buffer_dropped_total",
			Help:      "Audit entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
