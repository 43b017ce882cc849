package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of class requests created",
	})

	BookingsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_accepted_total",
		Help: "Total number of class requests accepted by tutors",
	})

	BookingsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_rejected_total",
		Help: "Total number of class requests rejected by tutors",
	})

	BookingsPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_paid_total",
		Help: "Total number of class requests paid via the payment provider",
	})

	BookingsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_confirmed_total",
		Help: "Total number of class requests confirmed with the handshake code",
	})

	BookingsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_failed_total",
		Help: "Total number of rejected booking attempts",
	}, []string{"reason"})

	RefundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refunds_total",
		Help: "Total number of successful payment refunds",
	})

	PreferencesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preferences_created_total",
		Help: "Total number of payment preferences created",
	})

	EventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_events_consumed_total",
		Help: "Total number of booking events recorded by the audit worker",
	}, []string{"event_type"})

	OAuthRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_refresh_total",
		Help: "Total number of provider OAuth token refreshes",
	}, []string{"outcome"})

	ProviderCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_call_latency_seconds",
		Help:    "Latency of payment provider API calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
