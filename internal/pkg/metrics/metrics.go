package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for reservations_total and cancellations_total.
const (
	OutcomeBooked           = "booked"
	OutcomeRejected         = "rejected"
	OutcomeSeatTaken        = "seat_taken"
	OutcomeFull             = "full"
	OutcomeExhausted        = "exhausted"
	OutcomeError            = "error"
	OutcomeCancelled        = "cancelled"
	OutcomeAlreadyCancelled = "already_cancelled"
	OutcomeNotOwner         = "not_owner"
	OutcomeNotFound         = "not_found"
)

// Metrics groups the collectors exported on /metrics.
// All recording methods are no-ops on a nil *Metrics.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// outcome: booked, rejected, seat_taken, full, exhausted, error
	ReservationsTotal *prometheus.CounterVec

	// conflicts that triggered another reservation attempt
	ReservationRetriesTotal prometheus.Counter

	// outcome: cancelled, already_cancelled, not_owner, not_found, error
	CancellationsTotal *prometheus.CounterVec

	AvailabilityCacheTotal *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ReservationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservations_total",
				Help: "Reservation attempts by outcome",
			},
			[]string{"outcome"},
		),
		ReservationRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "reservation_retries_total",
				Help: "Reservation attempts repeated after a storage conflict",
			},
		),
		CancellationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cancellations_total",
				Help: "Cancellation requests by outcome",
			},
			[]string{"outcome"},
		),
		AvailabilityCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "availability_cache_requests_total",
				Help: "Availability cache lookups by result (hit, miss)",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationsTotal,
		m.ReservationRetriesTotal,
		m.CancellationsTotal,
		m.AvailabilityCacheTotal,
	)

	return m
}

func (m *Metrics) Reservation(outcome string) {
	if m == nil {
		return
	}
	m.ReservationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ReservationRetry() {
	if m == nil {
		return
	}
	m.ReservationRetriesTotal.Inc()
}

func (m *Metrics) Cancellation(outcome string) {
	if m == nil {
		return
	}
	m.CancellationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.AvailabilityCacheTotal.WithLabelValues(result).Inc()
}

// RegisterShowLocks exports how many shows currently have a holder or a
// waiter on the in-process reservation lock.
func RegisterShowLocks(reg prometheus.Registerer, live func() int) prometheus.GaugeFunc {
	g := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "reservation_show_locks",
			Help: "Shows with a held or awaited in-process reservation lock",
		},
		func() float64 { return float64(live()) },
	)
	reg.MustRegister(g)
	return g
}
