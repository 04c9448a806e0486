// Package metrics — счётчики Prometheus для диалогового ядра.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TurnsTotal           *prometheus.CounterVec
	BookingsConfirmed    prometheus.Counter
	BookingsCancelled    prometheus.Counter
	BookingsRescheduled  prometheus.Counter
	CalendarSyncFailures prometheus.Counter
	EventPublishFailures prometheus.Counter
}

// New регистрирует счётчики в переданном реестре.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TurnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reception_turns_total",
			Help: "Dialog turns handled, by classified intent.",
		}, []string{"intent"}),
		BookingsConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "reception_bookings_confirmed_total",
			Help: "Appointments confirmed from drafts.",
		}),
		BookingsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "reception_bookings_cancelled_total",
			Help: "Appointments cancelled via dialog.",
		}),
		BookingsRescheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "reception_bookings_rescheduled_total",
			Help: "Appointments rescheduled via dialog.",
		}),
		CalendarSyncFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "reception_calendar_sync_failures_total",
			Help: "Best-effort calendar mirror failures.",
		}),
		EventPublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "reception_event_publish_failures_total",
			Help: "Best-effort Kafka publish failures.",
		}),
	}
}
