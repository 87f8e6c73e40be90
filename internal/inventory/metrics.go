package inventory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	seatAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_seat_adjustments_total",
		Help: "Conditional seat updates by direction and outcome",
	}, []string{"direction", "outcome"})
	departureRefunds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_departure_refunds_total",
		Help: "Per-booking refunds issued by vendor departure cancellations",
	}, []string{"outcome"})
	departureCancellations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_departure_cancellations_total",
		Help: "Departures marked cancelled by their vendor",
	})
)
