package services

import "github.com/prometheus/client_golang/prometheus"

var verificationOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "verification_outcomes_total",
		Help: "The total number of terminal verification session outcomes",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(verificationOutcomes)
}

func observeOutcome(outcome string) {
	verificationOutcomes.WithLabelValues(outcome).Inc()
}
