package pwm

import "github.com/thatsimonsguy/cnc-control/internal/metrics"

const subSystem = "pwm"

var (
	allocatedGauge = metrics.MustRegisterGauge(subSystem,
		"channels_allocated",
		"Number of PWM channels allocated to user outputs")

	exhaustedTotal = metrics.MustRegisterCounter(subSystem,
		"exhausted_total",
		"Number of allocation requests after the pool ran out")

	pairConflictTotal = metrics.MustRegisterCounter(subSystem,
		"pair_conflicts_total",
		"Number of channel frequencies that differ from their timer pair")
)
