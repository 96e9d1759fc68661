package control

import "github.com/thatsimonsguy/cnc-control/internal/metrics"

const subSystem = "control"

var (
	edgesTotal = metrics.MustRegisterCounter(subSystem,
		"edges_total",
		"Number of control pin edges seen")

	coalescedTotal = metrics.MustRegisterCounter(subSystem,
		"coalesced_edges_total",
		"Number of edges dropped while a debounce cycle was pending")

	dispatchTotal = metrics.MustRegisterCounterVec(subSystem,
		"dispatch_total",
		"Number of dispatched control signals",
		"signal")
)
