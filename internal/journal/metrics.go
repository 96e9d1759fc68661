package journal

import "github.com/thatsimonsguy/cnc-control/internal/metrics"

const subSystem = "journal"

var (
	writtenTotal = metrics.MustRegisterCounter(subSystem,
		"records_written_total",
		"Number of journal records persisted")

	droppedTotal = metrics.MustRegisterCounter(subSystem,
		"records_dropped_total",
		"Number of journal records dropped because the buffer was full")

	writeErrorsTotal = metrics.MustRegisterCounter(subSystem,
		"write_errors_total",
		"Number of journal batches that failed to persist")
)
