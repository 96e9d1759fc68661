package outputs

import "github.com/thatsimonsguy/cnc-control/internal/metrics"

const subSystem = "outputs"

var commandsTotal = metrics.MustRegisterCounterVec(subSystem,
	"commands_total",
	"Number of bulk output commands by kind and result",
	"kind", "result")
