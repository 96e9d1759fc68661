package realtime

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/cnc-control/internal/datadog"
	"github.com/thatsimonsguy/cnc-control/internal/execstate"
)

const (
	DefaultPollInterval = 10 * time.Millisecond
	gaugeInterval       = 5 * time.Second
)

type handler struct {
	bit execstate.ExecState
	fn  func()
}

// Loop is the single consumer of execution state bits. It is the only
// component that clears them.
type Loop struct {
	state    *execstate.State
	interval time.Duration
	handlers []handler
}

func New(state *execstate.State, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Loop{state: state, interval: interval}
}

// Handle registers fn for bit. Handlers run in registration order.
// Register before Run.
func (l *Loop) Handle(bit execstate.ExecState, fn func()) {
	l.handlers = append(l.handlers, handler{bit: bit, fn: fn})
}

// Poll claims every pending registered bit and runs its handler. A bit set
// again while its handler runs stays pending for the next poll. Bits without
// a handler are left set.
func (l *Loop) Poll() execstate.ExecState {
	var handled execstate.ExecState
	for _, h := range l.handlers {
		if l.state.Exec.Take(h.bit) == 0 {
			continue
		}
		h.fn()
		handled |= h.bit
	}
	if handled != 0 {
		log.Debug().Str("handled", handled.String()).Msg("Realtime bits handled")
	}
	return handled
}

// HandleMotionRequests registers handlers for cycle start, feed hold and
// safety door. The motion planner lives outside this process, so the
// requests are logged and consumed. doorAjar reports the live safety door
// input; a cycle start is refused while the door is open.
func (l *Loop) HandleMotionRequests(doorAjar func() bool) {
	ajar := func() bool { return doorAjar != nil && doorAjar() }

	l.Handle(execstate.ExecSafetyDoor, func() {
		if ajar() {
			log.Warn().Msg("Safety door ajar")
			return
		}
		log.Info().Msg("Safety door request cleared, door closed")
	})
	l.Handle(execstate.ExecFeedHold, func() {
		log.Info().Msg("Feed hold")
	})
	l.Handle(execstate.ExecCycleStart, func() {
		if ajar() {
			log.Warn().Msg("Cycle start refused, safety door ajar")
			return
		}
		log.Info().Msg("Cycle start")
	})
}

// Run polls until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	log.Info().Dur("interval", l.interval).Msg("Starting realtime loop")

	poll := time.NewTicker(l.interval)
	defer poll.Stop()
	gauges := time.NewTicker(gaugeInterval)
	defer gauges.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-poll.C:
			l.Poll()
		case <-gauges.C:
			l.emitGauges()
		}
	}
}

func (l *Loop) emitGauges() {
	if !datadog.Enabled() {
		return
	}
	s := l.state.Snapshot()
	datadog.Gauge("exec.state", float64(s.Exec), "component:realtime")
	datadog.Gauge("exec.alarm", float64(s.Alarm), "component:realtime")
	datadog.Gauge("override.feed", float64(s.FeedOverride), "component:realtime")
	datadog.Gauge("override.rapid", float64(s.RapidOverride), "component:realtime")
	datadog.Gauge("override.spindle", float64(s.SpindleOverride), "component:realtime")
}
