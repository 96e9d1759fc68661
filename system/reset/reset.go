package reset

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/cnc-control/internal/execstate"
)

// Resetter requests a full system reset. It only raises state bits, so it is
// safe to call from the edge context; the realtime loop does the work.
type Resetter struct {
	state *execstate.State
	// Busy reports whether motion is in progress. A reset during motion
	// also raises the abort-cycle alarm since position may be lost.
	Busy func() bool
}

func New(state *execstate.State, busy func() bool) *Resetter {
	return &Resetter{state: state, Busy: busy}
}

func (r *Resetter) PerformReset() {
	// only the first request counts until the loop has handled it
	if r.state.Exec.Has(execstate.ExecReset) {
		return
	}
	r.state.Exec.Set(execstate.ExecReset)
	if r.Busy != nil && r.Busy() {
		r.state.Alarm.Set(execstate.AlarmAbortCycle)
	}
}

// OutputsOff drives every user output to its idle level.
type OutputsOff interface {
	AllOff(ctx context.Context) error
}

// MotionClearer discards queued motion.
type MotionClearer interface {
	Clear()
}

// Handler returns the realtime handler for the reset bit: queued motion is
// dropped and all user outputs are turned off.
func Handler(outputs OutputsOff, motion MotionClearer) func() {
	return func() {
		if motion != nil {
			motion.Clear()
		}
		if outputs != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := outputs.AllOff(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to turn off user outputs on reset")
			}
		}
		log.Warn().Msg("System reset")
	}
}
