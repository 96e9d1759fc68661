package control

import (
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/cnc-control/internal/execstate"
	"github.com/thatsimonsguy/cnc-control/internal/logging"
)

// Resetter performs a full system reset.
type Resetter interface {
	PerformReset()
}

// MacroHook runs a user macro bound to one of the macro buttons.
type MacroHook interface {
	InvokeMacro(index int)
}

// NopMacro is the hook used when none is configured.
type NopMacro struct{}

func (NopMacro) InvokeMacro(int) {}

// Recorder is told about every dispatch. It is called from the edge context
// and must not block.
type Recorder interface {
	RecordControlEvent(triggered SignalSet, signal Signal)
}

type route struct {
	signal Signal
	act    func(d *Dispatcher)
}

// routes is the dispatch priority, highest first. Only the first match runs.
var routes = []route{
	{Reset, (*Dispatcher).reset},
	{CycleStart, setExec(execstate.ExecCycleStart)},
	{FeedHold, setExec(execstate.ExecFeedHold)},
	{SafetyDoor, setExec(execstate.ExecSafetyDoor)},
	{Macro0, invokeMacro(0)},
	{Macro1, invokeMacro(1)},
	{Macro2, invokeMacro(2)},
	{Macro3, invokeMacro(3)},
}

func setExec(bit execstate.ExecState) func(*Dispatcher) {
	return func(d *Dispatcher) { d.state.Exec.Set(bit) }
}

func invokeMacro(index int) func(*Dispatcher) {
	return func(d *Dispatcher) { d.macro.InvokeMacro(index) }
}

// Dispatcher maps triggered control signals to their effect. It only ever sets
// execution state bits; the realtime loop clears them.
type Dispatcher struct {
	state    *execstate.State
	resetter Resetter
	macro    MacroHook
	sink     logging.Sink
	recorder Recorder
}

func NewDispatcher(state *execstate.State, resetter Resetter, macro MacroHook, sink logging.Sink) *Dispatcher {
	if macro == nil {
		macro = NopMacro{}
	}
	if sink == nil {
		sink = logging.Discard
	}
	return &Dispatcher{state: state, resetter: resetter, macro: macro, sink: sink}
}

// SetRecorder installs a recorder. Call before the controller starts.
func (d *Dispatcher) SetRecorder(r Recorder) {
	d.recorder = r
}

// Dispatch runs the effect of the highest-priority signal in triggered and
// returns which one ran. Lower-priority signals in the same set are ignored.
func (d *Dispatcher) Dispatch(triggered SignalSet) (Signal, bool) {
	for _, r := range routes {
		if !triggered.Has(r.signal) {
			continue
		}
		r.act(d)
		dispatchTotal.WithLabelValues(r.signal.String()).Inc()
		if d.recorder != nil {
			d.recorder.RecordControlEvent(triggered, r.signal)
		}
		return r.signal, true
	}
	return 0, false
}

func (d *Dispatcher) reset() {
	d.sink.Emit(logging.LevelInfo, "Reset via control pin")
	if d.resetter == nil {
		log.Warn().Msg("Reset requested but no resetter configured")
		return
	}
	d.resetter.PerformReset()
}
