package execstate

import (
	"context"
	"fmt"
	"sync/atomic"
)

const (
	// MaxAxis is the number of axes tracked in position vectors.
	MaxAxis = 6

	DefaultOverridePercent = 100
)

// ProbeState tells the stepper side whether a probing cycle is monitoring the probe pin.
type ProbeState uint32

const (
	ProbeOff ProbeState = iota
	ProbeActive
)

func (p ProbeState) String() string {
	if p == ProbeActive {
		return "active"
	}
	return "off"
}

// State is the process-wide realtime execution state. A single instance is
// created at startup and injected into every component that reads or writes it.
type State struct {
	Exec      Register[ExecState]
	Alarm     Register[ExecAlarm]
	Accessory Register[ExecAccessory]

	feedOverride    atomic.Uint32
	rapidOverride   atomic.Uint32
	spindleOverride atomic.Uint32

	probeState atomic.Uint32
	cycleStop  atomic.Bool

	position      [MaxAxis]atomic.Int32
	probePosition [MaxAxis]atomic.Int32

	reportOverrideCounter atomic.Uint32
	reportWCOCounter      atomic.Uint32
}

// New returns a zeroed state with all overrides at 100%.
func New() *State {
	s := &State{}
	s.feedOverride.Store(DefaultOverridePercent)
	s.rapidOverride.Store(DefaultOverridePercent)
	s.spindleOverride.Store(DefaultOverridePercent)
	return s
}

func (s *State) FeedOverride() uint32          { return s.feedOverride.Load() }
func (s *State) SetFeedOverride(pct uint32)    { s.feedOverride.Store(pct) }
func (s *State) RapidOverride() uint32         { return s.rapidOverride.Load() }
func (s *State) SetRapidOverride(pct uint32)   { s.rapidOverride.Store(pct) }
func (s *State) SpindleOverride() uint32       { return s.spindleOverride.Load() }
func (s *State) SetSpindleOverride(pct uint32) { s.spindleOverride.Store(pct) }

func (s *State) ProbeState() ProbeState     { return ProbeState(s.probeState.Load()) }
func (s *State) SetProbeState(p ProbeState) { s.probeState.Store(uint32(p)) }
func (s *State) CycleStop() bool            { return s.cycleStop.Load() }
func (s *State) SetCycleStop(stop bool)     { s.cycleStop.Store(stop) }

// SetPosition stores the machine position of an axis in steps.
func (s *State) SetPosition(axis int, steps int32) {
	if axis >= 0 && axis < MaxAxis {
		s.position[axis].Store(steps)
	}
}

// Position returns a copy of the machine position vector in steps.
func (s *State) Position() [MaxAxis]int32 {
	var out [MaxAxis]int32
	for i := range s.position {
		out[i] = s.position[i].Load()
	}
	return out
}

// SetProbePosition stores the last probe position of an axis in steps.
func (s *State) SetProbePosition(axis int, steps int32) {
	if axis >= 0 && axis < MaxAxis {
		s.probePosition[axis].Store(steps)
	}
}

// ProbePosition returns a copy of the last probe position vector in steps.
func (s *State) ProbePosition() [MaxAxis]int32 {
	var out [MaxAxis]int32
	for i := range s.probePosition {
		out[i] = s.probePosition[i].Load()
	}
	return out
}

func (s *State) ReportOverrideCounter() uint32     { return s.reportOverrideCounter.Load() }
func (s *State) SetReportOverrideCounter(n uint32) { s.reportOverrideCounter.Store(n) }
func (s *State) ReportWCOCounter() uint32          { return s.reportWCOCounter.Load() }
func (s *State) SetReportWCOCounter(n uint32)      { s.reportWCOCounter.Store(n) }

// FlagWCOChange forces the work coordinate offset into the next status report.
// Callers that need the change to line up with queued motion drain the motion
// queue before calling.
func (s *State) FlagWCOChange() {
	s.reportWCOCounter.Store(0)
}

// Drainer waits for queued motion to complete.
type Drainer interface {
	DrainAndWait(ctx context.Context) error
}

// FlagWCOChangeSynced drains queued motion before flagging the change, so the
// report lines up with where the machine actually is.
func (s *State) FlagWCOChangeSynced(ctx context.Context, d Drainer) error {
	if err := d.DrainAndWait(ctx); err != nil {
		return fmt.Errorf("waiting for motion before WCO change: %w", err)
	}
	s.FlagWCOChange()
	return nil
}

// Status is a point-in-time copy of the whole state, for reporting only.
// Fields are read one at a time, so the copy is not atomic across registers.
type Status struct {
	Exec            ExecState      `json:"-"`
	Alarm           ExecAlarm      `json:"-"`
	Accessory       ExecAccessory  `json:"-"`
	ExecFlags       string         `json:"exec"`
	AlarmFlags      string         `json:"alarm"`
	AccessoryFlags  string         `json:"accessory"`
	FeedOverride    uint32         `json:"feed_override"`
	RapidOverride   uint32         `json:"rapid_override"`
	SpindleOverride uint32         `json:"spindle_override"`
	Probe           string         `json:"probe_state"`
	CycleStop       bool           `json:"cycle_stop"`
	Position        [MaxAxis]int32 `json:"position"`
	ProbePosition   [MaxAxis]int32 `json:"probe_position"`
	ReportOverride  uint32         `json:"report_override_counter"`
	ReportWCO       uint32         `json:"report_wco_counter"`
}

// Snapshot returns the current aggregate.
func (s *State) Snapshot() Status {
	exec := s.Exec.Load()
	alarm := s.Alarm.Load()
	acc := s.Accessory.Load()
	return Status{
		Exec:            exec,
		Alarm:           alarm,
		Accessory:       acc,
		ExecFlags:       exec.String(),
		AlarmFlags:      alarm.String(),
		AccessoryFlags:  acc.String(),
		FeedOverride:    s.FeedOverride(),
		RapidOverride:   s.RapidOverride(),
		SpindleOverride: s.SpindleOverride(),
		Probe:           s.ProbeState().String(),
		CycleStop:       s.CycleStop(),
		Position:        s.Position(),
		ProbePosition:   s.ProbePosition(),
		ReportOverride:  s.ReportOverrideCounter(),
		ReportWCO:       s.ReportWCOCounter(),
	}
}
