package execstate

import (
	"strings"
	"sync/atomic"
)

// ExecState bits request realtime actions from the motion/control loop.
type ExecState uint32

const (
	ExecStatusReport ExecState = 1 << iota
	ExecCycleStart
	ExecCycleStop
	ExecFeedHold
	ExecReset
	ExecSafetyDoor
	ExecMotionCancel
	ExecSleep
)

var execStateNames = []string{
	"status_report",
	"cycle_start",
	"cycle_stop",
	"feed_hold",
	"reset",
	"safety_door",
	"motion_cancel",
	"sleep",
}

func (s ExecState) String() string { return bitNames(uint32(s), execStateNames) }

// ExecAlarm bits latch alarm conditions.
type ExecAlarm uint32

const (
	AlarmHardLimit ExecAlarm = 1 << iota
	AlarmSoftLimit
	AlarmAbortCycle
	AlarmProbeFailInitial
	AlarmProbeFailContact
	AlarmHomingFailReset
	AlarmHomingFailDoor
	AlarmHomingFailPulloff
	AlarmHomingFailApproach
	AlarmSpindleControl
	AlarmEStop
)

var execAlarmNames = []string{
	"hard_limit",
	"soft_limit",
	"abort_cycle",
	"probe_fail_initial",
	"probe_fail_contact",
	"homing_fail_reset",
	"homing_fail_door",
	"homing_fail_pulloff",
	"homing_fail_approach",
	"spindle_control",
	"estop",
}

func (a ExecAlarm) String() string { return bitNames(uint32(a), execAlarmNames) }

// ExecAccessory bits request spindle and coolant override toggles.
type ExecAccessory uint32

const (
	AccessorySpindleOvrStop ExecAccessory = 1 << iota
	AccessoryCoolantFloodOvrToggle
	AccessoryCoolantMistOvrToggle
)

var execAccessoryNames = []string{
	"spindle_ovr_stop",
	"coolant_flood_ovr_toggle",
	"coolant_mist_ovr_toggle",
}

func (a ExecAccessory) String() string { return bitNames(uint32(a), execAccessoryNames) }

func bitNames(v uint32, names []string) string {
	if v == 0 {
		return "none"
	}
	var parts []string
	for i, name := range names {
		if v&(1<<uint(i)) != 0 {
			parts = append(parts, name)
			v &^= 1 << uint(i)
		}
	}
	if v != 0 {
		parts = append(parts, "unknown")
	}
	return strings.Join(parts, "|")
}

// Register is a bitflag register that can be set from an edge callback while
// the control loop reads and clears it. Every operation is atomic at bit
// granularity; there is no atomicity across registers.
//
// Ownership: producers only call Set. Clear and Take belong to the single
// consumer that acts on the bits.
type Register[T ~uint32] struct {
	v atomic.Uint32
}

// Set raises the given bits.
func (r *Register[T]) Set(bits T) {
	for {
		old := r.v.Load()
		if old&uint32(bits) == uint32(bits) {
			return
		}
		if r.v.CompareAndSwap(old, old|uint32(bits)) {
			return
		}
	}
}

// Clear lowers the given bits.
func (r *Register[T]) Clear(bits T) {
	for {
		old := r.v.Load()
		if old&uint32(bits) == 0 {
			return
		}
		if r.v.CompareAndSwap(old, old&^uint32(bits)) {
			return
		}
	}
}

// Take atomically clears the given bits and returns which of them were set.
func (r *Register[T]) Take(bits T) T {
	for {
		old := r.v.Load()
		taken := old & uint32(bits)
		if taken == 0 {
			return 0
		}
		if r.v.CompareAndSwap(old, old&^uint32(bits)) {
			return T(taken)
		}
	}
}

// Load returns all bits currently set.
func (r *Register[T]) Load() T {
	return T(r.v.Load())
}

// Has returns true when any of the given bits is set.
func (r *Register[T]) Has(bits T) bool {
	return r.v.Load()&uint32(bits) != 0
}
