package control

import "strings"

// Signal is a named control input. The value is its bit position in a SignalSet.
type Signal uint8

const (
	SafetyDoor Signal = iota
	Reset
	FeedHold
	CycleStart
	Macro0
	Macro1
	Macro2
	Macro3

	NumSignals = 8
)

var signalNames = [NumSignals]string{
	"safety_door",
	"reset",
	"feed_hold",
	"cycle_start",
	"macro0",
	"macro1",
	"macro2",
	"macro3",
}

func (s Signal) String() string {
	if int(s) < NumSignals {
		return signalNames[s]
	}
	return "unknown"
}

// Bit returns the set containing only s.
func (s Signal) Bit() SignalSet {
	return SignalSet(1) << s
}

// SignalSet has one bit per Signal.
type SignalSet uint8

func SetOf(signals ...Signal) SignalSet {
	var set SignalSet
	for _, s := range signals {
		set |= s.Bit()
	}
	return set
}

func (s SignalSet) Has(sig Signal) bool {
	return s&sig.Bit() != 0
}

func (s SignalSet) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for i := 0; i < NumSignals; i++ {
		if s.Has(Signal(i)) {
			parts = append(parts, Signal(i).String())
		}
	}
	return strings.Join(parts, "|")
}
