package control

import "github.com/thatsimonsguy/cnc-control/internal/gpio"

// Sample is one read of every control pin. Triggered is always a subset of Defined.
type Sample struct {
	Defined   SignalSet `json:"defined"`
	Triggered SignalSet `json:"triggered"`
}

// Decoder turns raw control pin levels into logical signal states.
type Decoder struct {
	pins   [NumSignals]gpio.Input
	invert SignalSet
}

// NewDecoder binds signals to pins. Missing or unbound pins decode as undefined.
func NewDecoder(pins map[Signal]gpio.Input, invert SignalSet) *Decoder {
	d := &Decoder{invert: invert}
	for i := range d.pins {
		d.pins[i] = gpio.Unbound
	}
	for sig, p := range pins {
		if int(sig) < NumSignals && p != nil {
			d.pins[sig] = p
		}
	}
	return d
}

// Sample reads every bound pin. It has no side effects and is safe from the edge context.
func (d *Decoder) Sample() Sample {
	var s Sample
	for i, p := range d.pins {
		if !p.IsBound() {
			continue
		}
		bit := Signal(i).Bit()
		s.Defined |= bit
		if p.ReadLevel() {
			s.Triggered |= bit
		}
	}
	// only inverted signals that actually exist are flipped
	s.Triggered ^= d.invert & s.Defined
	return s
}

// Pin returns the input bound to sig, or gpio.Unbound.
func (d *Decoder) Pin(sig Signal) gpio.Input {
	if int(sig) >= NumSignals {
		return gpio.Unbound
	}
	return d.pins[sig]
}
