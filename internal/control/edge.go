package control

import "fmt"

// Mode selects how edges are handled.
type Mode int

const (
	ModeDebounced Mode = iota
	ModeImmediate
)

func (m Mode) String() string {
	if m == ModeImmediate {
		return "immediate"
	}
	return "debounced"
}

// ParseMode accepts "debounced" or "immediate". Empty means debounced.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "debounced":
		return ModeDebounced, nil
	case "immediate":
		return ModeImmediate, nil
	default:
		return ModeDebounced, fmt.Errorf("unknown control mode %q", s)
	}
}

// EdgeHandler is attached to every bound control pin.
type EdgeHandler struct {
	mode       Mode
	decoder    *Decoder
	dispatcher *Dispatcher
	debouncer  *Debouncer
}

// OnEdge runs in the edge context. It never blocks.
func (h *EdgeHandler) OnEdge() {
	edgesTotal.Inc()
	if h.mode == ModeDebounced {
		h.debouncer.Post()
		return
	}
	if s := h.decoder.Sample(); s.Triggered != 0 {
		h.dispatcher.Dispatch(s.Triggered)
	}
}
