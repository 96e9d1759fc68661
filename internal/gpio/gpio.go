package gpio

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/thatsimonsguy/cnc-control/internal/pinctrl"
)

// ErrUnbound is returned when an operation needs a physical pin that was never configured.
var ErrUnbound = errors.New("pin not bound")

// Input is a digital input line. ReadLevel returns the raw electrical level,
// before any logical inversion.
type Input interface {
	Name() string
	IsBound() bool
	SupportsPullUp() bool
	Configure(interrupt, pullUp bool) error
	// OnEdge registers fn to run on every level change. fn runs in the edge
	// context and must not block.
	OnEdge(fn func()) error
	ReadLevel() bool
}

// Output is a digital output line.
type Output interface {
	Name() string
	IsBound() bool
	Write(on bool) error
}

var safeMode atomic.Bool

// SetSafeMode suppresses all hardware output writes. Reads still go to hardware.
func SetSafeMode(enabled bool) {
	safeMode.Store(enabled)
}

func SafeMode() bool {
	return safeMode.Load()
}

// Unbound stands in for any pin the configuration leaves undefined.
var Unbound unbound

type unbound struct{}

func (unbound) Name() string               { return "unbound" }
func (unbound) IsBound() bool              { return false }
func (unbound) SupportsPullUp() bool       { return false }
func (unbound) Configure(bool, bool) error { return nil }
func (unbound) OnEdge(func()) error        { return nil }
func (unbound) ReadLevel() bool            { return false }
func (unbound) Write(bool) error           { return ErrUnbound }

// ReadLevel is swappable for tests.
var ReadLevel = pinctrl.ReadLevel

// ValidateOutputsIdle checks that every bound output line is electrically low
// before the controller takes ownership of it. activeLow lists lines that idle high.
func ValidateOutputsIdle(lines map[string]int, activeLow map[string]bool) error {
	for name, number := range lines {
		level, err := ReadLevel(number)
		if err != nil {
			return fmt.Errorf("failed to read pin level for %s (GPIO %d): %w", name, number, err)
		}
		idle := !level
		if activeLow[name] {
			idle = level
		}
		if !idle {
			return fmt.Errorf("pin %d (%s) is active at startup", number, name)
		}
	}
	return nil
}
