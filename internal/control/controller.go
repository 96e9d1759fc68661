package control

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/cnc-control/internal/execstate"
	"github.com/thatsimonsguy/cnc-control/internal/gpio"
	"github.com/thatsimonsguy/cnc-control/internal/logging"
)

type Config struct {
	Pins   map[Signal]gpio.Input
	Invert SignalSet
	Mode   Mode
	Settle time.Duration

	Macro    MacroHook
	Recorder Recorder
}

// Controller owns the control inputs: decoding, edge handling and debouncing.
type Controller struct {
	mode       Mode
	decoder    *Decoder
	dispatcher *Dispatcher
	debouncer  *Debouncer
	edge       *EdgeHandler
}

func New(cfg Config, state *execstate.State, resetter Resetter, sink logging.Sink) *Controller {
	decoder := NewDecoder(cfg.Pins, cfg.Invert)
	dispatcher := NewDispatcher(state, resetter, cfg.Macro, sink)
	if cfg.Recorder != nil {
		dispatcher.SetRecorder(cfg.Recorder)
	}
	debouncer := NewDebouncer(cfg.Settle, decoder, func(t SignalSet) { dispatcher.Dispatch(t) })
	return &Controller{
		mode:       cfg.Mode,
		decoder:    decoder,
		dispatcher: dispatcher,
		debouncer:  debouncer,
		edge: &EdgeHandler{
			mode:       cfg.Mode,
			decoder:    decoder,
			dispatcher: dispatcher,
			debouncer:  debouncer,
		},
	}
}

// Init configures every bound control pin as an input with edge interrupts,
// using the pull-up where the pin has one.
func (c *Controller) Init() error {
	for i := 0; i < NumSignals; i++ {
		sig := Signal(i)
		p := c.decoder.Pin(sig)
		if !p.IsBound() {
			continue
		}
		if err := p.Configure(true, p.SupportsPullUp()); err != nil {
			return fmt.Errorf("configure %s pin %s: %w", sig, p.Name(), err)
		}
		if err := p.OnEdge(c.edge.OnEdge); err != nil {
			return fmt.Errorf("attach edge handler to %s pin %s: %w", sig, p.Name(), err)
		}
		log.Info().
			Str("signal", sig.String()).
			Str("pin", p.Name()).
			Bool("pull_up", p.SupportsPullUp()).
			Msg("Control pin configured")
	}
	log.Info().Str("mode", c.mode.String()).Msg("Control inputs initialized")
	return nil
}

// Run runs the debounce task until ctx is done. In immediate mode there is
// no task and Run just waits.
func (c *Controller) Run(ctx context.Context) error {
	if c.mode == ModeImmediate {
		<-ctx.Done()
		return nil
	}
	return c.debouncer.Run(ctx)
}

// Sample returns the current decoded control state.
func (c *Controller) Sample() Sample {
	return c.decoder.Sample()
}

// SafetyDoorAjar reports whether the safety door currently reads open.
func (c *Controller) SafetyDoorAjar() bool {
	return c.decoder.Sample().Triggered.Has(SafetyDoor)
}

// OnEdge is the handler attached to the pins, exposed for hardware-less callers.
func (c *Controller) OnEdge() {
	c.edge.OnEdge()
}
