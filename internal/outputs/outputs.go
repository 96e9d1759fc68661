package outputs

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/cnc-control/internal/gpio"
	"github.com/thatsimonsguy/cnc-control/internal/logging"
	"github.com/thatsimonsguy/cnc-control/internal/pwm"
)

const (
	NumDigital = 4
	NumAnalog  = 4
)

var (
	ErrOutputUndefined = errors.New("M62,M63 pin not defined")
	ErrNoChannel       = errors.New("M67 PWM channel error")
)

// Digital is a user output switched by M62-M65.
type Digital struct {
	index int
	pin   gpio.Output
	on    bool
	sink  logging.Sink
}

func NewDigital(index int, pin gpio.Output, sink logging.Sink) *Digital {
	if pin == nil {
		pin = gpio.Unbound
	}
	if sink == nil {
		sink = logging.Discard
	}
	d := &Digital{index: index, pin: pin, sink: sink}
	if pin.IsBound() {
		logging.Emitf(sink, logging.LevelInfo, "User Digital Output: %d on Pin: %s", index, pin.Name())
	}
	return d
}

func (d *Digital) Defined() bool { return d.pin.IsBound() }

// SetLevel drives the output. Turning off an undefined output is a no-op;
// turning one on is an error.
func (d *Digital) SetLevel(on bool) error {
	if !d.pin.IsBound() {
		if on {
			d.sink.Emit(logging.LevelError, ErrOutputUndefined.Error())
			return ErrOutputUndefined
		}
		return nil
	}
	if err := d.pin.Write(on); err != nil {
		return err
	}
	d.on = on
	return nil
}

// On returns the last level written successfully.
func (d *Digital) On() bool { return d.on }

// AnalogConfig describes a PWM user output. An empty Pin leaves it undefined.
type AnalogConfig struct {
	Pin       string
	Frequency uint32
}

// Analog is a PWM user output set by M67.
type Analog struct {
	index   int
	cfg     AnalogConfig
	bits    uint8
	channel int
	current float64

	driver pwm.Driver
	sink   logging.Sink
}

// NewAnalog sets up the output: derive the resolution, allocate a channel,
// configure it and drive duty 0. On failure the output is returned without a
// channel and every later SetLevel fails.
func NewAnalog(index int, cfg AnalogConfig, alloc *pwm.Allocator, driver pwm.Driver, sink logging.Sink) (*Analog, error) {
	if sink == nil {
		sink = logging.Discard
	}
	a := &Analog{index: index, cfg: cfg, channel: pwm.NoChannel, driver: driver, sink: sink}
	if cfg.Pin == "" {
		return a, nil
	}

	bits, err := pwm.ResolutionBits(cfg.Frequency)
	if err != nil {
		return a, fmt.Errorf("analog output %d: %w", index, err)
	}
	a.bits = bits

	ch, err := alloc.Next()
	if err != nil {
		return a, fmt.Errorf("analog output %d: %w", index, err)
	}
	alloc.Reserve(ch, cfg.Frequency)

	if err := driver.Setup(ch, cfg.Frequency, bits); err != nil {
		return a, fmt.Errorf("analog output %d: setup channel %d: %w", index, ch, err)
	}
	if err := driver.Write(ch, 0); err != nil {
		return a, fmt.Errorf("analog output %d: zero channel %d: %w", index, ch, err)
	}
	a.channel = ch

	logging.Emitf(sink, logging.LevelInfo, "User Analog Output: %d on Pin: %s Freq: %s",
		index, cfg.Pin, humanize.SI(float64(cfg.Frequency), "Hz"))
	log.Debug().Int("output", index).Int("channel", ch).Uint8("bits", bits).Msg("Analog output ready")
	return a, nil
}

func (a *Analog) Defined() bool { return a.cfg.Pin != "" }

func (a *Analog) Channel() int { return a.channel }

// Level returns the last commanded duty percentage.
func (a *Analog) Level() float64 { return a.current }

// SetLevel commands a duty in percent, clamped to 0-100. Undefined outputs
// accept any level. Repeating the current level does not touch the hardware.
func (a *Analog) SetLevel(percent float64) error {
	if !a.Defined() {
		return nil
	}
	if a.channel == pwm.NoChannel {
		a.sink.Emit(logging.LevelError, ErrNoChannel.Error())
		return ErrNoChannel
	}
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	if percent == a.current {
		return nil
	}

	duty := uint32(percent / 100.0 * float64(uint32(1)<<a.bits))
	if err := a.driver.Write(a.channel, duty); err != nil {
		return fmt.Errorf("write PWM channel %d: %w", a.channel, err)
	}
	a.current = percent
	return nil
}
