package outputs

import (
	"context"
	"fmt"
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/cnc-control/internal/gpio"
	"github.com/thatsimonsguy/cnc-control/internal/logging"
	"github.com/thatsimonsguy/cnc-control/internal/pwm"
)

// Synchronizer waits for queued motion to complete.
type Synchronizer interface {
	DrainAndWait(ctx context.Context) error
}

// Command is one bulk output request, as handed to a Recorder.
type Command struct {
	Kind         string
	Mask         uint8
	Value        float64
	Synchronized bool
	Err          error
}

const (
	KindDigital = "digital"
	KindAnalog  = "analog"
)

// Recorder is told about every bulk command. It must not block.
type Recorder interface {
	RecordOutputCommand(cmd Command)
}

type Config struct {
	// Digital pins; nil entries are undefined.
	Digital [NumDigital]gpio.Output
	Analog  [NumAnalog]AnalogConfig
}

// Manager owns the fixed pool of user outputs. Commands are serialized, so a
// synchronized command holds off the others until its drain completes.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	alloc    *pwm.Allocator
	driver   pwm.Driver
	sync     Synchronizer
	sink     logging.Sink
	recorder Recorder

	digital [NumDigital]*Digital
	analog  [NumAnalog]*Analog
}

func NewManager(cfg Config, alloc *pwm.Allocator, driver pwm.Driver, sync Synchronizer, sink logging.Sink) *Manager {
	if sink == nil {
		sink = logging.Discard
	}
	return &Manager{cfg: cfg, alloc: alloc, driver: driver, sync: sync, sink: sink}
}

func (m *Manager) SetRecorder(r Recorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorder = r
}

// Init creates every output. Analog outputs that fail to set up are kept
// without a channel; the returned error lists them.
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.digital {
		m.digital[i] = NewDigital(i, m.cfg.Digital[i], m.sink)
	}

	var ae aerr.AggregateError
	for i := range m.analog {
		a, err := NewAnalog(i, m.cfg.Analog[i], m.alloc, m.driver, m.sink)
		if err != nil {
			log.Error().Err(err).Int("output", i).Msg("Analog output setup failed")
			ae.Add(err)
		}
		m.analog[i] = a
	}
	return ae.AsError()
}

// SetDigital switches every digital output selected by mask. When
// synchronized, queued motion is drained first. Every selected output is
// attempted; the error aggregates the ones that failed.
func (m *Manager) SetDigital(ctx context.Context, mask uint8, on, synchronized bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.digitalCommand(ctx, mask, on, synchronized)
}

func (m *Manager) digitalCommand(ctx context.Context, mask uint8, on, synchronized bool) error {
	err := m.setDigital(ctx, mask, on, synchronized)
	value := 0.0
	if on {
		value = 1
	}
	m.record(Command{Kind: KindDigital, Mask: mask, Value: value, Synchronized: synchronized, Err: err})
	return err
}

func (m *Manager) setDigital(ctx context.Context, mask uint8, on, synchronized bool) error {
	if err := m.synchronize(ctx, synchronized); err != nil {
		return err
	}
	var errs []error
	for i, d := range m.digital {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		if err := d.SetLevel(on); err != nil {
			errs = append(errs, fmt.Errorf("digital output %d: %w", i, err))
		}
	}
	return aggregate(errs)
}

// SetAnalog sets the duty percentage of every analog output selected by mask,
// with the same synchronization and failure rules as SetDigital.
func (m *Manager) SetAnalog(ctx context.Context, mask uint8, duty float64, synchronized bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.analogCommand(ctx, mask, duty, synchronized)
}

func (m *Manager) analogCommand(ctx context.Context, mask uint8, duty float64, synchronized bool) error {
	err := m.setAnalog(ctx, mask, duty, synchronized)
	m.record(Command{Kind: KindAnalog, Mask: mask, Value: duty, Synchronized: synchronized, Err: err})
	return err
}

func (m *Manager) setAnalog(ctx context.Context, mask uint8, duty float64, synchronized bool) error {
	if err := m.synchronize(ctx, synchronized); err != nil {
		return err
	}
	var errs []error
	for i, a := range m.analog {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		if err := a.SetLevel(duty); err != nil {
			errs = append(errs, fmt.Errorf("analog output %d: %w", i, err))
		}
	}
	return aggregate(errs)
}

// AllOff drives every defined output off without waiting for motion.
func (m *Manager) AllOff(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if err := m.digitalCommand(ctx, m.definedMask(true), false, false); err != nil {
		errs = append(errs, err)
	}
	if err := m.analogCommand(ctx, m.definedMask(false), 0, false); err != nil {
		errs = append(errs, err)
	}
	return aggregate(errs)
}

func (m *Manager) definedMask(digital bool) uint8 {
	var mask uint8
	for i := 0; i < NumDigital; i++ {
		if digital && m.digital[i] != nil && m.digital[i].Defined() {
			mask |= 1 << uint(i)
		}
		if !digital && m.analog[i] != nil && m.analog[i].Defined() && m.analog[i].Channel() != pwm.NoChannel {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// Status describes one output for reporting.
type Status struct {
	Index   int     `json:"index"`
	Kind    string  `json:"kind"`
	Defined bool    `json:"defined"`
	Channel int     `json:"channel,omitempty"`
	Level   float64 `json:"level"`
}

func (m *Manager) Status() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Status
	for i, d := range m.digital {
		if d == nil {
			continue
		}
		s := Status{Index: i, Kind: KindDigital, Defined: d.Defined()}
		if d.On() {
			s.Level = 1
		}
		out = append(out, s)
	}
	for i, a := range m.analog {
		if a == nil {
			continue
		}
		out = append(out, Status{Index: i, Kind: KindAnalog, Defined: a.Defined(), Channel: a.Channel(), Level: a.Level()})
	}
	return out
}

func (m *Manager) synchronize(ctx context.Context, synchronized bool) error {
	if !synchronized || m.sync == nil {
		return nil
	}
	if err := m.sync.DrainAndWait(ctx); err != nil {
		return fmt.Errorf("waiting for motion to complete: %w", err)
	}
	return nil
}

func (m *Manager) record(cmd Command) {
	commandsTotal.WithLabelValues(cmd.Kind, resultLabel(cmd.Err)).Inc()
	if m.recorder != nil {
		m.recorder.RecordOutputCommand(cmd)
	}
}

// commandError keeps the message of the aggregate while letting errors.Is
// and errors.As reach every per-output failure.
type commandError struct {
	msg  string
	errs []error
}

func (e *commandError) Error() string   { return e.msg }
func (e *commandError) Unwrap() []error { return e.errs }

func aggregate(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	var ae aerr.AggregateError
	for _, err := range errs {
		ae.Add(err)
	}
	return &commandError{msg: ae.Error(), errs: errs}
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
