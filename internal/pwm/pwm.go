package pwm

import (
	"errors"
	"fmt"

	"github.com/thatsimonsguy/cnc-control/internal/logging"
)

const (
	// ClockHz is the PWM peripheral clock.
	ClockHz = 80_000_000
	// NumChannels is the size of the hardware channel pool.
	NumChannels = 8
	// ReservedChannels are owned by the spindle and never handed out.
	ReservedChannels = 2
	// MaxResolutionBits caps the duty resolution.
	MaxResolutionBits = 16
	// NoChannel is returned when allocation fails.
	NoChannel = -1
)

var (
	ErrOutOfChannels    = errors.New("out of PWM channels")
	ErrFrequencyTooHigh = errors.New("PWM frequency too high for any resolution")
	ErrInvalidFrequency = errors.New("PWM frequency must be positive")
)

// ResolutionBits returns the largest usable duty resolution for freq against
// ClockHz: one less than the smallest b with 2^b >= ClockHz/freq, capped so
// that the result never exceeds MaxResolutionBits.
func ResolutionBits(freq uint32) (uint8, error) {
	if freq == 0 {
		return 0, ErrInvalidFrequency
	}
	period := uint32(ClockHz) / freq
	b := 0
	for uint32(1)<<b < period && b <= MaxResolutionBits {
		b++
	}
	if b == 0 {
		return 0, fmt.Errorf("%w: %d Hz", ErrFrequencyTooHigh, freq)
	}
	return uint8(b - 1), nil
}

// Allocator hands out PWM channels. Channels are allocated once for the life
// of the process and never reused. Not safe for concurrent use.
type Allocator struct {
	next  int
	freqs [NumChannels]uint32
	sink  logging.Sink
}

func NewAllocator(sink logging.Sink) *Allocator {
	if sink == nil {
		sink = logging.Discard
	}
	return &Allocator{next: ReservedChannels, sink: sink}
}

// Next returns the next unused channel, or NoChannel and ErrOutOfChannels
// once the pool is exhausted.
func (a *Allocator) Next() (int, error) {
	if a.next >= NumChannels {
		a.sink.Emit(logging.LevelError, "Error: out of PWM channels")
		exhaustedTotal.Inc()
		return NoChannel, ErrOutOfChannels
	}
	ch := a.next
	a.next++
	allocatedGauge.Set(float64(a.next - ReservedChannels))
	return ch, nil
}

// Reserve records the frequency a channel runs at. Channels 2k and 2k+1
// share a timer; a conflicting frequency on the pair is reported and allowed.
func (a *Allocator) Reserve(ch int, freq uint32) {
	if ch < 0 || ch >= NumChannels {
		return
	}
	a.freqs[ch] = freq
	pair := ch ^ 1
	if other := a.freqs[pair]; other != 0 && other != freq {
		logging.Emitf(a.sink, logging.LevelWarning,
			"PWM channel %d at %d Hz shares a timer with channel %d at %d Hz", ch, freq, pair, other)
		pairConflictTotal.Inc()
	}
}

// Frequency returns the recorded frequency of a channel, 0 if none.
func (a *Allocator) Frequency(ch int) uint32 {
	if ch < 0 || ch >= NumChannels {
		return 0
	}
	return a.freqs[ch]
}
