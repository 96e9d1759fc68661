package control

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultSettle is the debounce settle time.
const DefaultSettle = 32 * time.Millisecond

// Sampler reads the current control signal state.
type Sampler interface {
	Sample() Sample
}

// Debouncer waits for a switch to settle before dispatching. At most one
// cycle is in flight: edges that arrive while armed are dropped.
//
// The edge context is the only writer of armed=true (Post) and Run is the
// only writer of armed=false.
type Debouncer struct {
	settle   time.Duration
	sampler  Sampler
	dispatch func(SignalSet)

	armed  atomic.Bool
	events chan struct{}
}

func NewDebouncer(settle time.Duration, sampler Sampler, dispatch func(SignalSet)) *Debouncer {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Debouncer{
		settle:   settle,
		sampler:  sampler,
		dispatch: dispatch,
		events:   make(chan struct{}, 1),
	}
}

// Post arms the debouncer and wakes Run. It never blocks and returns false
// when the edge was coalesced into a cycle already in flight.
func (d *Debouncer) Post() bool {
	if !d.armed.CompareAndSwap(false, true) {
		coalescedTotal.Inc()
		return false
	}
	select {
	case d.events <- struct{}{}:
	default:
	}
	return true
}

// Armed reports whether a debounce cycle is pending.
func (d *Debouncer) Armed() bool {
	return d.armed.Load()
}

// Run processes debounce cycles until ctx is done.
func (d *Debouncer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.events:
		}

		timer := time.NewTimer(d.settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if s := d.sampler.Sample(); s.Triggered != 0 {
			d.dispatch(s.Triggered)
		}
		d.armed.Store(false)
	}
}
