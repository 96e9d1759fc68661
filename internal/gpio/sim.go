package gpio

import (
	"sync"
	"sync/atomic"
)

// SimInput is an in-memory input line. SetLevel fires the edge callback when
// the level changes and interrupts are configured.
type SimInput struct {
	name   string
	pullUp bool

	level      atomic.Bool
	interrupt  atomic.Bool
	pulledUp   atomic.Bool
	configured atomic.Int32
	onEdge     atomic.Pointer[func()]
}

func NewSimInput(name string, supportsPullUp bool) *SimInput {
	return &SimInput{name: name, pullUp: supportsPullUp}
}

func (s *SimInput) Name() string         { return s.name }
func (s *SimInput) IsBound() bool        { return true }
func (s *SimInput) SupportsPullUp() bool { return s.pullUp }

func (s *SimInput) Configure(interrupt, pullUp bool) error {
	s.interrupt.Store(interrupt)
	s.pulledUp.Store(pullUp)
	s.configured.Add(1)
	return nil
}

// PulledUp reports whether the last Configure asked for a pull-up.
func (s *SimInput) PulledUp() bool { return s.pulledUp.Load() }

// Configured reports how many times Configure ran.
func (s *SimInput) Configured() int { return int(s.configured.Load()) }

func (s *SimInput) OnEdge(fn func()) error {
	s.onEdge.Store(&fn)
	return nil
}

func (s *SimInput) ReadLevel() bool { return s.level.Load() }

func (s *SimInput) SetLevel(high bool) {
	if s.level.Swap(high) == high {
		return
	}
	if !s.interrupt.Load() {
		return
	}
	if fn := s.onEdge.Load(); fn != nil {
		(*fn)()
	}
}

// SimOutput records writes in memory. Fail makes subsequent writes return err.
type SimOutput struct {
	name string

	mu     sync.Mutex
	level  bool
	writes int
	err    error
}

func NewSimOutput(name string) *SimOutput {
	return &SimOutput{name: name}
}

func (s *SimOutput) Name() string  { return s.name }
func (s *SimOutput) IsBound() bool { return true }

func (s *SimOutput) Write(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if SafeMode() {
		return nil
	}
	s.level = on
	s.writes++
	return nil
}

func (s *SimOutput) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *SimOutput) Level() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

func (s *SimOutput) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
