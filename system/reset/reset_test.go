package reset

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thatsimonsguy/cnc-control/internal/execstate"
)

func TestPerformReset(t *testing.T) {
	state := execstate.New()
	busy := false
	r := New(state, func() bool { return busy })

	r.PerformReset()
	assert.True(t, state.Exec.Has(execstate.ExecReset))
	assert.Equal(t, execstate.ExecAlarm(0), state.Alarm.Load())

	// the loop consumes the reset; a reset during motion also aborts the cycle
	state.Exec.Clear(execstate.ExecReset)
	busy = true
	r.PerformReset()
	assert.True(t, state.Alarm.Has(execstate.AlarmAbortCycle))
}

func TestPerformReset_IgnoresRepeat(t *testing.T) {
	state := execstate.New()
	calls := 0
	r := New(state, func() bool { calls++; return false })

	r.PerformReset()
	r.PerformReset()
	assert.Equal(t, 1, calls)
}

type fakeOutputs struct {
	calls int
	err   error
}

func (f *fakeOutputs) AllOff(context.Context) error {
	f.calls++
	return f.err
}

type fakeMotion struct{ cleared int }

func (f *fakeMotion) Clear() { f.cleared++ }

func TestHandler(t *testing.T) {
	out := &fakeOutputs{err: errors.New("relay stuck")}
	m := &fakeMotion{}

	Handler(out, m)()
	assert.Equal(t, 1, out.calls)
	assert.Equal(t, 1, m.cleared)

	assert.NotPanics(t, Handler(nil, nil))
}
