package execstate

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegister_SetClear(t *testing.T) {
	var r Register[ExecState]

	r.Set(ExecCycleStart)
	r.Set(ExecFeedHold)
	assert.True(t, r.Has(ExecCycleStart))
	assert.True(t, r.Has(ExecFeedHold))
	assert.False(t, r.Has(ExecSafetyDoor))

	r.Clear(ExecCycleStart)
	assert.False(t, r.Has(ExecCycleStart))
	assert.Equal(t, ExecFeedHold, r.Load())

	// clearing an unset bit is a no-op
	r.Clear(ExecSafetyDoor)
	assert.Equal(t, ExecFeedHold, r.Load())
}

func TestRegister_Take(t *testing.T) {
	var r Register[ExecState]
	r.Set(ExecCycleStart | ExecSafetyDoor)

	taken := r.Take(ExecSafetyDoor | ExecFeedHold)
	assert.Equal(t, ExecSafetyDoor, taken)
	assert.Equal(t, ExecCycleStart, r.Load())

	assert.Equal(t, ExecState(0), r.Take(ExecSafetyDoor))
}

func TestRegister_ConcurrentProducersAndConsumer(t *testing.T) {
	var r Register[ExecState]
	const rounds = 10000

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[ExecState]int{}

	producers := []ExecState{ExecCycleStart, ExecFeedHold, ExecSafetyDoor}
	done := make(chan struct{})
	for _, bit := range producers {
		wg.Add(1)
		go func(bit ExecState) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				r.Set(bit)
			}
		}(bit)
	}

	// single consumer takes bits while producers run; no set is torn into
	// another producer's bit
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for {
			taken := r.Take(ExecCycleStart | ExecFeedHold | ExecSafetyDoor)
			mu.Lock()
			for _, bit := range producers {
				if taken&bit != 0 {
					seen[bit]++
				}
			}
			mu.Unlock()
			select {
			case <-done:
				return
			default:
			}
		}
	}()

	wg.Wait()
	close(done)
	<-consumerDone

	// drain whatever is left after the consumer stopped
	rest := r.Take(ExecCycleStart | ExecFeedHold | ExecSafetyDoor)
	for _, bit := range producers {
		if rest&bit != 0 {
			seen[bit]++
		}
		assert.Greater(t, seen[bit], 0, "bit %s never observed", bit)
	}
	assert.Equal(t, ExecState(0), r.Load())
}

func TestNew_Defaults(t *testing.T) {
	s := New()
	st := s.Snapshot()

	assert.Equal(t, uint32(100), st.FeedOverride)
	assert.Equal(t, uint32(100), st.RapidOverride)
	assert.Equal(t, uint32(100), st.SpindleOverride)
	assert.Equal(t, "none", st.ExecFlags)
	assert.Equal(t, "none", st.AlarmFlags)
	assert.Equal(t, "off", st.Probe)
	assert.False(t, st.CycleStop)
}

func TestSnapshot_ReflectsRegisters(t *testing.T) {
	s := New()
	s.Exec.Set(ExecSafetyDoor | ExecFeedHold)
	s.Alarm.Set(AlarmEStop)
	s.Accessory.Set(AccessoryCoolantMistOvrToggle)
	s.SetFeedOverride(120)
	s.SetPosition(0, 400)
	s.SetPosition(MaxAxis, 1) // out of range, ignored
	s.SetProbeState(ProbeActive)
	s.SetReportWCOCounter(9)
	s.FlagWCOChange()

	st := s.Snapshot()
	assert.Equal(t, "feed_hold|safety_door", st.ExecFlags)
	assert.Equal(t, "estop", st.AlarmFlags)
	assert.Equal(t, "coolant_mist_ovr_toggle", st.AccessoryFlags)
	assert.Equal(t, uint32(120), st.FeedOverride)
	assert.Equal(t, int32(400), st.Position[0])
	assert.Equal(t, "active", st.Probe)
	assert.Equal(t, uint32(0), st.ReportWCO)
}

type drainer struct{ err error }

func (d drainer) DrainAndWait(context.Context) error { return d.err }

func TestFlagWCOChangeSynced(t *testing.T) {
	s := New()
	s.SetReportWCOCounter(5)

	err := s.FlagWCOChangeSynced(context.Background(), drainer{err: context.Canceled})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint32(5), s.ReportWCOCounter())

	assert.NoError(t, s.FlagWCOChangeSynced(context.Background(), drainer{}))
	assert.Equal(t, uint32(0), s.ReportWCOCounter())
}
