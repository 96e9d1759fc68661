package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/cnc-control/db"
	"github.com/thatsimonsguy/cnc-control/internal/control"
	"github.com/thatsimonsguy/cnc-control/internal/outputs"
)

func TestJournal_PersistsRecords(t *testing.T) {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	fixed := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	j := New(conn, 16)
	j.RecordControlEvent(control.SetOf(control.Reset, control.FeedHold), control.Reset)
	j.RecordOutputCommand(outputs.Command{Kind: outputs.KindDigital, Mask: 3, Value: 1})
	j.RecordOutputCommand(outputs.Command{Kind: outputs.KindAnalog, Mask: 1, Value: 20, Err: errors.New("M67 PWM channel error")})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	require.Eventually(t, func() bool {
		cmds, err := db.RecentOutputCommands(conn, 10)
		return err == nil && len(cmds) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	events, err := db.RecentControlEvents(conn, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "reset", events[0].Signal)
	assert.Equal(t, uint8(control.SetOf(control.Reset, control.FeedHold)), events[0].Triggered)
	assert.True(t, fixed.Equal(events[0].At))

	cmds, err := db.RecentOutputCommands(conn, 10)
	require.NoError(t, err)
	assert.False(t, cmds[0].OK)
	assert.Equal(t, "M67 PWM channel error", cmds[0].Error)
	assert.True(t, cmds[1].OK)
}

func TestJournal_DropsWhenFull(t *testing.T) {
	j := New(nil, 2)
	before := testutil.ToFloat64(droppedTotal)

	for i := 0; i < 5; i++ {
		j.RecordControlEvent(control.CycleStart.Bit(), control.CycleStart)
	}
	assert.Equal(t, before+3, testutil.ToFloat64(droppedTotal))
	assert.Len(t, j.records, 2)
}

func TestJournal_FlushesOnShutdown(t *testing.T) {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	j := New(conn, 8)
	j.RecordControlEvent(control.SafetyDoor.Bit(), control.SafetyDoor)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, j.Run(ctx))

	events, err := db.RecentControlEvents(conn, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
