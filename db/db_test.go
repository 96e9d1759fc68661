package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/cnc-control/internal/model"
)

func TestOpen_AppliesSchemaIdempotently(t *testing.T) {
	conn, err := Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, ApplySchema(conn))

	rows, err := conn.Query("PRAGMA table_info(output_commands)")
	require.NoError(t, err)
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notNull bool
		var defaultValue *string
		require.NoError(t, rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk))
		columns = append(columns, name)
	}
	assert.Equal(t, []string{"id", "at", "kind", "mask", "value", "synchronized", "ok", "error"}, columns)
}

func TestWriteBatchAndRecent(t *testing.T) {
	conn, err := Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []model.ControlEvent{
		{At: t0, Triggered: 0x01, Signal: "safety_door"},
		{At: t0.Add(time.Second), Triggered: 0x0A, Signal: "reset"},
	}
	cmds := []model.OutputCommand{
		{At: t0, Kind: "digital", Mask: 0x05, Value: 1, OK: true},
		{At: t0.Add(time.Second), Kind: "analog", Mask: 0x01, Value: 42.5, Synchronized: true, Error: "M67 PWM channel error"},
	}
	require.NoError(t, WriteBatch(conn, events, cmds))
	require.NoError(t, WriteBatch(conn, nil, nil))

	gotEvents, err := RecentControlEvents(conn, 10)
	require.NoError(t, err)
	require.Len(t, gotEvents, 2)
	assert.Equal(t, "reset", gotEvents[0].Signal)
	assert.Equal(t, uint8(0x0A), gotEvents[0].Triggered)
	assert.True(t, t0.Add(time.Second).Equal(gotEvents[0].At))

	gotCmds, err := RecentOutputCommands(conn, 1)
	require.NoError(t, err)
	require.Len(t, gotCmds, 1)
	assert.Equal(t, "analog", gotCmds[0].Kind)
	assert.Equal(t, 42.5, gotCmds[0].Value)
	assert.True(t, gotCmds[0].Synchronized)
	assert.False(t, gotCmds[0].OK)
	assert.Equal(t, "M67 PWM channel error", gotCmds[0].Error)

	counts, err := CountControlEvents(conn)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"safety_door": 1, "reset": 1}, counts)
}

func TestWriteBatch_RollsBackOnError(t *testing.T) {
	conn, err := Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	cmds := []model.OutputCommand{
		{At: time.Now(), Kind: "digital", Mask: 1, OK: true},
		{At: time.Now(), Kind: "bogus", Mask: 1, OK: true},
	}
	assert.Error(t, WriteBatch(conn, []model.ControlEvent{{At: time.Now(), Signal: "feed_hold"}}, cmds))

	events, err := RecentControlEvents(conn, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPruneBefore(t *testing.T) {
	conn, err := Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, WriteBatch(conn,
		[]model.ControlEvent{{At: old, Signal: "feed_hold"}, {At: recent, Signal: "cycle_start"}},
		[]model.OutputCommand{{At: old, Kind: "digital", OK: true}},
	))

	n, err := PruneBefore(conn, "2025-06-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	events, err := RecentControlEvents(conn, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "cycle_start", events[0].Signal)
}
