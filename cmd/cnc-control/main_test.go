package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/cnc-control/db"
	"github.com/thatsimonsguy/cnc-control/internal/journal"
	"github.com/thatsimonsguy/cnc-control/internal/outputs"
)

func TestRunTasks_JournalsFinalOutputsOff(t *testing.T) {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()
	jr := journal.New(conn, journal.DefaultBuffer)

	outputsOff := func() {
		jr.RecordOutputCommand(outputs.Command{Kind: outputs.KindDigital, Mask: 0x0f})
		jr.RecordOutputCommand(outputs.Command{Kind: outputs.KindAnalog, Mask: 0x03})
	}
	failing := func(context.Context) error { return errors.New("control pins lost") }
	waiting := func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}

	err = runTasks(context.Background(), jr, outputsOff, failing, waiting)
	assert.EqualError(t, err, "control pins lost")

	cmds, err := db.RecentOutputCommands(conn, 10)
	require.NoError(t, err)
	assert.Len(t, cmds, 2)
}

func TestRunTasks_StopsOnCancel(t *testing.T) {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()
	jr := journal.New(conn, journal.DefaultBuffer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	off := 0
	err = runTasks(ctx, jr, func() { off++ }, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, off)
}
