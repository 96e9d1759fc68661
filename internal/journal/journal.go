package journal

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/cnc-control/db"
	"github.com/thatsimonsguy/cnc-control/internal/control"
	"github.com/thatsimonsguy/cnc-control/internal/model"
	"github.com/thatsimonsguy/cnc-control/internal/outputs"
)

const (
	DefaultBuffer = 256
	maxBatch      = 64
)

var now = time.Now

type record struct {
	event *model.ControlEvent
	cmd   *model.OutputCommand
}

// Journal persists control dispatches and output commands. Record calls
// never block: when the buffer is full the record is dropped and counted.
type Journal struct {
	conn    *sql.DB
	records chan record
}

func New(conn *sql.DB, buffer int) *Journal {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Journal{conn: conn, records: make(chan record, buffer)}
}

// RecordControlEvent is safe to call from the edge context.
func (j *Journal) RecordControlEvent(triggered control.SignalSet, signal control.Signal) {
	j.offer(record{event: &model.ControlEvent{At: now(), Triggered: uint8(triggered), Signal: signal.String()}})
}

func (j *Journal) RecordOutputCommand(cmd outputs.Command) {
	c := &model.OutputCommand{
		At:           now(),
		Kind:         cmd.Kind,
		Mask:         cmd.Mask,
		Value:        cmd.Value,
		Synchronized: cmd.Synchronized,
		OK:           cmd.Err == nil,
	}
	if cmd.Err != nil {
		c.Error = cmd.Err.Error()
	}
	j.offer(record{cmd: c})
}

func (j *Journal) offer(r record) {
	select {
	case j.records <- r:
	default:
		droppedTotal.Inc()
	}
}

// Run writes records in batches until ctx is done, then flushes what is buffered.
func (j *Journal) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			j.flush(j.drain(nil))
			return nil
		case r := <-j.records:
			j.flush(j.drain([]record{r}))
		}
	}
}

func (j *Journal) drain(batch []record) []record {
	for len(batch) < maxBatch {
		select {
		case r := <-j.records:
			batch = append(batch, r)
		default:
			return batch
		}
	}
	return batch
}

func (j *Journal) flush(batch []record) {
	if len(batch) == 0 {
		return
	}
	var events []model.ControlEvent
	var cmds []model.OutputCommand
	for _, r := range batch {
		if r.event != nil {
			events = append(events, *r.event)
		}
		if r.cmd != nil {
			cmds = append(cmds, *r.cmd)
		}
	}
	if err := db.WriteBatch(j.conn, events, cmds); err != nil {
		log.Error().Err(err).Int("records", len(batch)).Msg("Failed to write journal batch")
		writeErrorsTotal.Inc()
		return
	}
	writtenTotal.Add(float64(len(batch)))
}
