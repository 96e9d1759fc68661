package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/thatsimonsguy/cnc-control/internal/model"
)

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func InsertControlEvent(db execer, e model.ControlEvent) error {
	_, err := db.Exec(`INSERT INTO control_events (at, triggered, signal) VALUES (?, ?, ?)`,
		e.At.UTC().Format(time.RFC3339Nano), e.Triggered, e.Signal)
	if err != nil {
		return fmt.Errorf("insert control event: %w", err)
	}
	return nil
}

func InsertOutputCommand(db execer, c model.OutputCommand) error {
	var errText interface{}
	if c.Error != "" {
		errText = c.Error
	}
	_, err := db.Exec(`INSERT INTO output_commands (at, kind, mask, value, synchronized, ok, error) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.At.UTC().Format(time.RFC3339Nano), c.Kind, c.Mask, c.Value, c.Synchronized, c.OK, errText)
	if err != nil {
		return fmt.Errorf("insert output command: %w", err)
	}
	return nil
}

// RecentControlEvents returns up to limit events, newest first.
func RecentControlEvents(db *sql.DB, limit int) ([]model.ControlEvent, error) {
	rows, err := db.Query(`SELECT id, at, triggered, signal FROM control_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query control events: %w", err)
	}
	defer rows.Close()

	var events []model.ControlEvent
	for rows.Next() {
		var e model.ControlEvent
		var at string
		if err := rows.Scan(&e.ID, &at, &e.Triggered, &e.Signal); err != nil {
			return nil, err
		}
		e.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse event time %q: %w", at, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// RecentOutputCommands returns up to limit commands, newest first.
func RecentOutputCommands(db *sql.DB, limit int) ([]model.OutputCommand, error) {
	rows, err := db.Query(`SELECT id, at, kind, mask, value, synchronized, ok, error FROM output_commands ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query output commands: %w", err)
	}
	defer rows.Close()

	var cmds []model.OutputCommand
	for rows.Next() {
		var c model.OutputCommand
		var at string
		var errText sql.NullString
		if err := rows.Scan(&c.ID, &at, &c.Kind, &c.Mask, &c.Value, &c.Synchronized, &c.OK, &errText); err != nil {
			return nil, err
		}
		c.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse command time %q: %w", at, err)
		}
		c.Error = errText.String
		cmds = append(cmds, c)
	}
	return cmds, rows.Err()
}

// CountControlEvents returns the number of journaled events per signal.
func CountControlEvents(db *sql.DB) (map[string]int, error) {
	rows, err := db.Query(`SELECT signal, COUNT(*) FROM control_events GROUP BY signal`)
	if err != nil {
		return nil, fmt.Errorf("count control events: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var signal string
		var n int
		if err := rows.Scan(&signal, &n); err != nil {
			return nil, err
		}
		counts[signal] = n
	}
	return counts, rows.Err()
}
