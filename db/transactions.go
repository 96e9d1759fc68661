package db

import (
	"database/sql"
	"fmt"

	"github.com/thatsimonsguy/cnc-control/internal/model"
)

// StartTransaction starts a new database transaction.
func StartTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

// WriteBatch stores events and commands in one transaction.
func WriteBatch(db *sql.DB, events []model.ControlEvent, cmds []model.OutputCommand) error {
	if len(events) == 0 && len(cmds) == 0 {
		return nil
	}
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	for _, e := range events {
		if err := InsertControlEvent(tx, e); err != nil {
			RollbackTransaction(tx)
			return err
		}
	}
	for _, c := range cmds {
		if err := InsertOutputCommand(tx, c); err != nil {
			RollbackTransaction(tx)
			return err
		}
	}
	return CommitTransaction(tx)
}

// PruneBefore deletes journal rows older than the given RFC3339 timestamp.
func PruneBefore(db *sql.DB, cutoff string) (int64, error) {
	tx, err := StartTransaction(db)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, table := range []string{"control_events", "output_commands"} {
		res, err := tx.Exec(`DELETE FROM `+table+` WHERE at < ?`, cutoff)
		if err != nil {
			RollbackTransaction(tx)
			return 0, fmt.Errorf("prune %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, CommitTransaction(tx)
}
