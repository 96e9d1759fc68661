package db

import (
	"database/sql"

	"github.com/thatsimonsguy/cnc-control/internal/model"
)

func RecentControlEventsCLI(dbPath string, limit int) ([]model.ControlEvent, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return RecentControlEvents(conn, limit)
}

func RecentOutputCommandsCLI(dbPath string, limit int) ([]model.OutputCommand, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return RecentOutputCommands(conn, limit)
}

func PruneCLI(dbPath, cutoff string) (int64, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return PruneBefore(conn, cutoff)
}
