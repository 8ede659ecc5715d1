package db

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"
)

// Applied by the driver on every new connection, not just the first one.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"cache_size(-20000)", // 20MB
}

// Open returns the process-wide handle with the schema migrated. Callers own
// it and should run Optimize before closing it on shutdown.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite handles one writer at a time; the collector and the admin would
	// otherwise race for the lock.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Optimize refreshes the query planner statistics. Cheap enough to run at
// every shutdown.
func Optimize(db *sql.DB) error {
	_, err := db.Exec(`PRAGMA optimize`)
	return err
}

// dsn passes the pragmas as driver parameters. An in-memory database lives
// on its single connection and needs none of them.
func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}
