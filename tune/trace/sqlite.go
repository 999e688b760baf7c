package trace

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kerneltune/kerneltune/tune"
)

const schema = `
CREATE TABLE IF NOT EXISTS call_sites (
	run_id     TEXT NOT NULL,
	map_key    TEXT NOT NULL,
	repr       TEXT NOT NULL,
	PRIMARY KEY (run_id, map_key)
);

CREATE TABLE IF NOT EXISTS observations (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         TEXT NOT NULL,
	strategy       TEXT NOT NULL,
	map_key        TEXT NOT NULL,
	implementation TEXT NOT NULL,
	elapsed_ns     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_observations_run_key
	ON observations (run_id, map_key);
`

// SQLiteSink persists observations to a SQLite database so runs can be
// inspected and compared offline. One row per observation; call-site reprs
// land in their own table, once per (run, key).
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at dbPath and ensures the
// schema exists. Pass ":memory:" for an ephemeral database.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open observations db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// RegisterKey implements Sink.
func (s *SQLiteSink) RegisterKey(runID string, key tune.MapKey, repr string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO call_sites (run_id, map_key, repr) VALUES (?, ?, ?)`,
		runID, string(key), repr,
	)
	if err != nil {
		return fmt.Errorf("insert call site: %w", err)
	}
	return nil
}

// Append implements Sink.
func (s *SQLiteSink) Append(runID string, rec Record) error {
	_, err := s.db.Exec(
		`INSERT INTO observations (run_id, strategy, map_key, implementation, elapsed_ns)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, string(rec.Strategy), string(rec.Key), rec.Implementation.String(), rec.ElapsedNanos,
	)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

// CountObservations returns the number of persisted observations for a run.
func (s *SQLiteSink) CountObservations(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM observations WHERE run_id = ?`, runID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return n, nil
}

// LoadObservations reads back a run's observations in insertion order.
func (s *SQLiteSink) LoadObservations(runID string) ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT strategy, map_key, implementation, elapsed_ns
		 FROM observations WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var strategy, key, implName string
		var elapsed int64
		if err := rows.Scan(&strategy, &key, &implName, &elapsed); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		impl, err := tune.ParseImplementation(implName)
		if err != nil {
			return nil, fmt.Errorf("observation row: %w", err)
		}
		records = append(records, Record{
			Strategy:       tune.Strategy(strategy),
			Key:            tune.MapKey(key),
			Implementation: impl,
			ElapsedNanos:   elapsed,
		})
	}
	return records, rows.Err()
}
