// Package statsdb is an optional MySQL sink for per-scan statistics,
// giving the teacher's corpus-measurement tooling (cmd/corpus-bench,
// cmd/storeminer-diff printed to stdout) a persisted home instead of a
// one-off benchmark printout.
package statsdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// ScanRecord is one scanned file's outcome, ready to persist.
type ScanRecord struct {
	Path         string
	RuleCount    int
	ACPatterns   int
	RawRegexes   int
	MatchedRules int
	Duration     time.Duration
	ScannedAt    time.Time
}

// DB persists ScanRecords to a MySQL table.
type DB struct {
	conn *sql.DB
}

// Open connects to dsn (a go-sql-driver/mysql DSN, e.g.
// "user:pass@tcp(host:3306)/dbname") and ensures the scan_stats table
// exists.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("statsdb: open: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("statsdb: ping: %w", err)
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS scan_stats (
	id            BIGINT AUTO_INCREMENT PRIMARY KEY,
	path          VARCHAR(1024) NOT NULL,
	rule_count    INT NOT NULL,
	ac_patterns   INT NOT NULL,
	raw_regexes   INT NOT NULL,
	matched_rules INT NOT NULL,
	duration_ns   BIGINT NOT NULL,
	scanned_at    DATETIME NOT NULL
)`
	if _, err := conn.ExecContext(ctx, ddl); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("statsdb: create table: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error { return d.conn.Close() }

// Insert persists one ScanRecord.
func (d *DB) Insert(ctx context.Context, r ScanRecord) error {
	const q = `
INSERT INTO scan_stats (path, rule_count, ac_patterns, raw_regexes, matched_rules, duration_ns, scanned_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := d.conn.ExecContext(ctx, q,
		r.Path, r.RuleCount, r.ACPatterns, r.RawRegexes, r.MatchedRules, r.Duration.Nanoseconds(), r.ScannedAt)
	if err != nil {
		return fmt.Errorf("statsdb: insert: %w", err)
	}
	return nil
}
