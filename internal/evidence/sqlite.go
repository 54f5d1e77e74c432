package evidence

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSink persists decision events to a sqlite database, the `--db
// PATH` surface the offline validator subcommands replay against.
type SQLiteSink struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS decision_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	kind        TEXT NOT NULL,
	ts          INTEGER NOT NULL,
	pool        TEXT NOT NULL,
	venue       TEXT NOT NULL,
	reason      TEXT,
	profit_est  INTEGER,
	sig         TEXT,
	reserve_in  INTEGER,
	reserve_out INTEGER,
	amount_in   INTEGER,
	fee_bps     INTEGER
);`

// NewSQLiteSink opens (creating if needed) the database at path and
// ensures the decision_events schema exists.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("evidence: open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("evidence: create schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Write inserts one decision event row synchronously, on the caller's
// goroutine; SQLiteSink has no background queue or writer goroutine.
func (s *SQLiteSink) Write(ev Event) error {
	_, err := s.db.Exec(
		`INSERT INTO decision_events (kind, ts, pool, venue, reason, profit_est, sig, reserve_in, reserve_out, amount_in, fee_bps) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(ev.Kind), ev.Timestamp.UnixMilli(), ev.Pool, ev.Venue, ev.Reason, ev.ProfitEst, ev.Signature,
		ev.ReserveIn, ev.ReserveOut, ev.AmountIn, ev.FeeBps,
	)
	return err
}

// Close closes the underlying database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// VerifySchema reports whether the decision_events table exists with the
// expected columns, backing the `verify-evidence-schema` CLI surface.
func VerifySchema(path string, strict bool) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.Query(`PRAGMA table_info(decision_events)`)
	if err != nil {
		return fmt.Errorf("evidence: query schema: %w", err)
	}
	defer rows.Close()

	want := map[string]bool{
		"kind": false, "ts": false, "pool": false, "venue": false, "reason": false, "profit_est": false, "sig": false,
		"reserve_in": false, "reserve_out": false, "amount_in": false, "fee_bps": false,
	}
	count := 0
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		if _, ok := want[name]; ok {
			want[name] = true
			count++
		}
	}
	if count == 0 {
		return fmt.Errorf("evidence: decision_events table not found")
	}
	if strict {
		for col, found := range want {
			if !found {
				return fmt.Errorf("evidence: missing column %q", col)
			}
		}
	}
	return nil
}
