// Package ledger records build runs and their compiler invocations in SQLite.
package ledger

import (
	"database/sql"
	"fmt"

	"github.com/agentic-research/protocli/api"
	"github.com/ohler55/ojg/oj"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	root TEXT NOT NULL,
	output_root TEXT NOT NULL,
	lang TEXT NOT NULL,
	outcome TEXT NOT NULL,
	started INTEGER NOT NULL,
	elapsed_ns INTEGER NOT NULL,
	files INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	formatted INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS invocations (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	seq INTEGER NOT NULL,
	file TEXT NOT NULL,
	output_dir TEXT NOT NULL,
	argv JSON NOT NULL,
	command TEXT NOT NULL,
	exit_code INTEGER NOT NULL,
	timed_out INTEGER NOT NULL,
	duration_ns INTEGER NOT NULL,
	output TEXT,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_invocations_file ON invocations(file);
`

// Ledger appends one row per run and one row per invocation.
type Ledger struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Record stores res in a single transaction and returns the run id.
func (l *Ledger) Record(res api.Result, opts api.BuildOptions) (int64, error) {
	tx, err := l.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	r, err := tx.Exec(`
		INSERT INTO runs (root, output_root, lang, outcome, started, elapsed_ns, files, failed, formatted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.Root,
		opts.Output(res.Root),
		opts.Lang(),
		res.Outcome.String(),
		res.Started.UnixNano(),
		res.Elapsed.Nanoseconds(),
		len(res.Invocations),
		len(res.Failed()),
		res.Formatted,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := r.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO invocations (run_id, seq, file, output_dir, argv, command, exit_code, timed_out, duration_ns, output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	for _, inv := range res.Invocations {
		argv := make([]any, len(inv.Args))
		for i, a := range inv.Args {
			argv[i] = a
		}
		var output *string
		if len(inv.Output) > 0 {
			s := string(inv.Output)
			output = &s
		}
		if _, err := stmt.Exec(
			runID,
			inv.Seq,
			inv.File,
			inv.OutputDir,
			oj.JSON(argv),
			inv.Command,
			inv.ExitCode,
			inv.TimedOut,
			inv.Duration.Nanoseconds(),
			output,
		); err != nil {
			return 0, fmt.Errorf("insert invocation %s: %w", inv.File, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
