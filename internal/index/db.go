package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// InternalPrefix marks bookkeeping tables; they are never command tables.
const InternalPrefix = "_cfgmml_"

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA cache_size = -64000;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS _cfgmml_meta (
    key   TEXT PRIMARY KEY,
    value TEXT
);

CREATE TABLE IF NOT EXISTS _cfgmml_runs (
    run_id      TEXT PRIMARY KEY,
    started_at  TEXT NOT NULL,
    finished_at TEXT NOT NULL DEFAULT '',
    files       INTEGER NOT NULL DEFAULT 0,
    records     INTEGER NOT NULL DEFAULT 0,
    status      TEXT NOT NULL DEFAULT 'running'
);

CREATE TABLE IF NOT EXISTS _cfgmml_files (
    run_id      TEXT NOT NULL,
    path        TEXT NOT NULL,
    mtime       INTEGER NOT NULL DEFAULT 0,
    size        INTEGER NOT NULL DEFAULT 0,
    records     INTEGER NOT NULL DEFAULT 0,
    dropped     INTEGER NOT NULL DEFAULT 0,
    ingested_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS _cfgmml_commands (
    run_id     TEXT NOT NULL,
    path       TEXT NOT NULL,
    command    TEXT NOT NULL,
    first_line INTEGER NOT NULL DEFAULT 0,
    rows       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS _cfgmml_commands_command ON _cfgmml_commands(command);
`

// schemaVersion tracks the bookkeeping layout, not the command tables.
const schemaVersion = "1"

const timeLayout = "2006-01-02T15:04:05Z"

type DB struct {
	db *sql.DB
}

// OpenDB opens (and creates, with its directory) the SQLite file at dbPath.
func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if _, err := db.Exec(
		"INSERT OR REPLACE INTO _cfgmml_meta (key, value) VALUES ('schema_version', ?)",
		schemaVersion,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("record schema version: %w", err)
	}

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

// QuoteIdent quotes a table or column name for SQLite.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ReservedPrefixes are table name prefixes a command may not use, compared
// case-insensitively.
var ReservedPrefixes = []string{InternalPrefix, "sqlite_"}

// IsInternal reports whether table is bookkeeping or SQLite-owned.
func IsInternal(table string) bool {
	lower := strings.ToLower(table)
	for _, p := range ReservedPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// rowIDAliases are the names SQLite accepts for a table's implicit rowid.
var rowIDAliases = []string{"rowid", "_rowid_", "oid"}

// RowIDAlias returns a name that still refers to the implicit rowid of a
// table with cols. A command field can declare a real column named ROWID,
// which shadows that alias.
func RowIDAlias(cols []string) (string, bool) {
	shadowed := make(map[string]bool, len(cols))
	for _, c := range cols {
		shadowed[strings.ToLower(c)] = true
	}
	for _, a := range rowIDAliases {
		if !shadowed[a] {
			return a, true
		}
	}
	return "", false
}

// Tables returns the command tables, sorted by name.
func (d *DB) Tables() ([]string, error) {
	rows, err := d.db.Query("SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if IsInternal(name) {
			continue
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

// tableColumns lists a table's columns in ordinal order. A missing table
// yields no columns.
func tableColumns(q querier, table string) ([]string, error) {
	rows, err := q.Query("SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func (d *DB) Columns(table string) ([]string, error) {
	return tableColumns(d.db, table)
}

func (d *DB) RowCount(table string) (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM " + QuoteIdent(table)).Scan(&n)
	return n, err
}

// Row is one stored record. Values follow the table's column order; NULL
// marks a column the record did not supply.
type Row struct {
	RowID  int64
	Values []sql.NullString
}

// RowsWindow returns a window of rows around hitRowID. startPos is the number
// of rows before the window, totalCount the table's row count and hitIdx the
// index of the hit inside the window (-1 if absent).
func (d *DB) RowsWindow(table string, hitRowID int64, context int) (cols []string, rows []Row, hitIdx int, startPos int, totalCount int, err error) {
	cols, err = d.Columns(table)
	if err != nil {
		return nil, nil, -1, 0, 0, err
	}
	if len(cols) == 0 {
		return nil, nil, -1, 0, 0, fmt.Errorf("table not found: %s", table)
	}
	qt := QuoteIdent(table)
	rowid, ok := RowIDAlias(cols)
	if !ok {
		return nil, nil, -1, 0, 0, fmt.Errorf("table %s shadows every rowid alias", table)
	}

	if err = d.db.QueryRow("SELECT COUNT(*) FROM " + qt).Scan(&totalCount); err != nil {
		return nil, nil, -1, 0, 0, err
	}

	hitPos := -1
	if hitRowID >= 0 {
		err = d.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s < ?", qt, rowid), hitRowID).Scan(&hitPos)
		if err != nil {
			return nil, nil, -1, 0, 0, err
		}
	}

	// compute window bounds
	startPos = 0
	limit := context*2 + 1
	if hitPos >= 0 {
		startPos = hitPos - context
		if startPos < 0 {
			startPos = 0
		}
		endPos := hitPos + context + 1
		if endPos > totalCount {
			endPos = totalCount
		}
		limit = endPos - startPos
	}
	if limit < 0 {
		limit = 0
	}

	q := fmt.Sprintf("SELECT %[2]s, * FROM %[1]s ORDER BY %[2]s LIMIT ? OFFSET ?", qt, rowid)
	rs, err := d.db.Query(q, limit, startPos)
	if err != nil {
		return nil, nil, -1, 0, 0, err
	}
	defer rs.Close()

	hitIdx = -1
	for rs.Next() {
		r := Row{Values: make([]sql.NullString, len(cols))}
		dest := make([]any, 0, len(cols)+1)
		dest = append(dest, &r.RowID)
		for i := range r.Values {
			dest = append(dest, &r.Values[i])
		}
		if err := rs.Scan(dest...); err != nil {
			return nil, nil, -1, 0, 0, err
		}
		if r.RowID == hitRowID {
			hitIdx = len(rows)
		}
		rows = append(rows, r)
	}
	return cols, rows, hitIdx, startPos, totalCount, rs.Err()
}

// Run bookkeeping

func (d *DB) BeginRun(runID string, startedAt time.Time) error {
	_, err := d.db.Exec(
		"INSERT INTO _cfgmml_runs (run_id, started_at) VALUES (?, ?)",
		runID, startedAt.UTC().Format(timeLayout),
	)
	return err
}

func (d *DB) FinishRun(runID string, finishedAt time.Time, files, records int, status string) error {
	_, err := d.db.Exec(
		"UPDATE _cfgmml_runs SET finished_at = ?, files = ?, records = ?, status = ? WHERE run_id = ?",
		finishedAt.UTC().Format(timeLayout), files, records, status, runID,
	)
	return err
}

type RunRow struct {
	RunID      string
	StartedAt  string
	FinishedAt string
	Files      int
	Records    int
	Status     string
}

// LastRun returns the most recently started run, or nil.
func (d *DB) LastRun() (*RunRow, error) {
	var r RunRow
	err := d.db.QueryRow(
		"SELECT run_id, started_at, finished_at, files, records, status FROM _cfgmml_runs ORDER BY started_at DESC, rowid DESC LIMIT 1",
	).Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.Files, &r.Records, &r.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *DB) RunCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM _cfgmml_runs").Scan(&n)
	return n, err
}

func (d *DB) FileCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM _cfgmml_files").Scan(&n)
	return n, err
}

type CommandSource struct {
	Path      string
	FirstLine int
	Rows      int
}

// CommandSource returns the most recently ingested file that contained
// command, or nil if it was never seen.
func (d *DB) CommandSource(command string) (*CommandSource, error) {
	var s CommandSource
	err := d.db.QueryRow(
		"SELECT path, first_line, rows FROM _cfgmml_commands WHERE command = ? ORDER BY rowid DESC LIMIT 1",
		command,
	).Scan(&s.Path, &s.FirstLine, &s.Rows)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
