package index

import (
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Zuo-Peng/cfgmml2db/internal/parse"
)

// Schema evolution modes.
const (
	// ModeDiff compares each batch against the known columns and adds the
	// missing ones before inserting.
	ModeDiff = "diff"
	// ModeRetry inserts first and adds one column per "no column named"
	// failure, retrying the batch each time.
	ModeRetry = "retry"
)

var (
	missingColumnRe = regexp.MustCompile(`no column named (.+?)(?: \(\d+\))?$`)
	missingTableRe  = regexp.MustCompile(`no such table: `)
)

type execQuerier interface {
	querier
	Exec(query string, args ...any) (sql.Result, error)
	Prepare(query string) (*sql.Stmt, error)
}

// Writer persists parsed groups into one table per command, growing each
// table's column set as new fields show up.
type Writer struct {
	db     *DB
	mode   string
	logger *slog.Logger

	// folded table name -> folded column names; SQLite identifiers are
	// case-insensitive, tables included
	columns map[string]map[string]struct{}
}

func NewWriter(db *DB, mode string, logger *slog.Logger) (*Writer, error) {
	switch mode {
	case "":
		mode = ModeDiff
	case ModeDiff, ModeRetry:
	default:
		return nil, fmt.Errorf("unknown schema mode: %s", mode)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{
		db:      db,
		mode:    mode,
		logger:  logger,
		columns: make(map[string]map[string]struct{}),
	}, nil
}

// FileMeta describes the source of a group for the ingest log.
type FileMeta struct {
	RunID   string
	Path    string
	Mtime   int64
	Size    int64
	Dropped int
}

// WriteGroup persists every record of g. All commands are written in one
// transaction. It returns the number of rows inserted.
func (w *Writer) WriteGroup(g *parse.Group) (int, error) {
	return w.write(g, nil)
}

// WriteFile is WriteGroup plus the ingest log rows for meta, committed in the
// same transaction.
func (w *Writer) WriteFile(g *parse.Group, meta FileMeta) (int, error) {
	return w.write(g, &meta)
}

func (w *Writer) write(g *parse.Group, meta *FileMeta) (n int, err error) {
	tx, err := w.db.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			// schema changes made in the transaction are gone too
			w.columns = make(map[string]map[string]struct{})
		}
	}()

	skipped := 0
	for _, command := range g.Commands() {
		recs := g.Records(command)
		if IsInternal(command) {
			w.logger.Warn("skipped reserved command", "command", command, "rows", len(recs))
			skipped += len(recs)
			continue
		}
		written, err := w.writeBatch(tx, command, recs)
		if err != nil {
			return 0, fmt.Errorf("write %s: %w", command, err)
		}
		n += written

		if meta != nil {
			if _, err := tx.Exec(
				`INSERT INTO _cfgmml_commands (run_id, path, command, first_line, rows)
				 VALUES (?, ?, ?, ?, ?)`,
				meta.RunID, meta.Path, command, g.FirstLine(command), written,
			); err != nil {
				return 0, fmt.Errorf("log command %s: %w", command, err)
			}
		}
	}

	if meta != nil {
		if _, err := tx.Exec(
			`INSERT INTO _cfgmml_files (run_id, path, mtime, size, records, dropped, ingested_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			meta.RunID, meta.Path, meta.Mtime, meta.Size, n, meta.Dropped+skipped,
			time.Now().UTC().Format(timeLayout),
		); err != nil {
			return 0, fmt.Errorf("log file: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func (w *Writer) writeBatch(tx execQuerier, table string, recs []parse.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	if w.mode == ModeRetry {
		return w.writeBatchRetry(tx, table, recs)
	}

	cols := batchColumns(recs)
	known, err := w.knownColumns(tx, table)
	if err != nil {
		return 0, err
	}
	if known == nil {
		if err := w.createTable(tx, table, cols); err != nil {
			return 0, err
		}
	} else {
		for _, c := range cols {
			if _, ok := known[strings.ToLower(c)]; !ok {
				if err := w.addColumn(tx, table, c); err != nil {
					return 0, err
				}
			}
		}
	}
	return insertRows(tx, table, recs)
}

// writeBatchRetry inserts inside a savepoint and repairs the schema from the
// driver's error, one missing column at a time.
func (w *Writer) writeBatchRetry(tx execQuerier, table string, recs []parse.Record) (int, error) {
	added := make(map[string]bool)
	for {
		if _, err := tx.Exec("SAVEPOINT cfgmml_batch"); err != nil {
			return 0, err
		}
		n, insertErr := insertRows(tx, table, recs)
		if insertErr == nil {
			if _, err := tx.Exec("RELEASE cfgmml_batch"); err != nil {
				return 0, err
			}
			return n, nil
		}
		if _, err := tx.Exec("ROLLBACK TO cfgmml_batch"); err != nil {
			return 0, err
		}
		if _, err := tx.Exec("RELEASE cfgmml_batch"); err != nil {
			return 0, err
		}

		if missingTableRe.MatchString(insertErr.Error()) {
			if err := w.createTable(tx, table, batchColumns(recs)); err != nil {
				return 0, err
			}
			continue
		}

		col, ok := missingColumn(insertErr)
		if !ok {
			return 0, insertErr
		}
		key := strings.ToLower(col)
		if added[key] {
			return 0, fmt.Errorf("column %s still missing after add: %w", col, insertErr)
		}
		added[key] = true
		if err := w.addColumn(tx, table, col); err != nil {
			return 0, err
		}
	}
}

// missingColumn extracts the column name from a "no column named X" error.
func missingColumn(err error) (string, bool) {
	m := missingColumnRe.FindStringSubmatch(err.Error())
	if m == nil {
		return "", false
	}
	return strings.Trim(m[1], `"`), true
}

// knownColumns returns the cached folded column set, loading it on first use.
// A nil set means the table does not exist.
func (w *Writer) knownColumns(q querier, table string) (map[string]struct{}, error) {
	if cols, ok := w.columns[strings.ToLower(table)]; ok {
		return cols, nil
	}
	names, err := tableColumns(q, table)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
	w.columns[strings.ToLower(table)] = set
	return set, nil
}

func (w *Writer) createTable(tx execQuerier, table string, cols []string) error {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = QuoteIdent(c) + " TEXT"
	}
	q := fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(table), strings.Join(defs, ", "))
	if _, err := tx.Exec(q); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[strings.ToLower(c)] = struct{}{}
	}
	w.columns[strings.ToLower(table)] = set
	w.logger.Debug("created table", "table", table, "columns", len(cols))
	return nil
}

func (w *Writer) addColumn(tx execQuerier, table, col string) error {
	q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", QuoteIdent(table), QuoteIdent(col))
	if _, err := tx.Exec(q); err != nil {
		return fmt.Errorf("add column %s: %w", col, err)
	}
	if set, ok := w.columns[strings.ToLower(table)]; ok {
		set[strings.ToLower(col)] = struct{}{}
	}
	w.logger.Debug("added column", "table", table, "column", col)
	return nil
}

// batchColumns is the ordered union of field names across recs, folded the
// way SQLite folds identifiers.
func batchColumns(recs []parse.Record) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, rec := range recs {
		for _, f := range rec {
			key := strings.ToLower(f.Name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// rowColumns returns the record's columns and values, collapsing names that
// fold to the same column (last value wins).
func rowColumns(rec parse.Record) ([]string, []any) {
	idx := make(map[string]int, len(rec))
	names := make([]string, 0, len(rec))
	values := make([]any, 0, len(rec))
	for _, f := range rec {
		key := strings.ToLower(f.Name)
		if i, ok := idx[key]; ok {
			values[i] = f.Value
			continue
		}
		idx[key] = len(names)
		names = append(names, f.Name)
		values = append(values, f.Value)
	}
	return names, values
}

// insertRows inserts each record with its own columns. Records sharing a
// column signature reuse one prepared statement.
func insertRows(tx execQuerier, table string, recs []parse.Record) (int, error) {
	stmts := make(map[string]*sql.Stmt)
	defer func() {
		for _, s := range stmts {
			s.Close()
		}
	}()

	qt := QuoteIdent(table)
	for _, rec := range recs {
		names, values := rowColumns(rec)
		sig := strings.Join(names, "\x00")

		stmt, ok := stmts[sig]
		if !ok {
			quoted := make([]string, len(names))
			for i, n := range names {
				quoted[i] = QuoteIdent(n)
			}
			q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
				qt, strings.Join(quoted, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "))
			var err error
			stmt, err = tx.Prepare(q)
			if err != nil {
				return 0, err
			}
			stmts[sig] = stmt
		}

		if _, err := stmt.Exec(values...); err != nil {
			return 0, err
		}
	}
	return len(recs), nil
}
