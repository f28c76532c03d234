package search

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/Zuo-Peng/cfgmml2db/internal/index"
)

// Result is one row hit, or one table in list mode (RowID -1).
type Result struct {
	Table   string
	RowID   int64
	Context string
	Summary string
	Snippet string

	rowidCol string // alias reaching the implicit rowid; "" means rowid
}

// SelectSQL returns a statement selecting the row behind r, or the whole
// table when r is a table entry.
func SelectSQL(r Result) string {
	if r.RowID < 0 {
		return fmt.Sprintf("SELECT * FROM %s;", index.QuoteIdent(r.Table))
	}
	col := r.rowidCol
	if col == "" {
		col = "rowid"
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE %s = %d;", index.QuoteIdent(r.Table), col, r.RowID)
}

type Options struct {
	Query        string
	Table        string // "" = all tables
	Context      string // "" = all, else exact context value
	ContextField string // defaults to SRNC
	Limit        int
}

type TableInfo struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
	Rows    int      `json:"rows" yaml:"rows"`
}

// ListTables describes every command table, sorted by name.
func ListTables(db *index.DB) ([]TableInfo, error) {
	names, err := db.Tables()
	if err != nil {
		return nil, err
	}
	infos := make([]TableInfo, 0, len(names))
	for _, name := range names {
		cols, err := db.Columns(name)
		if err != nil {
			return nil, fmt.Errorf("columns %s: %w", name, err)
		}
		n, err := db.RowCount(name)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		infos = append(infos, TableInfo{Name: name, Columns: cols, Rows: n})
	}
	return infos, nil
}

// ListAll returns one Result per table whose name contains filter
// (case-insensitive).
func ListAll(db *index.DB, filter string) ([]Result, error) {
	infos, err := ListTables(db)
	if err != nil {
		return nil, err
	}
	f := strings.ToLower(filter)
	var results []Result
	for _, ti := range infos {
		if f != "" && !strings.Contains(strings.ToLower(ti.Name), f) {
			continue
		}
		results = append(results, Result{
			Table:   ti.Name,
			RowID:   -1,
			Summary: fmt.Sprintf("%d rows, %d columns", ti.Rows, len(ti.Columns)),
			Snippet: strings.Join(ti.Columns, ", "),
		})
	}
	return results, nil
}

// ResultSet is the outcome of an ad-hoc query. NULL values are invalid
// NullStrings.
type ResultSet struct {
	Columns []string
	Rows    [][]sql.NullString
}

// Query runs an arbitrary SQL statement and collects every row as text.
func Query(db *index.DB, query string, args ...any) (*ResultSet, error) {
	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	rs := &ResultSet{Columns: cols}
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, vals)
	}
	return rs, rows.Err()
}

// makeSnippet extracts a snippet around the first occurrence of query in text.
func makeSnippet(text, query string, contextChars int) string {
	lower := strings.ToLower(text)
	qLower := strings.ToLower(query)
	idx := strings.Index(lower, qLower)
	if idx < 0 || len(lower) != len(text) {
		// no match (or case folding changed byte offsets), return head
		if len([]rune(text)) > contextChars*2 {
			return string([]rune(text)[:contextChars*2]) + "..."
		}
		return text
	}
	runes := []rune(text)
	qRunes := []rune(query)
	runePos := len([]rune(text[:idx]))
	start := runePos - contextChars
	if start < 0 {
		start = 0
	}
	end := runePos + len(qRunes) + contextChars
	if end > len(runes) {
		end = len(runes)
	}
	prefix := ""
	suffix := ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	// wrap the matched part with markers
	snippet := string(runes[start:runePos]) +
		">>>" + string(runes[runePos:runePos+len(qRunes)]) + "<<<" +
		string(runes[runePos+len(qRunes):end])
	return prefix + snippet + suffix
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (o *Options) defaults() {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.ContextField == "" {
		o.ContextField = "SRNC"
	}
}

// Search finds rows in command tables where any column contains opts.Query.
func Search(db *index.DB, opts Options) ([]Result, error) {
	opts.defaults()
	if opts.Query == "" {
		return nil, nil
	}

	tables := []string{opts.Table}
	if opts.Table == "" {
		var err error
		tables, err = db.Tables()
		if err != nil {
			return nil, err
		}
	}

	var results []Result
	for _, table := range tables {
		remaining := opts.Limit - len(results)
		if remaining <= 0 {
			break
		}
		hits, err := searchTable(db, table, opts, remaining)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", table, err)
		}
		results = append(results, hits...)
	}
	return results, nil
}

// Rows lists the rows of opts.Table in rowid order. A non-empty Query keeps
// only rows containing it; Context keeps only rows of that context value.
func Rows(db *index.DB, opts Options) ([]Result, error) {
	opts.defaults()
	if opts.Table == "" {
		return nil, fmt.Errorf("rows: no table given")
	}
	results, err := searchTable(db, opts.Table, opts, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("rows %s: %w", opts.Table, err)
	}
	return results, nil
}

// Contexts returns the distinct values of the context field, sorted. An empty
// table means every command table.
func Contexts(db *index.DB, table, contextField string) ([]string, error) {
	if contextField == "" {
		contextField = "SRNC"
	}
	tables := []string{table}
	if table == "" {
		var err error
		tables, err = db.Tables()
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]struct{})
	for _, t := range tables {
		cols, err := db.Columns(t)
		if err != nil {
			return nil, err
		}
		col := ""
		for _, c := range cols {
			if strings.EqualFold(c, contextField) {
				col = c
				break
			}
		}
		if col == "" {
			continue
		}
		q := fmt.Sprintf("SELECT DISTINCT %[1]s FROM %[2]s WHERE %[1]s IS NOT NULL",
			index.QuoteIdent(col), index.QuoteIdent(t))
		if err := collectStrings(db, q, seen); err != nil {
			return nil, fmt.Errorf("contexts %s: %w", t, err)
		}
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

func collectStrings(db *index.DB, query string, into map[string]struct{}) error {
	rows, err := db.Raw().Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return err
		}
		into[v] = struct{}{}
	}
	return rows.Err()
}

func searchTable(db *index.DB, table string, opts Options, limit int) ([]Result, error) {
	cols, err := db.Columns(table)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table not found: %s", table)
	}
	rowid, ok := index.RowIDAlias(cols)
	if !ok {
		return nil, fmt.Errorf("table %s shadows every rowid alias", table)
	}

	ctxIdx := -1
	for i, c := range cols {
		if strings.EqualFold(c, opts.ContextField) {
			ctxIdx = i
			break
		}
	}

	var where []string
	var args []any
	if opts.Query != "" {
		pattern := "%" + likeEscaper.Replace(opts.Query) + "%"
		var conditions []string
		for _, c := range cols {
			conditions = append(conditions, index.QuoteIdent(c)+` LIKE ? ESCAPE '\'`)
			args = append(args, pattern)
		}
		where = append(where, "("+strings.Join(conditions, " OR ")+")")
	}

	// context filter
	if opts.Context != "" {
		if ctxIdx < 0 {
			return nil, nil
		}
		where = append(where, index.QuoteIdent(cols[ctxIdx])+" = ?")
		args = append(args, opts.Context)
	}

	query := fmt.Sprintf("SELECT %[1]s, * FROM %[2]s", rowid, index.QuoteIdent(table))
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s LIMIT ?", rowid)
	args = append(args, limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var rowID int64
		vals := make([]sql.NullString, len(cols))
		dest := []any{&rowID}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		r := Result{Table: table, RowID: rowID, rowidCol: rowid}
		if ctxIdx >= 0 {
			r.Context = vals[ctxIdx].String
		}
		var summary, rest []string
		for i, v := range vals {
			if !v.Valid || i == ctxIdx {
				continue
			}
			pair := cols[i] + "=" + v.String
			if len(summary) < 3 {
				summary = append(summary, pair)
			} else {
				rest = append(rest, pair)
			}
			if opts.Query != "" && r.Snippet == "" && strings.Contains(strings.ToLower(pair), strings.ToLower(opts.Query)) {
				r.Snippet = makeSnippet(pair, opts.Query, 30)
			}
		}
		r.Summary = strings.Join(summary, ",")
		switch {
		case opts.Query == "":
			r.Snippet = strings.Join(rest, ",")
		case r.Snippet == "" && ctxIdx >= 0:
			r.Snippet = makeSnippet(cols[ctxIdx]+"="+r.Context, opts.Query, 30)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
