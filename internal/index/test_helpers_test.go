package index

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/cfgmml2db/internal/parse"
)

// openTestDB opens a fresh database file under t.TempDir.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "db", "dump.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestWriter(t *testing.T, db *DB, mode string) *Writer {
	t.Helper()
	w, err := NewWriter(db, mode, nil)
	require.NoError(t, err)
	return w
}

// rec builds a record from alternating name, value pairs.
func rec(pairs ...string) parse.Record {
	r := make(parse.Record, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		r = append(r, parse.Field{Name: pairs[i], Value: pairs[i+1]})
	}
	return r
}

func group(command string, recs ...parse.Record) *parse.Group {
	g := parse.NewGroup()
	for i, r := range recs {
		g.Add(command, i+1, r)
	}
	return g
}

// readTable returns the column names and every row keyed by column; NULL
// values are nil.
func readTable(t *testing.T, db *DB, table string) ([]string, []map[string]*string) {
	t.Helper()
	cols, err := db.Columns(table)
	require.NoError(t, err)

	rows, err := db.Raw().Query("SELECT * FROM " + QuoteIdent(table) + " ORDER BY rowid")
	require.NoError(t, err)
	defer rows.Close()

	var out []map[string]*string
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range vals {
			dest[i] = &vals[i]
		}
		require.NoError(t, rows.Scan(dest...))
		m := make(map[string]*string, len(cols))
		for i, c := range cols {
			if vals[i].Valid {
				v := vals[i].String
				m[c] = &v
			} else {
				m[c] = nil
			}
		}
		out = append(out, m)
	}
	require.NoError(t, rows.Err())
	return cols, out
}

func strPtr(s string) *string { return &s }
