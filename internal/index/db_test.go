package index

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/cfgmml2db/internal/parse"
)

func TestOpenDB_CreatesDirectoryAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "database", "dump.db")

	db, err := OpenDB(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)

	var ver string
	require.NoError(t, db.Raw().QueryRow("SELECT value FROM _cfgmml_meta WHERE key = 'schema_version'").Scan(&ver))
	assert.Equal(t, schemaVersion, ver)
}

func TestOpenDB_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.db")
	for i := 0; i < 3; i++ {
		db, err := OpenDB(path)
		require.NoError(t, err, "open %d", i)
		require.NoError(t, db.Close())
	}
}

func TestTables_ExcludesInternal(t *testing.T) {
	db := openTestDB(t)
	w := newTestWriter(t, db, ModeDiff)

	_, err := w.WriteGroup(group("ZTE", rec("SRNC", "S", "A", "1")))
	require.NoError(t, err)
	_, err = w.WriteGroup(group("ADD BTS", rec("SRNC", "S", "A", "1")))
	require.NoError(t, err)

	tables, err := db.Tables()
	require.NoError(t, err)
	assert.Equal(t, []string{"ADD BTS", "ZTE"}, tables)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"BTS"`, QuoteIdent("BTS"))
	assert.Equal(t, `"A ""B"""`, QuoteIdent(`A "B"`))
}

func TestIsInternal(t *testing.T) {
	assert.True(t, IsInternal("_cfgmml_runs"))
	assert.True(t, IsInternal("sqlite_sequence"))
	assert.True(t, IsInternal("_CFGMML_Runs"))
	assert.True(t, IsInternal("SQLITE_master"))
	assert.False(t, IsInternal("ADD BTS"))

	// the parser rejects the same names before they reach the writer
	assert.Equal(t, ReservedPrefixes, parse.DefaultOptions().ReservedPrefixes)
}

func TestRowIDAlias(t *testing.T) {
	tests := []struct {
		cols   []string
		want   string
		wantOK bool
	}{
		{[]string{"SRNC", "NAME"}, "rowid", true},
		{[]string{"SRNC", "ROWID"}, "_rowid_", true},
		{[]string{"rowid", "_ROWID_"}, "oid", true},
		{[]string{"RowId", "_rowid_", "OID"}, "", false},
	}
	for _, tt := range tests {
		got, ok := RowIDAlias(tt.cols)
		assert.Equal(t, tt.wantOK, ok, tt.cols)
		assert.Equal(t, tt.want, got, tt.cols)
	}
}

func TestRowsWindow_RowIDColumn(t *testing.T) {
	db := openTestDB(t)
	w := newTestWriter(t, db, ModeDiff)

	_, err := w.WriteGroup(group("T",
		rec("SRNC", "S", "ROWID", "abc", "V", "a"),
		rec("SRNC", "S", "ROWID", "def", "V", "b"),
		rec("SRNC", "S", "ROWID", "ghi", "V", "c"),
	))
	require.NoError(t, err)

	cols, rows, hitIdx, startPos, total, err := db.RowsWindow("T", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"SRNC", "ROWID", "V"}, cols)
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, startPos)
	require.Len(t, rows, 1)
	assert.Equal(t, 0, hitIdx)
	assert.EqualValues(t, 2, rows[0].RowID)
	assert.Equal(t, "def", rows[0].Values[1].String)
}

func TestRowsWindow(t *testing.T) {
	db := openTestDB(t)
	w := newTestWriter(t, db, ModeDiff)

	g := group("T")
	for _, v := range []string{"a", "b", "c", "d", "e", "f"} {
		g.Add("T", 1, rec("SRNC", "S", "V", v))
	}
	_, err := w.WriteGroup(g)
	require.NoError(t, err)

	cols, rows, hitIdx, startPos, total, err := db.RowsWindow("T", 4, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"SRNC", "V"}, cols)
	assert.Equal(t, 6, total)
	assert.Equal(t, 2, startPos)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, hitIdx)
	assert.Equal(t, int64(4), rows[hitIdx].RowID)
	assert.Equal(t, "d", rows[hitIdx].Values[1].String)

	// no hit: first rows
	_, rows, hitIdx, startPos, _, err = db.RowsWindow("T", -1, 1)
	require.NoError(t, err)
	assert.Equal(t, -1, hitIdx)
	assert.Zero(t, startPos)
	assert.Len(t, rows, 3)

	_, _, _, _, _, err = db.RowsWindow("MISSING", -1, 1)
	assert.Error(t, err)
}

func TestRunBookkeeping(t *testing.T) {
	db := openTestDB(t)

	last, err := db.LastRun()
	require.NoError(t, err)
	assert.Nil(t, last)

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, db.BeginRun("run-1", start))
	require.NoError(t, db.FinishRun("run-1", start.Add(time.Minute), 2, 40, "ok"))

	last, err = db.LastRun()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-1", last.RunID)
	assert.Equal(t, "2026-01-02T03:04:05Z", last.StartedAt)
	assert.Equal(t, "2026-01-02T03:05:05Z", last.FinishedAt)
	assert.Equal(t, 2, last.Files)
	assert.Equal(t, 40, last.Records)
	assert.Equal(t, "ok", last.Status)

	n, err := db.RunCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
