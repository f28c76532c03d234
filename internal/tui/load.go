package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zuo-Peng/cfgmml2db/internal/render"
	"github.com/Zuo-Peng/cfgmml2db/internal/search"
)

const debounceDelay = 200 * time.Millisecond

// Rows rendered around the selected row in the preview.
const (
	previewRows      = 50
	previewTableRows = 20
)

type resultsMsg struct {
	seq     int
	results []search.Result
	err     error
}

type contextsMsg struct {
	level  level
	table  string
	values []string
	err    error
}

type debounceMsg struct {
	seq int
}

type previewMsg struct {
	key     string
	content string
	hitLine int
	err     error
}

func debounce(seq int) tea.Cmd {
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg {
		return debounceMsg{seq: seq}
	})
}

// fetch loads the list for the current level, filter and context.
func (m model) fetch() tea.Cmd {
	db, seq, lvl := m.db, m.seq, m.level
	opts := m.opts
	opts.Query = m.input.Value()
	opts.Table = m.table
	opts.Context = m.context
	return func() tea.Msg {
		var results []search.Result
		var err error
		switch lvl {
		case levelTables:
			results, err = search.ListAll(db, opts.Query)
		case levelRows:
			results, err = search.Rows(db, opts)
		default:
			results, err = search.Search(db, opts)
		}
		return resultsMsg{seq: seq, results: results, err: err}
	}
}

// fetchContexts loads the context values the filter can cycle through.
func (m model) fetchContexts() tea.Cmd {
	if m.level == levelTables {
		return nil
	}
	db, lvl, table, field := m.db, m.level, m.table, m.opts.ContextField
	return func() tea.Msg {
		values, err := search.Contexts(db, table, field)
		return contextsMsg{level: lvl, table: table, values: values, err: err}
	}
}

func previewKey(r search.Result) string {
	return fmt.Sprintf("%s:%d", r.Table, r.RowID)
}

func (m model) currentPreviewKey() string {
	r, ok := m.current()
	if !ok {
		return ""
	}
	return previewKey(r)
}

// loadPreview renders the selected table or row unless it is already shown.
func (m model) loadPreview() tea.Cmd {
	r, ok := m.current()
	if !ok || previewKey(r) == m.previewKey {
		return nil
	}
	opts := render.Options{
		HitRowID:     r.RowID,
		Context:      previewRows,
		Width:        m.previewWidth(),
		ContextField: m.opts.ContextField,
	}
	if m.level == levelTables {
		opts.Context = previewTableRows
	} else {
		opts.Query = m.input.Value()
	}
	db, key := m.db, previewKey(r)
	return func() tea.Msg {
		content, hitLine, err := render.RenderTable(db, r.Table, opts)
		return previewMsg{key: key, content: content, hitLine: hitLine, err: err}
	}
}
