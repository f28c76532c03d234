package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zuo-Peng/cfgmml2db/internal/index"
	"github.com/Zuo-Peng/cfgmml2db/internal/search"
)

// level is what the list panel shows.
type level int

const (
	levelTables level = iota // command tables, filtered by name
	levelRows                // rows of one table, filtered by value
	levelSearch              // value hits across tables
)

func (l level) String() string {
	switch l {
	case levelTables:
		return "tables"
	case levelRows:
		return "rows"
	default:
		return "search"
	}
}

// crumb is a level the user drilled down from; Back restores it.
type crumb struct {
	level  level
	table  string
	filter string
	cursor int
}

type model struct {
	db   *index.DB
	opts search.Options // limit and context field
	keys keyMap
	help help.Model

	level    level
	table    string // table shown at levelRows, search scope at levelSearch
	context  string // "" = every context value
	contexts []string
	history  []crumb

	input   textinput.Model
	results []search.Result
	cursor  int
	offset  int
	restore int // cursor to reapply when the next results arrive, -1 = none
	seq     int // latest results request; older responses are dropped

	preview    viewport.Model
	previewKey string

	width, height int
	ready         bool

	selected *search.Result
	quitting bool
}

func newModel(db *index.DB, lvl level, query string, opts search.Options) model {
	if opts.ContextField == "" {
		opts.ContextField = "SRNC"
	}
	in := textinput.New()
	in.Prompt = "> "
	in.PromptStyle = stylePrompt
	in.TextStyle = styleInputText
	in.CharLimit = 256
	in.SetValue(query)
	in.Focus()

	m := model{
		db:      db,
		opts:    search.Options{Limit: opts.Limit, ContextField: opts.ContextField},
		keys:    newKeyMap(),
		help:    help.New(),
		level:   lvl,
		table:   opts.Table,
		context: opts.Context,
		input:   in,
		restore: -1,
		preview: viewport.New(0, 0),
	}
	m.input.Placeholder = m.placeholder()
	return m
}

func (m model) placeholder() string {
	switch m.level {
	case levelTables:
		return "Filter tables..."
	case levelRows:
		return "Filter rows of " + m.table + "..."
	default:
		return "Search values..."
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.fetch(), m.fetchContexts())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.help.Width = msg.Width
		m.preview = viewport.New(m.previewWidth(), m.panelHeight())
		m.previewKey = ""
		m.clampOffset()
		return m, m.loadPreview()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case debounceMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		return m, m.fetch()

	case resultsMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.results = msg.results
		m.cursor, m.offset = 0, 0
		if m.restore >= 0 && m.restore < len(m.results) {
			m.cursor = m.restore
		}
		m.restore = -1
		m.clampOffset()
		m.previewKey = ""
		if msg.err != nil {
			m.results = nil
			m.preview.SetContent("Error: " + msg.err.Error())
			return m, nil
		}
		if len(m.results) == 0 {
			m.preview.SetContent("")
			return m, nil
		}
		return m, m.loadPreview()

	case contextsMsg:
		if msg.err == nil && msg.level == m.level && msg.table == m.table {
			m.contexts = msg.values
		}
		return m, nil

	case previewMsg:
		if msg.key != m.currentPreviewKey() || msg.key == m.previewKey {
			return m, nil
		}
		if msg.err != nil {
			m.preview.SetContent("Preview error: " + msg.err.Error())
		} else {
			m.preview.SetContent(msg.content)
			if msg.hitLine > 0 {
				m.preview.SetYOffset(msg.hitLine)
			} else {
				m.preview.GotoTop()
			}
		}
		m.previewKey = msg.key
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.keys.forLevel(m.level, len(m.history) > 0)

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Back):
		if len(m.history) == 0 {
			m.quitting = true
			return m, tea.Quit
		}
		return m.back()

	case key.Matches(msg, keys.Open):
		r, ok := m.current()
		if !ok {
			return m, nil
		}
		if m.level == levelTables {
			return m.drill(r.Table)
		}
		return m.choose(r)

	case key.Matches(msg, keys.Copy):
		if r, ok := m.current(); ok {
			return m.choose(r)
		}
		return m, nil

	case key.Matches(msg, keys.NextContext):
		m.context = nextContext(m.contexts, m.context)
		cmd := m.reload()
		return m, cmd

	case key.Matches(msg, keys.Scope):
		if m.level == levelTables {
			return m.switchRoot(levelSearch)
		}
		return m.switchRoot(levelTables)

	case key.Matches(msg, keys.Up):
		return m.moveCursor(m.cursor - 1)

	case key.Matches(msg, keys.Down):
		return m.moveCursor(m.cursor + 1)

	case key.Matches(msg, keys.ScrollUp):
		m.preview.LineUp(m.panelHeight() / 2)
		return m, nil

	case key.Matches(msg, keys.ScrollDown):
		m.preview.LineDown(m.panelHeight() / 2)
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}
	m.seq++
	return m, tea.Batch(cmd, debounce(m.seq))
}

func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !m.ready || len(m.results) == 0 {
		return m, nil
	}
	region, idx := m.hitTest(msg.X, msg.Y)
	switch {
	case region == regionList && msg.Button == tea.MouseButtonWheelUp:
		return m.moveCursor(m.cursor - 1)
	case region == regionList && msg.Button == tea.MouseButtonWheelDown:
		return m.moveCursor(m.cursor + 1)
	case region == regionList && msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		if idx < len(m.results) {
			return m.moveCursor(idx)
		}
	case region == regionPreview:
		var cmd tea.Cmd
		m.preview, cmd = m.preview.Update(msg)
		return m, cmd
	}
	return m, nil
}

// drill opens the rows of table, remembering the table list.
func (m model) drill(table string) (tea.Model, tea.Cmd) {
	m.history = append(m.history, crumb{
		level:  m.level,
		table:  m.table,
		filter: m.input.Value(),
		cursor: m.cursor,
	})
	m.level = levelRows
	m.table = table
	m.context = ""
	m.contexts = nil
	m.input.SetValue("")
	m.input.Placeholder = m.placeholder()
	cmd := tea.Batch(m.reload(), m.fetchContexts())
	return m, cmd
}

func (m model) back() (tea.Model, tea.Cmd) {
	c := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	m.level = c.level
	m.table = c.table
	m.context = ""
	m.contexts = nil
	m.restore = c.cursor
	m.input.SetValue(c.filter)
	m.input.Placeholder = m.placeholder()
	cmd := tea.Batch(m.reload(), m.fetchContexts())
	return m, cmd
}

// switchRoot toggles between the table list and the value search. The typed
// text carries over as the new filter.
func (m model) switchRoot(lvl level) (tea.Model, tea.Cmd) {
	m.history = nil
	m.level = lvl
	m.table = ""
	m.context = ""
	m.contexts = nil
	m.input.Placeholder = m.placeholder()
	cmd := tea.Batch(m.reload(), m.fetchContexts())
	return m, cmd
}

func (m model) choose(r search.Result) (tea.Model, tea.Cmd) {
	m.selected = &r
	m.quitting = true
	return m, tea.Quit
}

func (m model) moveCursor(to int) (tea.Model, tea.Cmd) {
	if to < 0 || to >= len(m.results) || to == m.cursor {
		return m, nil
	}
	m.cursor = to
	m.clampOffset()
	return m, m.loadPreview()
}

func (m model) current() (search.Result, bool) {
	if m.cursor < 0 || m.cursor >= len(m.results) {
		return search.Result{}, false
	}
	return m.results[m.cursor], true
}

// reload starts a fresh results request and invalidates pending ones.
func (m *model) reload() tea.Cmd {
	m.seq++
	return m.fetch()
}

// clampOffset keeps the cursor inside the visible part of the list.
func (m *model) clampOffset() {
	visible := m.panelHeight() / linesPerItem
	if visible < 1 {
		visible = 1
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}

// nextContext cycles "" -> values[0] -> ... -> values[n-1] -> "".
func nextContext(values []string, cur string) string {
	if cur == "" {
		if len(values) == 0 {
			return ""
		}
		return values[0]
	}
	for i, v := range values {
		if v == cur && i+1 < len(values) {
			return values[i+1]
		}
	}
	return ""
}
