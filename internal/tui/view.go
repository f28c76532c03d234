package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/cfgmml2db/internal/search"
)

// linesPerItem is the number of terminal lines each list entry occupies.
const linesPerItem = 2

// Layout rows outside the panels: header and input above, status below,
// plus the panel borders.
const (
	rowsAbove = 2
	rowsBelow = 1
)

func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}
	listW, previewW, panelH := m.listWidth(), m.previewWidth(), m.panelHeight()

	list := styleListFrame.Width(listW).Height(panelH).Render(m.renderList(listW, panelH))
	m.preview.Width = previewW
	m.preview.Height = panelH
	preview := stylePreview.Width(previewW).Height(panelH).Render(m.preview.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.input.View(),
		lipgloss.JoinHorizontal(lipgloss.Top, list, preview),
		m.statusBar(),
	)
}

// header shows where the user is and which filters apply.
func (m model) header() string {
	parts := []string{styleCrumb.Render(levelTables.String())}
	switch m.level {
	case levelRows:
		parts = append(parts, styleCrumb.Render(m.table))
	case levelSearch:
		parts = []string{styleCrumb.Render("search")}
		if m.table != "" {
			parts = append(parts, styleCrumb.Render(m.table))
		}
	}
	line := strings.Join(parts, styleCrumbSep.Render(" › "))
	if m.context != "" {
		line += " " + styleTag.Render(m.opts.ContextField+"="+m.context)
	}
	return line
}

func (m model) statusBar() string {
	noun := "hits"
	switch m.level {
	case levelTables:
		noun = "tables"
	case levelRows:
		noun = "rows"
	}
	count := fmt.Sprintf("%d %s", len(m.results), noun)
	if m.level != levelTables && len(m.contexts) > 0 {
		count += fmt.Sprintf(" · %d contexts", len(m.contexts))
	}
	keys := m.keys.forLevel(m.level, len(m.history) > 0)
	return styleStatus.Render(count + " · " + m.help.View(keys))
}

func (m model) renderList(width, height int) string {
	if len(m.results) == 0 {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, styleMuted.Render("Nothing matches"))
	}
	var lines []string
	for i := m.offset; i < len(m.results) && len(lines)+linesPerItem <= height; i++ {
		lines = append(lines, m.formatItem(m.results[i], width, i == m.cursor)...)
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// formatItem renders one entry as a title line and a detail line.
func (m model) formatItem(r search.Result, width int, selected bool) []string {
	var title, plain string
	switch m.level {
	case levelTables:
		title = styleTableName.Render(r.Table)
		plain = r.Summary
	case levelRows:
		title = styleRowID.Render(fmt.Sprintf("#%d", r.RowID))
		if r.Context != "" {
			title += " " + styleContextName.Render(r.Context)
		}
		plain = r.Summary
	default:
		title = styleTableName.Render(r.Table) + " " + styleRowID.Render(fmt.Sprintf("#%d", r.RowID))
		if r.Context != "" {
			title += " " + styleContextName.Render(r.Context)
		}
	}
	room := width - 2 - lipgloss.Width(title) - 1
	if plain != "" && room > 0 {
		title += " " + styleMuted.Render(runewidth.Truncate(flatten(plain), room, "…"))
	}

	prefix := "  "
	if selected {
		prefix = styleCursor.Render("▸ ")
	}
	return []string{prefix + title, "    " + renderSnippet(r.Snippet, width-4)}
}

// renderSnippet fits a ">>>hit<<<" snippet into width cells and styles the hit.
func renderSnippet(snippet string, width int) string {
	pre, rest, found := strings.Cut(flatten(snippet), ">>>")
	hit, post := "", ""
	if found {
		hit, post, _ = strings.Cut(rest, "<<<")
	}
	var b strings.Builder
	for i, part := range []string{pre, hit, post} {
		if width <= 0 {
			break
		}
		part = runewidth.Truncate(part, width, "")
		width -= runewidth.StringWidth(part)
		if i == 1 {
			b.WriteString(styleHit.Render(part))
		} else {
			b.WriteString(styleMuted.Render(part))
		}
	}
	return b.String()
}

var flattener = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")

func flatten(s string) string {
	return flattener.Replace(s)
}

func (m model) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	return max(20, m.width*2/5-2)
}

func (m model) previewWidth() int {
	if m.width <= 0 {
		return 60
	}
	return max(20, m.width-m.listWidth()-4)
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	return max(4, m.height-rowsAbove-rowsBelow-2)
}

type mouseRegion int

const (
	regionNone mouseRegion = iota
	regionList
	regionPreview
)

// hitTest maps a terminal cell to a panel and, in the list, an entry index.
func (m model) hitTest(x, y int) (mouseRegion, int) {
	top := rowsAbove + 1 // first content row below the panel border
	relY := y - top
	if relY < 0 || relY >= m.panelHeight() {
		return regionNone, -1
	}
	listRight := m.listWidth() + 1
	switch {
	case x >= 1 && x <= m.listWidth():
		return regionList, m.offset + relY/linesPerItem
	case x > listRight:
		return regionPreview, -1
	}
	return regionNone, -1
}
