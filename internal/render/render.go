package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/cfgmml2db/internal/index"
)

const (
	colorReset   = "\033[0m"
	colorRow     = "\033[1;34m" // bold blue
	colorContext = "\033[1;32m" // bold green
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

type Options struct {
	HitRowID     int64  // -1 = no hit, render from the first row
	Context      int    // rows before/after hit to show
	Width        int    // wrap width (0 = no wrap)
	Query        string // search query for keyword highlighting
	ContextField string // column shown in the row header, defaults to SRNC
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red ANSI codes.
func highlightKeywords(text, query string) string {
	if query == "" {
		return text
	}
	for _, term := range strings.Fields(query) {
		lower := strings.ToLower(term)
		i := 0
		for i < len(text) {
			idx := strings.Index(strings.ToLower(text[i:]), lower)
			if idx < 0 {
				break
			}
			pos := i + idx
			if pos+len(term) > len(text) {
				break
			}
			orig := text[pos : pos+len(term)]
			replacement := colorBoldRed + orig + colorReset
			text = text[:pos] + replacement + text[pos+len(term):]
			i = pos + len(replacement)
		}
	}
	return text
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, correctly skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// check for ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}

	if len(result) == 0 {
		return []string{""}
	}
	return result
}

// RenderTable renders a window of table rows and returns the content, the
// 0-based line number of the hit row header (-1 if no hit), and any error.
func RenderTable(db *index.DB, table string, opts Options) (string, int, error) {
	if opts.Context == 0 {
		opts.Context = 10
	}
	if opts.Context < 0 {
		opts.Context = 1000000 // no limit
	}
	if opts.ContextField == "" {
		opts.ContextField = "SRNC"
	}

	cols, rows, hitIdx, startPos, totalCount, err := db.RowsWindow(table, opts.HitRowID, opts.Context)
	if err != nil {
		return "", -1, fmt.Errorf("get rows: %w", err)
	}

	if totalCount == 0 {
		return "(empty table)", -1, nil
	}

	ctxIdx := -1
	for i, c := range cols {
		if strings.EqualFold(c, opts.ContextField) {
			ctxIdx = i
			break
		}
	}

	nameW := 0
	for _, c := range cols {
		if w := runewidth.StringWidth(c); w > nameW {
			nameW = w
		}
	}

	skipAfter := totalCount - startPos - len(rows)

	var b strings.Builder
	hitLine := -1
	lineCount := 0
	separator := colorDim + "--------------------------------------------------" + colorReset

	// helper to track line count; wraps long lines if Width is set
	writeLine := func(s string) {
		for _, wl := range wrapLine(s, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
			lineCount++
		}
	}

	// header
	writeLine(fmt.Sprintf("%s--- %s [%d rows, %d columns] ---%s", colorDim, table, totalCount, len(cols), colorReset))

	if startPos > 0 {
		writeLine(fmt.Sprintf("%s... (%d rows before) ...%s", colorDim, startPos, colorReset))
	}

	for i, r := range rows {
		isHit := i == hitIdx

		if i > 0 {
			writeLine(separator)
		}
		if isHit {
			hitLine = lineCount
		}

		ctxVal := ""
		if ctxIdx >= 0 && r.Values[ctxIdx].Valid {
			ctxVal = r.Values[ctxIdx].String
		}
		if isHit {
			writeLine(fmt.Sprintf("%s>> #%d %s <<%s", colorHit, r.RowID, ctxVal, colorReset))
		} else {
			writeLine(fmt.Sprintf("%s#%d%s %s%s%s", colorRow, r.RowID, colorReset, colorContext, ctxVal, colorReset))
		}

		for j, v := range r.Values {
			if j == ctxIdx || !v.Valid {
				continue
			}
			name := runewidth.FillRight(cols[j], nameW)
			writeLine(fmt.Sprintf("  %s%s%s = %s", colorDim, name, colorReset, highlightKeywords(v.String, opts.Query)))
		}
	}

	if skipAfter > 0 {
		writeLine(fmt.Sprintf("%s... (%d rows after) ...%s", colorDim, skipAfter, colorReset))
	}

	return b.String(), hitLine, nil
}
