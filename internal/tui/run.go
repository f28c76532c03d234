package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zuo-Peng/cfgmml2db/internal/index"
	"github.com/Zuo-Peng/cfgmml2db/internal/search"
)

// Run opens the browser on value hits for query. opts.Table and opts.Context
// start as filters. A chosen row is copied to the clipboard as a SELECT.
func Run(db *index.DB, query string, opts search.Options) error {
	return runProgram(newModel(db, levelSearch, query, opts))
}

// RunList opens the browser on the table list.
func RunList(db *index.DB, opts search.Options) error {
	opts.Table, opts.Context = "", ""
	return runProgram(newModel(db, levelTables, "", opts))
}

func runProgram(m model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	if fm := final.(model); fm.selected != nil {
		return copySelection(os.Stdout, *fm.selected)
	}
	return nil
}

// copySelection copies the SELECT for r to the clipboard, printing it instead
// when no clipboard is available.
func copySelection(w io.Writer, r search.Result) error {
	stmt := search.SelectSQL(r)
	if err := clipboard.WriteAll(stmt); err != nil {
		fmt.Fprintln(w, stmt)
		return nil
	}
	fmt.Fprintf(w, "Copied to clipboard: %s\n", stmt)
	return nil
}
