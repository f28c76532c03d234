package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/cfgmml2db/internal/search"
	"github.com/Zuo-Peng/cfgmml2db/internal/tui"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorGreen   = "\033[1;32m"
)

// isTerminal reports whether stdout is interactive.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

func searchCmd(a *app) *cobra.Command {
	var table, context string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <value>",
		Short: "Find rows in any command table containing a value",
		Long: `Searches every column of every command table for a substring
(case-insensitive). Output is TSV when stdout is not a terminal:
  table, rowid, context, summary, snippet

Recommended shell function (add to .zshrc):
  cfgf() {
    cfgmml search "$*" | fzf \
      --ansi \
      --delimiter='\t' --with-nth=1,3.. \
      --preview 'cfgmml show {1} --hit {2} --context 5 --query {q}' \
      --preview-window=right:60%:wrap
  }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			opts := search.Options{
				Table:        table,
				Context:      context,
				ContextField: a.cfg.ContextField,
				Limit:        limit,
			}

			// Interactive TUI when stdout is a terminal; TSV output for pipes
			if isTerminal() {
				return tui.Run(db, args[0], opts)
			}

			opts.Query = args[0]
			results, err := search.Search(db, opts)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No results found.")
				return nil
			}
			writeResults(cmd.OutOrStdout(), results)
			return nil
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Only search this command table")
	cmd.Flags().StringVar(&context, "context", "", "Only rows with this context value")
	cmd.Flags().IntVar(&limit, "limit", 100, "Max results")

	return cmd
}

func writeResults(w io.Writer, results []search.Result) {
	for _, r := range results {
		snippet := colorizeSnippet(tsvEscaper.Replace(r.Snippet))
		summary := tsvEscaper.Replace(r.Summary)
		ctx := r.Context
		if ctx == "" {
			ctx = "-"
		}
		// first two fields (table, rowid) stay plain for fzf {1} {2}
		fmt.Fprintf(w, "%s\t%d\t%s%s%s\t%s\t%s\n",
			r.Table,
			r.RowID,
			sColorGreen, ctx, sColorReset,
			summary,
			snippet,
		)
	}
}
