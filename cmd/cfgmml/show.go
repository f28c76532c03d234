package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/cfgmml2db/internal/render"
)

func showCmd(a *app) *cobra.Command {
	var hit int64
	var context int
	var query string

	cmd := &cobra.Command{
		Use:   "show <table>",
		Short: "Print the rows of a command table around a hit row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			out, _, err := render.RenderTable(db, args[0], render.Options{
				HitRowID:     hit,
				Context:      context,
				Query:        query,
				ContextField: a.cfg.ContextField,
			})
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().Int64Var(&hit, "hit", -1, "Row ID to highlight")
	cmd.Flags().IntVar(&context, "context", 10, "Rows before/after hit to show (-1 = all)")
	cmd.Flags().StringVar(&query, "query", "", "Value to highlight")

	return cmd
}
