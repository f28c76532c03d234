package main

import (
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/cfgmml2db/internal/search"
	"github.com/Zuo-Peng/cfgmml2db/internal/tui"
)

func browseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse command tables interactively",
		Long:  `Opens a TUI panel listing every command table. Type to filter by table name; the preview shows the first rows.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			return tui.RunList(db, search.Options{ContextField: a.cfg.ContextField})
		},
	}
}
