package main

import (
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/cfgmml2db/internal/open"
)

func openCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <command>",
		Short: "Open the dump file containing a command in $EDITOR at its first line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			return open.OpenCommand(db, args[0])
		},
	}
}
