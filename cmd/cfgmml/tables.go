package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Zuo-Peng/cfgmml2db/internal/search"
)

func tablesCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List command tables with their row counts and columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			infos, err := search.ListTables(db)
			if err != nil {
				return err
			}
			return writeTables(cmd.OutOrStdout(), infos, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format (text/json/yaml)")

	return cmd
}

func writeTables(w io.Writer, infos []search.TableInfo, format string) error {
	if infos == nil {
		infos = []search.TableInfo{}
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		for _, ti := range infos {
			fmt.Fprintf(w, "%s\t%d rows\t%s\n", ti.Name, ti.Rows, strings.Join(ti.Columns, ","))
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
