package main

import (
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/cfgmml2db/internal/search"
)

func queryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a SQL statement against the database and print TSV",
		Long: `Runs a SQL statement and prints the result as TSV, header row first.
NULL values print as empty fields. Table names contain spaces, so quote them:

  cfgmml query 'SELECT SRNC, BTSNAME FROM "ADD BTS"'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			rs, err := search.Query(db, args[0])
			if err != nil {
				return err
			}
			writeTSV(cmd.OutOrStdout(), rs)
			return nil
		},
	}
}

var tsvEscaper = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

func writeTSV(w io.Writer, rs *search.ResultSet) {
	fmt.Fprintln(w, strings.Join(rs.Columns, "\t"))
	for _, row := range rs.Rows {
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = tsvField(v)
		}
		fmt.Fprintln(w, strings.Join(fields, "\t"))
	}
}

func tsvField(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return tsvEscaper.Replace(v.String)
}
