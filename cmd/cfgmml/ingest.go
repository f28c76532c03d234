package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/cfgmml2db/internal/index"
)

func ingestCmd(a *app) *cobra.Command {
	var input, dbPath string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Parse every CFGMML dump under the input directory into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input != "" {
				a.cfg.InputDir = input
			}
			if dbPath != "" {
				a.cfg.DBPath = dbPath
			}
			return a.ingest(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Directory to scan (default from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database file (default from config)")

	return cmd
}

// ingest runs one full ingest. Progress lines and the final confirmation go
// to out.
func (a *app) ingest(out io.Writer) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	w, err := index.NewWriter(db, a.cfg.SchemaMode, a.logger)
	if err != nil {
		return err
	}

	in := index.NewIngester(db, a.parser(), w, a.cfg.Pattern, out, a.logger)
	stats, err := in.Run(a.cfg.InputDir)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	a.logger.Info("ingest complete", "input", a.cfg.InputDir, "db", a.cfg.DBPath, "stats", stats.String())
	fmt.Fprintln(out, "Completed successfully")
	return nil
}
