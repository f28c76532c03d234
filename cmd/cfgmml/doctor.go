package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/cfgmml2db/internal/scan"
)

func doctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify input dir and DB, show stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg := a.cfg

			fmt.Fprintln(out, "=== Input ===")
			checkDir(out, "Input", cfg.InputDir)
			fmt.Fprintf(out, "  Pattern: %s\n", cfg.Pattern)

			fmt.Fprintln(out, "\n=== File Scan ===")
			files, err := scan.Find(cfg.InputDir, cfg.Pattern)
			if err != nil {
				fmt.Fprintf(out, "  scan error: %v\n", err)
			} else {
				var size int64
				for _, f := range files {
					size += f.Size
				}
				fmt.Fprintf(out, "  Dump files: %d (%.1f MB)\n", len(files), float64(size)/1024/1024)
			}

			fmt.Fprintln(out, "\n=== Database ===")
			fmt.Fprintf(out, "  Path: %s\n", cfg.DBPath)
			fmt.Fprintf(out, "  Schema mode: %s\n", cfg.SchemaMode)
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Fprintln(out, "  Status: NOT FOUND (run 'cfgmml ingest' first)")
				return nil
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			tables, err := db.Tables()
			if err != nil {
				return fmt.Errorf("list tables: %w", err)
			}
			runs, err := db.RunCount()
			if err != nil {
				return fmt.Errorf("count runs: %w", err)
			}
			ingested, err := db.FileCount()
			if err != nil {
				return fmt.Errorf("count files: %w", err)
			}

			fmt.Fprintf(out, "  Tables:   %d\n", len(tables))
			fmt.Fprintf(out, "  Runs:     %d\n", runs)
			fmt.Fprintf(out, "  Files:    %d\n", ingested)

			last, err := db.LastRun()
			if err != nil {
				return fmt.Errorf("last run: %w", err)
			}
			if last != nil {
				fmt.Fprintln(out, "\n=== Last Run ===")
				fmt.Fprintf(out, "  ID:       %s\n", last.RunID)
				fmt.Fprintf(out, "  Started:  %s\n", last.StartedAt)
				fmt.Fprintf(out, "  Status:   %s\n", last.Status)
				fmt.Fprintf(out, "  Files:    %d\n", last.Files)
				fmt.Fprintf(out, "  Records:  %d\n", last.Records)
			}

			if info, err := os.Stat(cfg.DBPath); err == nil {
				sizeMB := float64(info.Size()) / 1024 / 1024
				fmt.Fprintf(out, "\n=== DB Size: %.1f MB ===\n", sizeMB)
			}

			return nil
		},
	}
}

func checkDir(w io.Writer, name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Fprintf(w, "  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Fprintf(w, "  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Fprintf(w, "  %s: %s (OK)\n", name, path)
	}
}
