package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/cfgmml2db/internal/config"
	"github.com/Zuo-Peng/cfgmml2db/internal/index"
	"github.com/Zuo-Peng/cfgmml2db/internal/logging"
	"github.com/Zuo-Peng/cfgmml2db/internal/parse"
)

var version = "dev"

// app holds the state shared by every command once the root has loaded the
// configuration.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "cfgmml",
		Short: "Load CFGMML configuration dumps into SQLite, one table per MML command",
		Long: `Scans the input directory for CFGMML*.txt dumps and stores every MML command
type as its own table. Run without a subcommand to ingest with the configured
defaults.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ingest(cmd.OutOrStdout())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (.toml, .yaml); default tries ./cfgmml.{toml,yaml,yml}")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level (debug/info/warn/error)")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format (text/json)")

	rootCmd.AddCommand(ingestCmd(a))
	rootCmd.AddCommand(tablesCmd(a))
	rootCmd.AddCommand(queryCmd(a))
	rootCmd.AddCommand(searchCmd(a))
	rootCmd.AddCommand(showCmd(a))
	rootCmd.AddCommand(browseCmd(a))
	rootCmd.AddCommand(openCmd(a))
	rootCmd.AddCommand(doctorCmd(a))

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration, applies flag overrides and installs the
// logger on stderr.
func (a *app) setup(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	a.cfg = cfg
	a.logger = logging.Setup(cfg.LogLevel, cfg.LogFormat, stderr)
	return nil
}

func (a *app) openDB() (*index.DB, error) {
	db, err := index.OpenDB(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

func (a *app) parser() *parse.Parser {
	return parse.New(parse.Options{
		CommentMarker:    a.cfg.CommentMarker,
		ContextDirective: a.cfg.ContextDirective,
		ContextField:     a.cfg.ContextField,
		DefaultContext:   a.cfg.DefaultContext,
		Terminator:       a.cfg.Terminator,
	}, a.logger)
}
