package index

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Zuo-Peng/cfgmml2db/internal/parse"
	"github.com/Zuo-Peng/cfgmml2db/internal/scan"
)

type Stats struct {
	RunID   string
	Files   int
	Records int
	Dropped int
	Tables  int
}

func (s Stats) String() string {
	return fmt.Sprintf("files=%d records=%d dropped=%d tables=%d",
		s.Files, s.Records, s.Dropped, s.Tables)
}

// Ingester runs discovery, parsing and persistence, one file at a time.
type Ingester struct {
	db       *DB
	parser   *parse.Parser
	writer   *Writer
	pattern  string
	progress io.Writer
	logger   *slog.Logger
	now      func() time.Time
}

func NewIngester(db *DB, parser *parse.Parser, writer *Writer, pattern string, progress io.Writer, logger *slog.Logger) *Ingester {
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ingester{
		db:       db,
		parser:   parser,
		writer:   writer,
		pattern:  pattern,
		progress: progress,
		logger:   logger,
		now:      time.Now,
	}
}

// Run ingests every matching file under root. Each file is parsed completely
// and committed before the next one starts; the first fatal error stops the
// run and the run is logged as failed.
func (in *Ingester) Run(root string) (Stats, error) {
	stats := Stats{RunID: uuid.NewString()}

	files, err := scan.Find(root, in.pattern)
	if err != nil {
		return stats, fmt.Errorf("scan: %w", err)
	}

	if err := in.db.BeginRun(stats.RunID, in.now()); err != nil {
		return stats, fmt.Errorf("begin run: %w", err)
	}
	logger := in.logger.With("run_id", stats.RunID)
	logger.Info("run started", "root", root, "files", len(files))

	tables := make(map[string]struct{})
	for _, fi := range files {
		if err := in.ingestFile(fi, stats.RunID, &stats, tables, logger); err != nil {
			if ferr := in.db.FinishRun(stats.RunID, in.now(), stats.Files, stats.Records, "failed"); ferr != nil {
				logger.Error("finish run", "err", ferr)
			}
			return stats, err
		}
	}

	if err := in.db.FinishRun(stats.RunID, in.now(), stats.Files, stats.Records, "ok"); err != nil {
		return stats, fmt.Errorf("finish run: %w", err)
	}
	logger.Info("run finished", "stats", stats.String())
	return stats, nil
}

func (in *Ingester) ingestFile(fi scan.FileInfo, runID string, stats *Stats, tables map[string]struct{}, logger *slog.Logger) error {
	fmt.Fprintf(in.progress, "Parsing %s\n", fi.Path)

	g, ps, err := in.parser.ParseFile(fi.Path)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	rows, err := in.writer.WriteFile(g, FileMeta{
		RunID:   runID,
		Path:    fi.Path,
		Mtime:   fi.Mtime,
		Size:    fi.Size,
		Dropped: ps.Dropped,
	})
	if err != nil {
		return fmt.Errorf("store %s: %w", fi.Path, err)
	}

	for _, c := range g.Commands() {
		tables[c] = struct{}{}
	}
	stats.Files++
	stats.Records += rows
	stats.Dropped += ps.Dropped
	stats.Tables = len(tables)

	logger.Debug("file ingested", "file", fi.Path, "commands", len(g.Commands()), "parse", ps.String())
	return nil
}
