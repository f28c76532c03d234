package parse

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"
)

const maxLineSize = 10 * 1024 * 1024 // 10MB

const utf8BOM = "\ufeff"

// Options controls how CFGMML lines are recognised.
type Options struct {
	CommentMarker    string // lines starting with this are not data
	ContextDirective string // comment line carrying "<directive>:<value>"
	ContextField     string // name of the injected context field
	DefaultContext   string // context value before any directive
	Terminator       string // stripped from the end of data lines, may be empty

	// ReservedPrefixes name commands that would collide with the store's own
	// tables; such lines are dropped. Compared case-insensitively.
	ReservedPrefixes []string
}

func DefaultOptions() Options {
	return Options{
		CommentMarker:    "//",
		ContextDirective: "//System BSCID",
		ContextField:     "SRNC",
		DefaultContext:   "SRC",
		Terminator:       ";",
		ReservedPrefixes: []string{"_cfgmml_", "sqlite_"},
	}
}

// DecodeError explains why a data line was dropped.
type DecodeError struct {
	Line   int
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return e.Reason
}

type Parser struct {
	opts   Options
	logger *slog.Logger
}

// New returns a parser. Empty marker, directive or field fall back to the
// defaults, as do nil reserved prefixes; an empty terminator is kept as
// "strip nothing".
func New(opts Options, logger *slog.Logger) *Parser {
	def := DefaultOptions()
	if opts.CommentMarker == "" {
		opts.CommentMarker = def.CommentMarker
	}
	if opts.ContextDirective == "" {
		opts.ContextDirective = def.ContextDirective
	}
	if opts.ContextField == "" {
		opts.ContextField = def.ContextField
	}
	if opts.ReservedPrefixes == nil {
		opts.ReservedPrefixes = def.ReservedPrefixes
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{opts: opts, logger: logger}
}

// ContextField returns the name of the field injected first in every record.
func (p *Parser) ContextField() string {
	return p.opts.ContextField
}

func (p *Parser) ParseFile(path string) (*Group, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, err
	}
	defer f.Close()

	g, stats, err := p.parse(f, p.logger.With("file", path))
	if err != nil {
		return nil, stats, fmt.Errorf("read %s: %w", path, err)
	}
	return g, stats, nil
}

// Parse reads r line by line. The context starts at the default value and is
// replaced by every directive line; malformed data lines are dropped and
// counted, never returned as errors.
func (p *Parser) Parse(r io.Reader) (*Group, Stats, error) {
	return p.parse(r, p.logger)
}

func (p *Parser) parse(r io.Reader, logger *slog.Logger) (*Group, Stats, error) {
	var stats Stats
	g := NewGroup()
	current := p.opts.DefaultContext

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		stats.Lines++
		line := scanner.Text()
		if lineNum == 1 {
			line = strings.TrimPrefix(line, utf8BOM)
		}

		if strings.HasPrefix(line, p.opts.CommentMarker) {
			stats.Comments++
			if v, ok := p.directiveValue(line); ok {
				stats.Directives++
				current = v
			}
			continue
		}

		if strings.TrimSpace(line) == "" {
			stats.Blank++
			continue
		}

		command, rec, err := p.DecodeLine(line, current)
		if err != nil {
			err.Line = lineNum
			stats.Dropped++
			logger.Debug("dropped line", "err", err)
			continue
		}
		g.Add(command, lineNum, rec)
		stats.Records++
	}

	return g, stats, scanner.Err()
}

// directiveValue extracts the context value from a "<directive>:<value>" line.
func (p *Parser) directiveValue(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, p.opts.ContextDirective+":")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// DecodeLine decodes one data line "<command>:<k>=<v>,<k>=<v>...<terminator>".
// The returned record starts with the context field holding context.
func (p *Parser) DecodeLine(line, context string) (string, Record, *DecodeError) {
	content := strings.TrimRightFunc(line, unicode.IsSpace)
	if p.opts.Terminator != "" {
		content = strings.TrimSuffix(content, p.opts.Terminator)
	}
	if strings.TrimSpace(content) == "" {
		return "", nil, &DecodeError{Reason: "empty line"}
	}

	command, body, ok := strings.Cut(content, ":")
	if !ok {
		return "", nil, &DecodeError{Reason: "missing colon"}
	}
	command = strings.TrimSpace(command)
	if command == "" {
		return "", nil, &DecodeError{Reason: "empty command name"}
	}
	lower := strings.ToLower(command)
	for _, prefix := range p.opts.ReservedPrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return "", nil, &DecodeError{Reason: fmt.Sprintf("reserved command name %q", command)}
		}
	}

	tokens := strings.Split(body, ",")
	rec := make(Record, 1, len(tokens)+1)
	rec[0] = Field{Name: p.opts.ContextField, Value: context}

	for _, tok := range tokens {
		name, value, ok := strings.Cut(tok, "=")
		if !ok {
			return "", nil, &DecodeError{Reason: fmt.Sprintf("token %q has no '='", strings.TrimSpace(tok))}
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return "", nil, &DecodeError{Reason: "empty field name"}
		}
		// the context field always carries the directive value
		if strings.EqualFold(name, p.opts.ContextField) {
			continue
		}
		rec = rec.set(name, strings.TrimSpace(value))
	}

	return command, rec, nil
}
