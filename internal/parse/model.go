package parse

import "fmt"

// Field is one name=value pair decoded from a data line.
type Field struct {
	Name  string
	Value string
}

// Record is the ordered field list of one data line. The context field is
// always at index 0.
type Record []Field

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Get returns the value of the named field.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// set replaces an existing field in place or appends a new one.
func (r Record) set(name, value string) Record {
	for i := range r {
		if r[i].Name == name {
			r[i].Value = value
			return r
		}
	}
	return append(r, Field{Name: name, Value: value})
}

// Group holds the records of one file keyed by MML command name.
type Group struct {
	order     []string
	records   map[string][]Record
	firstLine map[string]int
}

func NewGroup() *Group {
	return &Group{
		records:   make(map[string][]Record),
		firstLine: make(map[string]int),
	}
}

// Add appends rec to the sequence for command. line is the 1-based source
// line number.
func (g *Group) Add(command string, line int, rec Record) {
	if _, ok := g.records[command]; !ok {
		g.order = append(g.order, command)
		g.firstLine[command] = line
	}
	g.records[command] = append(g.records[command], rec)
}

// Commands returns command names in first-seen order.
func (g *Group) Commands() []string {
	return g.order
}

func (g *Group) Records(command string) []Record {
	return g.records[command]
}

// FirstLine returns the line number where command first appeared, or 0.
func (g *Group) FirstLine(command string) int {
	return g.firstLine[command]
}

// Len returns the total number of records across all commands.
func (g *Group) Len() int {
	n := 0
	for _, recs := range g.records {
		n += len(recs)
	}
	return n
}

// Stats counts what happened to each line of a file.
type Stats struct {
	Lines      int
	Blank      int
	Records    int
	Comments   int
	Directives int
	Dropped    int
}

func (s Stats) String() string {
	return fmt.Sprintf("lines=%d blank=%d records=%d comments=%d directives=%d dropped=%d",
		s.Lines, s.Blank, s.Records, s.Comments, s.Directives, s.Dropped)
}
