package parse

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, content string) (*Group, Stats) {
	t.Helper()
	p := New(DefaultOptions(), nil)
	g, stats, err := p.Parse(strings.NewReader(content))
	require.NoError(t, err)
	return g, stats
}

func TestParse_WellFormedLine(t *testing.T) {
	g, _ := parseString(t, "BTS:NAME=Cell1,TYPE=GSM;\n")

	require.Equal(t, []string{"BTS"}, g.Commands())
	recs := g.Records("BTS")
	require.Len(t, recs, 1)
	assert.Equal(t, Record{
		{Name: "SRNC", Value: "SRC"},
		{Name: "NAME", Value: "Cell1"},
		{Name: "TYPE", Value: "GSM"},
	}, recs[0])
}

func TestParse_ContextPropagation(t *testing.T) {
	content := strings.Join([]string{
		"//System BSCID:NODE1",
		"BTS:NAME=A;",
		"BTS:NAME=B;",
		"//System BSCID:NODE2",
		"BTS:NAME=C;",
	}, "\n") + "\n"

	g, stats := parseString(t, content)

	recs := g.Records("BTS")
	require.Len(t, recs, 3)
	var got []string
	for _, r := range recs {
		v, ok := r.Get("SRNC")
		require.True(t, ok)
		got = append(got, v)
	}
	assert.Equal(t, []string{"NODE1", "NODE1", "NODE2"}, got)
	assert.Equal(t, 2, stats.Directives)
}

func TestParse_MalformedLineIsolation(t *testing.T) {
	content := "BTS:NAME=A;\nno colon here;\nBTS:NAME=B;\n"

	g, stats := parseString(t, content)

	recs := g.Records("BTS")
	require.Len(t, recs, 2)
	a, _ := recs[0].Get("NAME")
	b, _ := recs[1].Get("NAME")
	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
	assert.Equal(t, 1, stats.Dropped)
}

func TestParse_NoDirectiveUsesDefault(t *testing.T) {
	g, _ := parseString(t, "A:X=1;\nB:Y=2;\nA:X=3;\n")

	for _, cmd := range g.Commands() {
		for _, r := range g.Records(cmd) {
			assert.Equal(t, Field{Name: "SRNC", Value: "SRC"}, r[0])
		}
	}
	assert.Equal(t, 3, g.Len())
}

func TestParse_EmptyInput(t *testing.T) {
	g, stats := parseString(t, "")
	assert.Empty(t, g.Commands())
	assert.Zero(t, g.Len())
	assert.Zero(t, stats.Lines)
}

func TestParse_DirectiveWithoutData(t *testing.T) {
	g, stats := parseString(t, "//System BSCID:LONELY\n// trailing comment\n")
	assert.Zero(t, g.Len())
	assert.Equal(t, 2, stats.Comments)
	assert.Equal(t, 1, stats.Directives)
}

func TestParse_LineEndings(t *testing.T) {
	lf, _ := parseString(t, "//System BSCID:N1\nBTS:NAME=Cell1,TYPE=GSM;\n")
	crlf, _ := parseString(t, "//System BSCID:N1\r\nBTS:NAME=Cell1,TYPE=GSM;\r\n")
	noEOL, _ := parseString(t, "//System BSCID:N1\nBTS:NAME=Cell1,TYPE=GSM;")

	assert.Equal(t, lf.Records("BTS"), crlf.Records("BTS"))
	assert.Equal(t, lf.Records("BTS"), noEOL.Records("BTS"))
}

func TestParse_MissingTerminatorKeepsLastCharacter(t *testing.T) {
	g, _ := parseString(t, "BTS:NAME=Cell1,TYPE=GSM\r\n")

	v, ok := g.Records("BTS")[0].Get("TYPE")
	require.True(t, ok)
	assert.Equal(t, "GSM", v)
}

func TestParse_ByteOrderMark(t *testing.T) {
	g, stats := parseString(t, "\ufeff//System BSCID:BOM\nBTS:NAME=A;\n")
	assert.Equal(t, 1, stats.Directives)
	v, _ := g.Records("BTS")[0].Get("SRNC")
	assert.Equal(t, "BOM", v)
}

func TestParse_CustomOptions(t *testing.T) {
	p := New(Options{
		CommentMarker:    "#",
		ContextDirective: "#NE",
		ContextField:     "NE",
		DefaultContext:   "NONE",
		Terminator:       "",
	}, nil)

	g, _, err := p.Parse(strings.NewReader("BTS:NAME=A;\n#NE: RNC7\nBTS:NAME=B\n"))
	require.NoError(t, err)

	recs := g.Records("BTS")
	require.Len(t, recs, 2)
	assert.Equal(t, Record{{Name: "NE", Value: "NONE"}, {Name: "NAME", Value: "A;"}}, recs[0])
	assert.Equal(t, Record{{Name: "NE", Value: "RNC7"}, {Name: "NAME", Value: "B"}}, recs[1])
	assert.Equal(t, "NE", p.ContextField())
}

func TestDecodeLine(t *testing.T) {
	p := New(DefaultOptions(), nil)

	tests := []struct {
		name       string
		line       string
		wantCmd    string
		wantFields []string
		wantReason string
	}{
		{"simple", "BTS:NAME=A,TYPE=B;", "BTS", []string{"SRNC=CTX", "NAME=A", "TYPE=B"}, ""},
		{"spaces trimmed", " ADD BTS : NAME = A , TYPE= B ;", "ADD BTS", []string{"SRNC=CTX", "NAME=A", "TYPE=B"}, ""},
		{"value keeps later equals", "X:EXPR=a=b;", "X", []string{"SRNC=CTX", "EXPR=a=b"}, ""},
		{"empty value", "X:A=;", "X", []string{"SRNC=CTX", "A="}, ""},
		{"context field overridden", "X:SRNC=spoof,A=1;", "X", []string{"SRNC=CTX", "A=1"}, ""},
		{"context field any case", "X:srnc=spoof,A=1;", "X", []string{"SRNC=CTX", "A=1"}, ""},
		{"duplicate keeps first position", "X:A=1,B=2,A=3;", "X", []string{"SRNC=CTX", "A=3", "B=2"}, ""},
		{"missing colon", "BTS NAME=A;", "", nil, "missing colon"},
		{"empty command", ":A=1;", "", nil, "empty command name"},
		{"token without equals", "BTS:NAME=A,BROKEN;", "", nil, `token "BROKEN" has no '='`},
		{"empty body", "BTS:;", "", nil, `token "" has no '='`},
		{"empty field name", "BTS:=A;", "", nil, "empty field name"},
		{"terminator only", ";", "", nil, "empty line"},
		{"bookkeeping name", "_cfgmml_runs:RUN_ID=x;", "", nil, `reserved command name "_cfgmml_runs"`},
		{"sqlite name any case", "SQLite_Master:A=1;", "", nil, `reserved command name "SQLite_Master"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, rec, err := p.DecodeLine(tt.line, "CTX")
			if tt.wantReason != "" {
				require.NotNil(t, err)
				assert.Equal(t, tt.wantReason, err.Reason)
				assert.Nil(t, rec)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, tt.wantCmd, cmd)
			var got []string
			for _, f := range rec {
				got = append(got, f.Name+"="+f.Value)
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}

func TestParse_ReservedCommandsDropped(t *testing.T) {
	g, stats := parseString(t, "_CFGMML_FILES:PATH=x;\nBTS:NAME=A;\n")
	assert.Equal(t, []string{"BTS"}, g.Commands())
	assert.Equal(t, 1, stats.Dropped)

	// an explicit empty list turns the check off
	p := New(Options{ReservedPrefixes: []string{}}, nil)
	cmd, _, err := p.DecodeLine("_cfgmml_x:A=1;", "CTX")
	require.Nil(t, err)
	assert.Equal(t, "_cfgmml_x", cmd)
}

func TestDecodeError_Error(t *testing.T) {
	assert.Equal(t, "missing colon", (&DecodeError{Reason: "missing colon"}).Error())
	assert.Equal(t, "line 4: missing colon", (&DecodeError{Line: 4, Reason: "missing colon"}).Error())
}

func TestParseFile_Golden(t *testing.T) {
	p := New(DefaultOptions(), nil)
	g, stats, err := p.ParseFile(filepath.Join("testdata", "CFGMML-BSC01.txt"))
	require.NoError(t, err)

	gold := goldie.New(t)
	gold.Assert(t, "sample", []byte(dumpGroup(g, stats)))
}

func TestParseFile_Missing(t *testing.T) {
	p := New(DefaultOptions(), nil)
	_, _, err := p.ParseFile(filepath.Join(t.TempDir(), "CFGMML-none.txt"))
	assert.Error(t, err)
}

func dumpGroup(g *Group, stats Stats) string {
	var b strings.Builder
	for _, cmd := range g.Commands() {
		fmt.Fprintf(&b, "[%s] first_line=%d\n", cmd, g.FirstLine(cmd))
		for _, rec := range g.Records(cmd) {
			parts := make([]string, len(rec))
			for i, f := range rec {
				parts[i] = f.Name + "=" + f.Value
			}
			fmt.Fprintf(&b, "  %s\n", strings.Join(parts, " | "))
		}
	}
	fmt.Fprintf(&b, "stats: %s\n", stats)
	return b.String()
}
