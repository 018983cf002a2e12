package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blobify/blobify-lang/internal/blobify/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		line string
		want domain.LineKind
	}{
		{"empty", "", domain.LineBlank},
		{"whitespace only", "   \t ", domain.LineBlank},
		{"comment", "# exclude build output", domain.LineComment},
		{"indented comment", "   # note", domain.LineComment},
		{"instruction", "## summarize the repository", domain.LineInstruction},
		{"instruction without space", "##x", domain.LineInstruction},
		{"context", "[docs]", domain.LineContextHeader},
		{"context with parents", "[all:docs,code]", domain.LineContextHeader},
		{"empty brackets", "[]", domain.LineContextHeader},
		{"unclosed bracket", "[docs", domain.LineInvalid},
		{"filter csv", `@filter="fn","^def","*.py"`, domain.LineFilterOption},
		{"filter legacy", "@filter=fn:^def", domain.LineFilterOption},
		{"option switch", "@debug", domain.LineOption},
		{"option value", "@output-file=out.txt", domain.LineOption},
		{"malformed option", "@bad option", domain.LineOption},
		{"include", "+*.py", domain.LinePattern},
		{"exclude", "-node_modules/", domain.LinePattern},
		{"bare sign", "+", domain.LinePattern},
		{"plain text", "src/**", domain.LineInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.line))
		})
	}
}

func TestParseLine_Header(t *testing.T) {
	tests := []struct {
		line          string
		name          string
		parents       []string
		hasParentList bool
	}{
		{"[docs]", "docs", nil, false},
		{"[ docs ]", "docs", nil, false},
		{"[b:a]", "b", []string{"a"}, true},
		{"[c: a , b ]", "c", []string{"a", "b"}, true},
		{"[c:a,,b,]", "c", []string{"a", "b"}, true},
		{"[c:]", "c", nil, true},
		{"[:a]", "", []string{"a"}, true},
		{"[a:b:c]", "a", []string{"b:c"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			l := ParseLine(3, tt.line)
			require.Equal(t, domain.LineContextHeader, l.Kind)
			require.NotNil(t, l.Header)
			assert.Equal(t, 3, l.Number)
			assert.Equal(t, tt.name, l.Header.Name)
			assert.Equal(t, tt.parents, l.Header.Parents)
			assert.Equal(t, tt.hasParentList, l.Header.HasParentList)
		})
	}
}

func TestParseLine_Option(t *testing.T) {
	tests := []struct {
		line     string
		valid    bool
		name     string
		value    string
		hasValue bool
	}{
		{"@debug", true, "debug", "", false},
		{"@output-file=out/report.txt", true, "output-file", "out/report.txt", true},
		{"@list_patterns=none", true, "list_patterns", "none", true},
		{"@x=", true, "x", "", true},
		{"@opt=a=b", true, "opt", "a=b", true},
		{"@", false, "", "", false},
		{"@has space", false, "has space", "", false},
		{"@=value", false, "=value", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			l := ParseLine(0, tt.line)
			require.Equal(t, domain.LineOption, l.Kind)
			require.NotNil(t, l.Option)
			assert.Equal(t, tt.valid, l.Option.Valid)
			assert.Equal(t, tt.name, l.Option.Name)
			assert.Equal(t, tt.value, l.Option.Value)
			assert.Equal(t, tt.hasValue, l.Option.HasValue)
		})
	}
}

func TestParseLine_Pattern(t *testing.T) {
	l := ParseLine(0, "+ src/**/*.go ")
	require.NotNil(t, l.Pattern)
	assert.True(t, l.Pattern.Include)
	assert.Equal(t, "src/**/*.go", l.Pattern.Text)

	l = ParseLine(0, "-vendor/")
	require.NotNil(t, l.Pattern)
	assert.False(t, l.Pattern.Include)
	assert.Equal(t, "vendor/", l.Pattern.Text)

	l = ParseLine(0, "-   ")
	require.NotNil(t, l.Pattern)
	assert.Empty(t, l.Pattern.Text)
}

func TestParseLine_FilterContent(t *testing.T) {
	l := ParseLine(0, `  @filter="fn","^def"  `)
	assert.Equal(t, domain.LineFilterOption, l.Kind)
	assert.Equal(t, `"fn","^def"`, l.Filter)
}

func TestParseDocument(t *testing.T) {
	lines := ParseDocument("[a]\r\n+*.go\n\n# done")
	require.Len(t, lines, 4)
	assert.Equal(t, "[a]", lines[0].Raw)
	assert.Equal(t, domain.LineContextHeader, lines[0].Kind)
	assert.Equal(t, domain.LinePattern, lines[1].Kind)
	assert.Equal(t, domain.LineBlank, lines[2].Kind)
	assert.Equal(t, domain.LineComment, lines[3].Kind)
	for i, l := range lines {
		assert.Equal(t, i, l.Number)
	}
}
