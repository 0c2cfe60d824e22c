package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	b, err := Split(input)
	require.NoError(t, err)
	require.False(t, b.Had())
	require.Empty(t, b.Raw)
	require.Equal(t, input, b.Body)
}

func TestSplit_YAML(t *testing.T) {
	b, err := Split([]byte("---\ntitle: Hello\ndraft: true\n---\n# Title\n"))
	require.NoError(t, err)
	require.Equal(t, FormatYAML, b.Format)
	require.Equal(t, "title: Hello\ndraft: true\n", string(b.Raw))
	require.Equal(t, "# Title\n", string(b.Body))
}

func TestSplit_TOML(t *testing.T) {
	b, err := Split([]byte("+++\ntitle = \"Hello\"\n+++\nBody\n"))
	require.NoError(t, err)
	require.Equal(t, FormatTOML, b.Format)
	require.Equal(t, "title = \"Hello\"\n", string(b.Raw))
	require.Equal(t, "Body\n", string(b.Body))
}

func TestSplit_JSON(t *testing.T) {
	b, err := Split([]byte("{\"title\": \"Hello\", \"tags\": [\"go\"]}\nBody text\n"))
	require.NoError(t, err)
	require.Equal(t, FormatJSON, b.Format)
	require.JSONEq(t, `{"title":"Hello","tags":["go"]}`, string(b.Raw))
	require.Equal(t, "Body text\n", string(b.Body))
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	b, err := Split([]byte("---\nkey: value\n# Title\n"))
	require.ErrorIs(t, err, ErrMissingClosingDelimiter)
	require.False(t, b.Had())
}

func TestSplit_CRLF(t *testing.T) {
	b, err := Split([]byte("---\r\nkey: value\r\n---\r\n# Title\r\n"))
	require.NoError(t, err)
	require.Equal(t, "\r\n", b.Style.Newline)
	require.Equal(t, "key: value\r\n", string(b.Raw))
	require.Equal(t, "# Title\r\n", string(b.Body))
}

func TestSplit_EmptyBlock(t *testing.T) {
	b, err := Split([]byte("---\n---\n# Title\n"))
	require.NoError(t, err)
	require.True(t, b.Had())
	require.Empty(t, b.Raw)
	require.Equal(t, "# Title\n", string(b.Body))
}

func TestSplit_ClosingDelimiterAtEOF(t *testing.T) {
	b, err := Split([]byte("---\ntitle: Only metadata\n---"))
	require.NoError(t, err)
	require.Equal(t, "title: Only metadata\n", string(b.Raw))
	require.Empty(t, b.Body)
}

func TestSplit_StripsByteOrderMark(t *testing.T) {
	b, err := Split(append([]byte{0xEF, 0xBB, 0xBF}, []byte("---\na: 1\n---\nx\n")...))
	require.NoError(t, err)
	require.Equal(t, FormatYAML, b.Format)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]any
	}{
		{"yaml", "---\ntitle: A\ndraft: true\ntags: [go, web]\n---\n", map[string]any{"title": "A", "draft": true, "tags": []any{"go", "web"}}},
		{"toml", "+++\ntitle = \"A\"\ndraft = true\ntags = [\"go\"]\n+++\n", map[string]any{"title": "A", "draft": true, "tags": []any{"go"}}},
		{"json", "{\"title\": \"A\", \"draft\": false}\n", map[string]any{"title": "A", "draft": false}},
		{"none", "plain body\n", map[string]any{}},
		{"empty", "---\n---\n", map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, _, err := Parse([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, fields)
		})
	}
}

func TestDecode_InvalidYAML_ReturnsError(t *testing.T) {
	_, _, err := Parse([]byte("---\ntitle: [unterminated\n---\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode yaml front matter")
}

func TestDecode_YAMLTimestampKeepsSourceText(t *testing.T) {
	fields, _, err := Parse([]byte("---\ndate: 2024-01-01\n---\n"))
	require.NoError(t, err)
	require.Equal(t, "2024-01-01", fields["date"])
}

func TestDecode_YAMLNonMappingIsError(t *testing.T) {
	_, _, err := Parse([]byte("---\n- a\n- b\n---\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "must be a mapping")
}

func TestDecode_YAMLAliases(t *testing.T) {
	fields, _, err := Parse([]byte("---\nbase: &b [go]\ntags: *b\n---\n"))
	require.NoError(t, err)
	require.Equal(t, []any{"go"}, fields["tags"])
}
