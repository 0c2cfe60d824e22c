package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializeYAML_EmptyMap_ReturnsEmpty(t *testing.T) {
	out, err := SerializeYAML(map[string]any{}, Style{})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestSerializeYAML_SortedAndStable(t *testing.T) {
	fields := map[string]any{
		"b": "two",
		"a": "one",
		"c": 3,
		"nested": map[string]any{
			"z": true,
			"m": "x",
		},
	}

	out1, err := SerializeYAML(fields, Style{Newline: "\n"})
	require.NoError(t, err)
	out2, err := SerializeYAML(fields, Style{Newline: "\n"})
	require.NoError(t, err)

	require.Equal(t, string(out1), string(out2))
	require.Equal(t, "a: one\nb: two\nc: 3\nnested:\n  m: x\n  z: true\n", string(out1))
}

func TestSerializeYAML_CRLF(t *testing.T) {
	out, err := SerializeYAML(map[string]any{"a": "one"}, Style{Newline: "\r\n"})
	require.NoError(t, err)
	require.Equal(t, "a: one\r\n", string(out))
}
