package frontmatter

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// SerializeYAML encodes fields as YAML without delimiters.
//
// Map keys are emitted in sorted order at every level, so equal maps always
// serialize to equal bytes. Newlines follow style (default "\n"). An empty map
// serializes to an empty slice.
func SerializeYAML(fields map[string]any, style Style) ([]byte, error) {
	if len(fields) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fields); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	out := buf.Bytes()
	if style.Newline != "" && style.Newline != "\n" {
		out = bytes.ReplaceAll(out, []byte("\n"), []byte(style.Newline))
	}
	return out, nil
}
