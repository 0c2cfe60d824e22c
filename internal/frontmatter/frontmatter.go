// Package frontmatter separates a Markdown document's metadata block from its body.
//
// Three encodings are recognized, matching the conventions of Hugo content files:
// YAML between "---" lines, TOML between "+++" lines, and a JSON object at the very
// start of the file.
package frontmatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Format identifies the encoding of a front matter block.
type Format string

const (
	FormatNone Format = ""
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// Style captures the newline shape of the source document.
type Style struct {
	Newline            string
	HasTrailingNewline bool
}

// Block is a document split into its raw front matter and its body.
type Block struct {
	Format Format
	Raw    []byte // front matter without delimiters
	Body   []byte
	Style  Style
}

// Had reports whether the document carried a front matter block at all.
func (b Block) Had() bool { return b.Format != FormatNone }

var (
	// ErrMissingClosingDelimiter is returned when an opening delimiter has no partner.
	ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

// Split detects and separates the front matter block.
//
// A document without front matter yields a Block with FormatNone and the full
// input (minus a UTF-8 byte order mark) as Body.
func Split(content []byte) (Block, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	style := detectStyle(content)

	switch {
	case hasDelimiterLine(content, "---", style.Newline):
		return splitDelimited(content, "---", FormatYAML, style)
	case hasDelimiterLine(content, "+++", style.Newline):
		return splitDelimited(content, "+++", FormatTOML, style)
	case len(content) > 0 && content[0] == '{':
		return splitJSON(content, style)
	default:
		return Block{Body: content, Style: style}, nil
	}
}

// Decode parses the raw front matter into a field map. A block without front
// matter, or with an empty one, decodes to an empty non-nil map.
func Decode(b Block) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(b.Raw)) == 0 {
		return fields, nil
	}

	var err error
	switch b.Format {
	case FormatYAML:
		fields, err = decodeYAML(b.Raw)
	case FormatTOML:
		err = toml.Unmarshal(b.Raw, &fields)
	case FormatJSON:
		err = json.Unmarshal(b.Raw, &fields)
	case FormatNone:
		return fields, nil
	default:
		return nil, fmt.Errorf("unknown front matter format %q", b.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s front matter: %w", b.Format, err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Parse splits and decodes in one step.
func Parse(content []byte) (map[string]any, Block, error) {
	b, err := Split(content)
	if err != nil {
		return nil, b, err
	}
	fields, err := Decode(b)
	if err != nil {
		return nil, b, err
	}
	return fields, b, nil
}

func hasDelimiterLine(content []byte, delim, nl string) bool {
	return bytes.HasPrefix(content, []byte(delim+nl))
}

func splitDelimited(content []byte, delim string, format Format, style Style) (Block, error) {
	nl := style.Newline
	start := len(delim) + len(nl)

	// Empty block: the closing delimiter follows immediately.
	if rest := content[start:]; bytes.HasPrefix(rest, []byte(delim+nl)) || bytes.Equal(rest, []byte(delim)) {
		return Block{Format: format, Raw: []byte{}, Body: trimPrefixLen(rest, len(delim)+len(nl)), Style: style}, nil
	}

	closing := []byte(nl + delim + nl)
	idx := bytes.Index(content[start:], closing)
	if idx < 0 {
		// A closing delimiter on the last line without a newline still counts.
		eof := []byte(nl + delim)
		if bytes.HasSuffix(content[start:], eof) {
			end := len(content) - len(eof)
			return Block{Format: format, Raw: content[start : end+len(nl)], Body: []byte{}, Style: style}, nil
		}
		return Block{Body: content, Style: style}, ErrMissingClosingDelimiter
	}

	rawEnd := start + idx + len(nl)
	bodyStart := start + idx + len(closing)
	return Block{Format: format, Raw: content[start:rawEnd], Body: content[bodyStart:], Style: style}, nil
}

func splitJSON(content []byte, style Style) (Block, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return Block{Body: content, Style: style}, fmt.Errorf("decode json front matter: %w", err)
	}
	end := int(dec.InputOffset())
	body := content[end:]
	body = bytes.TrimPrefix(body, []byte(style.Newline))
	return Block{Format: FormatJSON, Raw: []byte(raw), Body: body, Style: style}, nil
}

func trimPrefixLen(b []byte, n int) []byte {
	if len(b) < n {
		return b[len(b):]
	}
	return b[n:]
}

func detectStyle(content []byte) Style {
	nl := "\n"
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		nl = "\r\n"
	}
	return Style{
		Newline:            nl,
		HasTrailingNewline: len(content) > 0 && content[len(content)-1] == '\n',
	}
}
