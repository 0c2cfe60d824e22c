package render

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// SummaryWords is the length of an automatic summary.
const SummaryWords = 70

// moreDivider marks the end of a manual summary in a markdown body.
const moreDivider = "<!--more-->"

// Summarize returns the first n words of the visible text in an HTML
// fragment. Script and style contents are skipped. Truncated summaries end
// with an ellipsis. A negative n keeps all of the text.
func Summarize(fragment []byte, n int) string {
	z := html.NewTokenizer(bytes.NewReader(fragment))
	var words []string
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed input; either way the text so far stands.
			return strings.Join(words, " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawText(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawText(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			for _, w := range strings.Fields(string(z.Text())) {
				if len(words) == n {
					return strings.Join(words, " ") + " …"
				}
				words = append(words, w)
			}
		}
	}
}

func isRawText(tag []byte) bool {
	s := string(tag)
	return s == "script" || s == "style"
}

// splitMore cuts a markdown body at the manual summary divider.
func splitMore(body []byte) (summary []byte, ok bool) {
	i := bytes.Index(body, []byte(moreDivider))
	if i < 0 {
		return nil, false
	}
	return body[:i], true
}
