package content

import (
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/inful/mdfp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/frontmatter"
)

// ParseOptions control how front matter values are interpreted.
type ParseOptions struct {
	// Location applies to dates written without a zone. Defaults to UTC.
	Location *time.Location
}

// Keys that never contribute to the fingerprint.
const lastmodField = "lastmod"

var (
	dateKeys    = []string{"date"}
	publishKeys = []string{"publishdate", "pubdate"}
	expiryKeys  = []string{"expirydate", "unpublishdate"}

	recognized = map[string]struct{}{
		"title": {}, "date": {}, "publishdate": {}, "pubdate": {}, "expirydate": {},
		"unpublishdate": {}, "draft": {}, "categories": {}, "tags": {},
	}
)

// Parse builds a Document from a file's bytes. docPath is the slash-separated
// path relative to the content directory.
func Parse(docPath string, data []byte, opts ParseOptions) (*Document, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	fields, block, err := frontmatter.Parse(data)
	if err != nil {
		return nil, errors.ContentError("invalid front matter").
			WithCause(err).
			WithContext("document", docPath).
			Build()
	}

	lower := make(map[string]any, len(fields))
	doc := &Document{
		Path:   docPath,
		Format: block.Format,
		Body:   block.Body,
		Params: make(map[string]any),
	}
	if block.Had() {
		for _, k := range orderedKeys(fields) {
			v := fields[k]
			lk := strings.ToLower(k)
			if _, ok := recognized[lk]; ok {
				if _, dup := lower[lk]; !dup {
					lower[lk] = v
				}
				continue
			}
			doc.Params[k] = v
		}
	}

	fail := func(field string, cause error) error {
		return errors.ContentError("invalid front matter value").
			WithCause(cause).
			WithContext("document", docPath).
			WithContext("field", field).
			Build()
	}

	if doc.Date, err = firstTime(lower, dateKeys, loc); err != nil {
		return nil, fail("date", err)
	}
	if doc.PublishDate, err = firstTime(lower, publishKeys, loc); err != nil {
		return nil, fail("publishDate", err)
	}
	if doc.ExpiryDate, err = firstTime(lower, expiryKeys, loc); err != nil {
		return nil, fail("expiryDate", err)
	}
	if doc.Draft, err = parseBool(lower["draft"]); err != nil {
		return nil, fail("draft", err)
	}
	doc.Categories = parseLabels(lower["categories"])
	doc.Tags = parseLabels(lower["tags"])

	if title, ok := lower["title"].(string); ok && strings.TrimSpace(title) != "" {
		doc.Title = strings.TrimSpace(title)
	} else {
		doc.Title = titleFromPath(docPath)
	}

	if doc.Fingerprint, err = Fingerprint(fields, block.Body); err != nil {
		return nil, fail("fingerprint", err)
	}
	return doc, nil
}

// Fingerprint hashes the front matter and body, ignoring fields that tooling
// rewrites (the fingerprint itself and lastmod).
func Fingerprint(fields map[string]any, body []byte) (string, error) {
	hashed := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == mdfp.FingerprintField || strings.EqualFold(k, lastmodField) {
			continue
		}
		hashed[k] = v
	}
	serialized, err := frontmatter.SerializeYAML(hashed, frontmatter.Style{Newline: "\n"})
	if err != nil {
		return "", err
	}
	fm := strings.TrimSuffix(string(serialized), "\n")
	return mdfp.CalculateFingerprintFromParts(fm, string(body)), nil
}

// orderedKeys sorts keys so that, among keys equal ignoring case, the
// lower-case spelling wins, then the rest in byte order.
func orderedKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
		aLower, bLower := a == strings.ToLower(a), b == strings.ToLower(b)
		switch {
		case aLower && !bLower:
			return -1
		case bLower && !aLower:
			return 1
		}
		return strings.Compare(a, b)
	})
	return keys
}

func firstTime(fields map[string]any, keys []string, loc *time.Location) (time.Time, error) {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			return ParseTime(v, loc)
		}
	}
	return time.Time{}, nil
}

// Layouts tried, in order, for string dates.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05-0700",
		"2006-01-02 15:04:05 -0700",
		"2006-01-02 15:04:05Z07:00",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// ParseTime interprets a front matter date value. Strings and times without a
// zone are placed in loc. A nil value or an empty string is the zero time.
func ParseTime(v any, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		switch t.Location().String() {
		case "datetime-local", "date-local":
			// TOML local date-times carry a placeholder zone.
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
		}
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range zonedLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		for _, layout := range localLayouts {
			if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", v)
	}
}

func parseBool(v any) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	case string:
		if strings.TrimSpace(b) == "" {
			return false, nil
		}
		return strconv.ParseBool(strings.TrimSpace(b))
	default:
		return false, fmt.Errorf("unsupported boolean type %T", v)
	}
}

// parseLabels accepts a list or a single string and returns trimmed, non-empty,
// de-duplicated labels in first-seen order.
func parseLabels(v any) []string {
	var raw []string
	switch l := v.(type) {
	case string:
		raw = []string{l}
	case []string:
		raw = l
	case []any:
		for _, item := range l {
			if item != nil {
				raw = append(raw, fmt.Sprint(item))
			}
		}
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, label := range raw {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func titleFromPath(docPath string) string {
	name := strings.TrimSuffix(path.Base(docPath), path.Ext(docPath))
	if name == "index" || name == "_index" {
		if dir := path.Base(path.Dir(docPath)); dir != "." && dir != "/" {
			name = dir
		}
	}
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	// Casers keep state; one per call keeps Parse safe for concurrent use.
	return cases.Title(language.English).String(strings.TrimSpace(name))
}
