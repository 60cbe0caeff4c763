package parser

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// recordMarker precedes every record in the bucket's listing text.
const recordMarker = `{"idExterne":`

var (
	leadingString = regexp.MustCompile(`^\s*"((?:[^"\\]|\\.)*)"`)
	leadingNumber = regexp.MustCompile(`^\s*(-?\d+)`)
	sizeField     = regexp.MustCompile(`"size"\s*:\s*"?(\d+)`)
	stringFields  = map[string]*regexp.Regexp{}
)

func init() {
	for _, k := range []string{"id", "url", "tag1", "tag2", "tag3", "description"} {
		stringFields[k] = regexp.MustCompile(`"` + k + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	}
}

// scan splits s on recordMarker and extracts each known field from every
// chunk independently. A field that cannot be found stays empty.
func scan(s string) []Entry {
	chunks := strings.Split(s, recordMarker)
	entries := make([]Entry, 0, len(chunks))
	for _, chunk := range chunks[1:] {
		e := Entry{
			ExternalID:  leadingValue(chunk),
			ID:          field(chunk, "id"),
			URL:         field(chunk, "url"),
			Tag1:        field(chunk, "tag1"),
			Tag2:        field(chunk, "tag2"),
			Tag3:        field(chunk, "tag3"),
			Description: field(chunk, "description"),
		}
		if m := sizeField.FindStringSubmatch(chunk); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil && n > 0 {
				e.Size = n
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// leadingValue reads the external id right after the marker. It is usually
// a string but numeric ids are also seen.
func leadingValue(chunk string) string {
	if m := leadingString.FindStringSubmatch(chunk); m != nil {
		return unquote(m[1])
	}
	if m := leadingNumber.FindStringSubmatch(chunk); m != nil {
		return m[1]
	}
	return ""
}

func field(chunk, key string) string {
	m := stringFields[key].FindStringSubmatch(chunk)
	if m == nil {
		return ""
	}
	return unquote(m[1])
}

// unquote resolves JSON escapes so scanned values compare equal to decoded
// ones. Broken escapes leave the raw text.
func unquote(raw string) string {
	var s string
	if err := json.Unmarshal([]byte(`"`+raw+`"`), &s); err != nil {
		return raw
	}
	return s
}
