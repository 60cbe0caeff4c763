package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// listKey is the field of the search response that holds the records.
const listKey = "studentUploadReadingDTOS"

var errNoList = errors.New("response has no record list")

// decodeStructured accepts either {"studentUploadReadingDTOS":[...]} or a
// bare top-level array. Elements that are not objects are skipped.
func decodeStructured(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}

	var items []any
	switch v := root.(type) {
	case []any:
		items = v
	case map[string]any:
		list, ok := v[listKey].([]any)
		if !ok {
			return nil, errNoList
		}
		items = list
	default:
		return nil, errNoList
	}

	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, entryFromObject(obj))
	}
	return entries, nil
}

func entryFromObject(obj map[string]any) Entry {
	e := Entry{
		ID:          text(obj["id"]),
		ExternalID:  text(obj["idExterne"]),
		URL:         text(obj["url"]),
		Tag1:        text(obj["tag1"]),
		Tag2:        text(obj["tag2"]),
		Tag3:        text(obj["tag3"]),
		Description: text(obj["description"]),
	}
	if n, err := strconv.ParseInt(text(obj["size"]), 10, 64); err == nil && n > 0 {
		e.Size = n
	}
	return e
}

// text renders a scalar JSON value as a string; objects and arrays are
// rendered as compact JSON and null as "".
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
