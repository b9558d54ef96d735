package feeds

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type jsonEntry map[string]any

func (e jsonEntry) lookup(key string) string {
	var cur any = map[string]any(e)
	for _, part := range strings.Split(key, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = obj[part]
	}

	switch v := cur.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// jsonEntries accepts a top-level array of offers or an object holding the
// offers under the first present key of items. An object without any of
// those keys is rejected.
func jsonEntries(data []byte, items []string) ([]entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON feed: %w", err)
	}

	var list []any
	switch v := doc.(type) {
	case []any:
		list = v
	case map[string]any:
		found := false
		for _, key := range items {
			if l, ok := v[key].([]any); ok {
				list, found = l, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("invalid JSON feed: no offer list under %s", strings.Join(items, ", "))
		}
	default:
		return nil, fmt.Errorf("invalid JSON feed: unexpected top-level %T", doc)
	}

	entries := make([]entry, 0, len(list))
	for _, item := range list {
		obj, _ := item.(map[string]any)
		entries = append(entries, jsonEntry(obj))
	}
	return entries, nil
}
