package feeds

import (
	"bytes"
	"fmt"

	"github.com/antchfx/xmlquery"
)

type xmlEntry struct {
	node *xmlquery.Node
}

func (e xmlEntry) lookup(key string) string {
	child := e.node.SelectElement(key)
	if child == nil {
		return ""
	}
	return child.InnerText()
}

// xmlEntries returns every element named by the first item name that matches
// anything in the document.
func xmlEntries(data []byte, items []string) ([]entry, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid XML feed: %w", err)
	}

	for _, item := range items {
		nodes, err := xmlquery.QueryAll(doc, "//"+item)
		if err != nil {
			return nil, fmt.Errorf("invalid XML item selector %q: %w", item, err)
		}
		if len(nodes) == 0 {
			continue
		}
		entries := make([]entry, len(nodes))
		for i, n := range nodes {
			entries[i] = xmlEntry{node: n}
		}
		return entries, nil
	}
	return nil, nil
}
