// Package feeds turns partner feed payloads into canonical product records.
//
// Three payload shapes are understood: a JSON document holding a list of
// offer objects, XML with repeated product elements and delimited text with
// a header row. Which source keys feed which canonical field is described by
// a Mapping, so provider differences live in data rather than code.
package feeds

import (
	"fmt"
	"strings"
)

// Format is the payload shape of a feed.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatCSV  Format = "csv"
)

// Provider identifies a feed source. Each provider has one payload format and
// a default field mapping.
type Provider string

const (
	ProviderLomadee Provider = "lomadee"
	ProviderAwin    Provider = "awin"
	ProviderCSV     Provider = "csv"
)

var providerFormats = map[Provider]Format{
	ProviderLomadee: FormatJSON,
	ProviderAwin:    FormatXML,
	ProviderCSV:     FormatCSV,
}

// Providers lists the supported providers.
func Providers() []Provider {
	return []Provider{ProviderLomadee, ProviderAwin, ProviderCSV}
}

// FormatOf returns the payload format a provider emits.
func FormatOf(p Provider) (Format, error) {
	f, ok := providerFormats[Provider(strings.ToLower(string(p)))]
	if !ok {
		return "", fmt.Errorf("unsupported feed provider %q", p)
	}
	return f, nil
}

// Record is one normalized feed entry.
type Record struct {
	// Index is the entry's zero-based position in the payload.
	Index         int      `json:"index"`
	ExternalID    string   `json:"external_id,omitempty"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	Image         string   `json:"image,omitempty"`
	URL           string   `json:"url"`
	Category      string   `json:"category,omitempty"`
	Brand         string   `json:"brand,omitempty"`
	Barcode       string   `json:"barcode,omitempty"`
	SKU           string   `json:"sku,omitempty"`
}

// EntryError describes an entry that could not be normalized.
type EntryError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func (e EntryError) Error() string {
	return fmt.Sprintf("entry %d: %s", e.Index, e.Reason)
}

// Batch is the outcome of parsing one payload. Records and Skipped are both
// in payload order.
type Batch struct {
	Records []Record     `json:"records"`
	Skipped []EntryError `json:"skipped"`
}

// Total is the number of entries seen in the payload.
func (b *Batch) Total() int {
	return len(b.Records) + len(b.Skipped)
}
