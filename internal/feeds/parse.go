package feeds

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedFormat is returned by Parse for unknown payload formats.
var ErrUnsupportedFormat = errors.New("unsupported feed format")

// entry is one raw payload entry, addressed by source key.
type entry interface {
	lookup(key string) string
}

// Parse normalizes a whole payload. An error means the payload as a whole
// could not be read; entries that fail validation are reported in
// Batch.Skipped instead.
func Parse(format Format, data []byte, m Mapping) (*Batch, error) {
	var (
		entries []entry
		err     error
	)
	switch format {
	case FormatJSON:
		entries, err = jsonEntries(data, m.Items)
	case FormatXML:
		entries, err = xmlEntries(data, m.Items)
	case FormatCSV:
		entries, err = csvEntries(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	batch := &Batch{Records: make([]Record, 0, len(entries))}
	for i, e := range entries {
		rec, err := normalize(i, e, m)
		if err != nil {
			batch.Skipped = append(batch.Skipped, EntryError{Index: i, Reason: err.Error()})
			continue
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}

func normalize(index int, e entry, m Mapping) (Record, error) {
	get := func(f Field) string {
		for _, key := range m.Keys(f) {
			if v := strings.TrimSpace(e.lookup(key)); v != "" {
				return v
			}
		}
		return ""
	}

	rec := Record{
		Index:       index,
		ExternalID:  get(FieldExternalID),
		Name:        get(FieldName),
		Description: get(FieldDescription),
		Image:       get(FieldImage),
		URL:         get(FieldURL),
		Category:    get(FieldCategory),
		Brand:       get(FieldBrand),
		Barcode:     get(FieldBarcode),
		SKU:         get(FieldSKU),
	}

	if rec.Name == "" {
		return Record{}, errors.New("missing name")
	}
	if rec.URL == "" {
		return Record{}, errors.New("missing url")
	}

	raw := get(FieldPrice)
	if raw == "" {
		return Record{}, errors.New("missing price")
	}
	price, err := ParsePrice(raw)
	if err != nil {
		return Record{}, err
	}
	rec.Price = price

	// An unusable original price only loses the claim, not the entry.
	if raw := get(FieldOriginalPrice); raw != "" {
		if original, err := ParsePrice(raw); err == nil {
			rec.OriginalPrice = &original
		}
	}
	return rec, nil
}

// ParsePrice parses a positive price such as "1299.90", "1.299,90",
// "1,299.90" or "R$ 49,90" and rounds it to cents.
func ParsePrice(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", raw)
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return 0, fmt.Errorf("non-positive price %q", raw)
	}
	return d.InexactFloat64(), nil
}
