package feeds

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

type csvEntry map[string]string

func (e csvEntry) lookup(key string) string {
	return e[key]
}

// csvEntries reads comma separated rows keyed by the header row. Short rows
// leave their trailing columns empty.
func csvEntries(data []byte) ([]entry, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("invalid CSV feed: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("invalid CSV feed: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var entries []entry
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid CSV feed: %w", err)
		}

		e := make(csvEntry, len(header))
		for i, col := range header {
			if i < len(row) {
				e[col] = row[i]
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}
