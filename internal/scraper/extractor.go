package scraper

import (
	"fmt"
	"strings"
	"unicode"
)

// ExtractRecords converts a raw table into uniform records. The first
// row supplies field names; later rows are zipped to them positionally.
// Rows whose width differs from the header by more than 2x in either
// direction are discarded as structurally unrelated (stray separator or
// ad rows). Surplus cells get synthetic names, missing trailing cells
// become nil.
func ExtractRecords(table RawTable) []DataRecord {
	if len(table.Rows) < 2 {
		return nil
	}

	headers := normalizeHeaders(table.Rows[0])
	var records []DataRecord

	for _, row := range table.Rows[1:] {
		if !widthCompatible(len(row), len(headers)) {
			continue
		}
		record := make(DataRecord, len(headers))
		for i, cell := range row {
			name := headerName(headers, i)
			value := CleanText(cell)
			if value == "" {
				record[name] = nil
				continue
			}
			record[name] = Coerce(value)
		}
		for i := len(row); i < len(headers); i++ {
			record[headers[i]] = nil
		}
		if recordEmpty(record) {
			continue
		}
		records = append(records, record)
	}
	return records
}

// widthCompatible tolerates ragged rows but rejects rows wildly wider
// or narrower than the header. The 2x threshold is a carried-over
// heuristic; tune with care.
func widthCompatible(cells, headers int) bool {
	if cells == 0 || headers == 0 {
		return false
	}
	return cells <= headers*2 && headers <= cells*2
}

func normalizeHeaders(cells []string) []string {
	headers := make([]string, len(cells))
	for i, cell := range cells {
		name := titleCase(CleanText(cell))
		if name == "" {
			name = fmt.Sprintf("Coluna_%d", i+1)
		}
		headers[i] = name
	}
	return headers
}

func headerName(headers []string, i int) string {
	if i < len(headers) {
		return headers[i]
	}
	return fmt.Sprintf("Coluna_Extra_%d", i-len(headers)+1)
}

// titleCase upper-cases the first letter of each space-separated word,
// keeping the rest of the word as-is so unit suffixes like "(L.)"
// survive. Headers vary in casing page to page; this makes them stable.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func recordEmpty(record DataRecord) bool {
	for _, v := range record {
		switch value := v.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(value) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}
