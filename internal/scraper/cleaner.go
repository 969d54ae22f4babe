package scraper

import (
	"regexp"
	"strings"
)

var (
	navGlyphPattern = regexp.MustCompile(`[«‹›»]`)
	// Field names whose empty values should read as zero, not null.
	numericFieldHint = regexp.MustCompile(`(?i)quantidade|valor|total|peso|ano`)
	// A bare quantity field shadowed by its unit-qualified sibling,
	// e.g. "Quantidade" next to "Quantidade (L.)".
	qualifiedQuantityPattern = regexp.MustCompile(`^Quantidade \(.+\)$`)
)

// CleanRecords removes pagination controls that were misparsed as data
// rows and normalizes what remains. The pass is idempotent: cleaning a
// cleaned slice is a no-op.
func CleanRecords(records []DataRecord) []DataRecord {
	cleaned := make([]DataRecord, 0, len(records))
	for _, record := range records {
		if isNavigationRecord(record) {
			continue
		}
		cleaned = append(cleaned, cleanRecord(record))
	}
	return cleaned
}

// isNavigationRecord spots pagination rows: the full arrow sequence in
// any field marks the row as a misparsed pager control. Isolated arrows
// are handled by cleanRecord instead, since they can sit next to real
// data.
func isNavigationRecord(record DataRecord) bool {
	for _, value := range record {
		if s, ok := value.(string); ok && strings.Contains(s, navGlyphs) {
			return true
		}
	}
	return false
}

func cleanRecord(record DataRecord) DataRecord {
	result := make(DataRecord, len(record))
	for key, value := range record {
		if s, ok := value.(string); ok {
			stripped := CleanText(navGlyphPattern.ReplaceAllString(s, ""))
			if stripped == "" {
				if numericFieldHint.MatchString(key) {
					result[key] = int64(0)
				} else {
					result[key] = nil
				}
				continue
			}
			result[key] = stripped
			continue
		}
		result[key] = value
	}
	dropShadowedQuantity(result)
	return result
}

// dropShadowedQuantity resolves the duplicate-quantity artifact where
// the page emits both "Quantidade" and "Quantidade (L.)" for one row.
// The unit-qualified field is authoritative.
func dropShadowedQuantity(record DataRecord) {
	if _, bare := record["Quantidade"]; !bare {
		return
	}
	for key := range record {
		if qualifiedQuantityPattern.MatchString(key) {
			delete(record, "Quantidade")
			return
		}
	}
}
