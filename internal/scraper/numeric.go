package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	intPattern          = regexp.MustCompile(`^-?\d+$`)
	commaDecimalPattern = regexp.MustCompile(`^-?\d+,\d+$`)
	dotDecimalPattern   = regexp.MustCompile(`^-?\d+\.\d+$`)
	whitespaceRuns      = regexp.MustCompile(`[\s\x{00a0}]+`)
	nonNumericResidue   = regexp.MustCompile(`[^0-9,.\-]`)
)

// CleanText collapses runs of whitespace (including non-breaking
// spaces) to a single ASCII space and trims the ends.
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " "))
}

// Coerce converts locale-formatted numeric strings to numbers. Integers
// become int64, comma- or dot-decimal values become float64, and
// anything else is returned unchanged. It never fails: extraction must
// preserve non-numeric cells as-is.
func Coerce(s string) any {
	trimmed := strings.TrimSpace(s)
	switch {
	case intPattern.MatchString(trimmed):
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return n
		}
	case commaDecimalPattern.MatchString(trimmed):
		if f, err := strconv.ParseFloat(strings.ReplaceAll(trimmed, ",", "."), 64); err == nil {
			return f
		}
	case dotDecimalPattern.MatchString(trimmed):
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
	}
	return s
}

// SafeFloat converts any extracted value to a float64, stripping
// thousands separators and non-numeric residue first, and falls back to
// def when nothing numeric remains. Used where a number is semantically
// required (aggregation), unlike Coerce which preserves strings.
func SafeFloat(value any, def float64) float64 {
	switch v := value.(type) {
	case nil:
		return def
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		return safeFloatString(v, def)
	default:
		return def
	}
}

func safeFloatString(s string, def float64) float64 {
	cleaned := nonNumericResidue.ReplaceAllString(strings.TrimSpace(s), "")
	if cleaned == "" || cleaned == "-" {
		return def
	}
	// Brazilian convention: "." is the thousands separator, "," the
	// decimal separator. "156.789,43" -> 156789.43.
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else if strings.Count(cleaned, ".") > 1 {
		// Multiple dots with no comma means pure thousands grouping.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return def
	}
	return f
}
