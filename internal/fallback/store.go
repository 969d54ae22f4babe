// Package fallback reads the local CSV snapshots served when live
// extraction from the VitiBrasil site fails.
package fallback

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vitibrasil/vitibrasil-api/internal/metrics"
	"github.com/vitibrasil/vitibrasil-api/internal/scraper"
)

// Snapshot files use the Brazilian CSV convention: ";" delimiter, "."
// thousands separator, "," decimal separator.
const delimiter = ';'

var quantityFieldHint = regexp.MustCompile(`(?i)quantidade|valor|peso`)

// Store resolves deterministic snapshot paths under a base directory:
// {base}/{category}/{year|all}.csv for category files and
// {base}/{category}_{subcategory}.csv for sub-category files. Files are
// written by an offline update process and treated as immutable
// snapshots per request.
type Store struct {
	baseDir string
	logger  *zap.Logger
}

// NewStore builds a Store rooted at baseDir.
func NewStore(baseDir string, logger *zap.Logger) *Store {
	return &Store{baseDir: baseDir, logger: logger}
}

// Read loads the snapshot for a category, optionally restricted to one
// year. A year-specific file wins over the consolidated file; with only
// the consolidated file present, rows are filtered on the Ano column.
// Missing or malformed files degrade to an error-kind result, never a
// Go error.
func (s *Store) Read(category scraper.Category, year *int) scraper.ExtractionResult {
	if year != nil {
		path := filepath.Join(s.baseDir, string(category), fmt.Sprintf("%d.csv", *year))
		if _, err := os.Stat(path); err == nil {
			return s.observe(category, s.readFile(path, nil))
		}
	}
	path := filepath.Join(s.baseDir, string(category), "all.csv")
	return s.observe(category, s.readFile(path, year))
}

// ReadSubcategory loads the snapshot for one product line of a
// category.
func (s *Store) ReadSubcategory(category scraper.Category, subcategory string) scraper.ExtractionResult {
	path := filepath.Join(s.baseDir, fmt.Sprintf("%s_%s.csv", category, subcategory))
	return s.observe(category, s.readFile(path, nil))
}

func (s *Store) observe(category scraper.Category, result scraper.ExtractionResult) scraper.ExtractionResult {
	outcome := "hit"
	if result.Source != scraper.SourceCSVFallback {
		outcome = "miss"
	}
	metrics.ObserveFallback(string(category), outcome)
	return result
}

func (s *Store) readFile(path string, yearFilter *int) scraper.ExtractionResult {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return scraper.ErrorResult(fmt.Sprintf("fallback file not found: %s", path))
		}
		s.logger.Error("fallback file open failed", zap.String("path", path), zap.Error(err))
		return scraper.ErrorResult(fmt.Sprintf("open fallback file %s: %v", path, err))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		s.logger.Error("fallback file unparseable", zap.String("path", path), zap.Error(err))
		return scraper.ErrorResult(fmt.Sprintf("parse fallback file %s: %v", path, err))
	}
	if len(rows) < 2 {
		return scraper.ErrorResult(fmt.Sprintf("fallback file has no data rows: %s", path))
	}

	headers := rows[0]
	if yearFilter != nil {
		if col := yearColumn(headers, *yearFilter); col >= 0 {
			return s.readWideYear(path, rows, col, *yearFilter)
		}
	}
	records := make([]scraper.DataRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(scraper.DataRecord, len(headers))
		for i, header := range headers {
			name := scraper.CleanText(header)
			if name == "" {
				name = fmt.Sprintf("Coluna_%d", i+1)
			}
			if i >= len(row) {
				record[name] = nil
				continue
			}
			record[name] = coerceField(name, scraper.CleanText(row[i]))
		}
		if yearFilter != nil && !matchesYear(record, *yearFilter) {
			continue
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return scraper.ErrorResult(fmt.Sprintf("fallback file yielded no records: %s", path))
	}
	return scraper.ExtractionResult{
		Data:       records,
		Source:     scraper.SourceCSVFallback,
		SourceFile: path,
	}
}

// yearColumn finds the requested year among the headers of a
// wide-format snapshot (one column per year).
func yearColumn(headers []string, year int) int {
	want := strconv.Itoa(year)
	for i, header := range headers {
		if scraper.CleanText(header) == want {
			return i
		}
	}
	return -1
}

// readWideYear projects one year column of a wide snapshot into the
// long record shape the rest of the service expects: product, quantity
// and the year the caller asked for.
func (s *Store) readWideYear(path string, rows [][]string, col, year int) scraper.ExtractionResult {
	productCol := 0
	for i, header := range rows[0] {
		if strings.EqualFold(scraper.CleanText(header), "produto") {
			productCol = i
			break
		}
	}

	records := make([]scraper.DataRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if productCol >= len(row) || col >= len(row) {
			continue
		}
		records = append(records, scraper.DataRecord{
			"Produto":         scraper.CleanText(row[productCol]),
			"Quantidade":      coerceField("Quantidade", scraper.CleanText(row[col])),
			scraper.FieldYear: int64(year),
		})
	}
	if len(records) == 0 {
		return scraper.ErrorResult(fmt.Sprintf("fallback file yielded no records: %s", path))
	}
	return scraper.ExtractionResult{
		Data:       records,
		Source:     scraper.SourceCSVFallback,
		SourceFile: path,
	}
}

// coerceField mirrors the live pipeline's coercion so downstream
// consumers see one record shape regardless of source. Quantity-like
// columns that survive as grouped strings ("156.789.431") are forced
// numeric, since the consolidated snapshots use thousands grouping the
// generic coercion leaves alone.
func coerceField(name, value string) any {
	if value == "" {
		return nil
	}
	coerced := scraper.Coerce(value)
	if s, still := coerced.(string); still && quantityFieldHint.MatchString(name) {
		f := scraper.SafeFloat(s, -1)
		if f >= 0 {
			return f
		}
	}
	return coerced
}

func matchesYear(record scraper.DataRecord, year int) bool {
	v, ok := record[scraper.FieldYear]
	if !ok {
		// Snapshot without an Ano column cannot be filtered; keep the
		// row rather than silently serving nothing.
		return true
	}
	switch y := v.(type) {
	case int64:
		return y == int64(year)
	case float64:
		return int(y) == year
	case string:
		n, err := strconv.Atoi(y)
		return err == nil && n == year
	default:
		return false
	}
}
