package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Fetcher is satisfied by Client; narrowed here so pipeline tests can
// inject failures without a network.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, params url.Values) (string, error)
}

// FallbackReader serves CSV snapshots when live extraction fails.
type FallbackReader interface {
	Read(category Category, year *int) ExtractionResult
	ReadSubcategory(category Category, subcategory string) ExtractionResult
}

// PipelineConfig bounds the pipeline's inputs.
type PipelineConfig struct {
	BaseURL string
	MinYear int
	MaxYear int
}

// Pipeline orchestrates fetch, table selection, extraction and cleaning
// for one category request, degrading to the fallback store on any
// stage failure. It never returns a Go error: the worst outcome is an
// empty result with Source set to "error".
type Pipeline struct {
	cfg      PipelineConfig
	fetcher  Fetcher
	fallback FallbackReader
	logger   *zap.Logger
}

// NewPipeline wires the pipeline's collaborators.
func NewPipeline(cfg PipelineConfig, fetcher Fetcher, fallback FallbackReader, logger *zap.Logger) *Pipeline {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://vitibrasil.cnpuv.embrapa.br/index.php"
	}
	if cfg.MinYear == 0 {
		cfg.MinYear = 1970
	}
	if cfg.MaxYear == 0 {
		cfg.MaxYear = 2024
	}
	return &Pipeline{cfg: cfg, fetcher: fetcher, fallback: fallback, logger: logger}
}

// Get returns the records for one category, optionally restricted to a
// single year.
func (p *Pipeline) Get(ctx context.Context, category Category, year *int) ExtractionResult {
	spec, ok := categorySpecs[category]
	if !ok {
		return ErrorResult(fmt.Sprintf("unknown category %q", category))
	}
	if msg := p.validateYear(year); msg != "" {
		return ErrorResult(msg)
	}
	if spec.Combined {
		return p.getCombined(ctx, category, spec, year)
	}

	result := p.scrape(ctx, spec.Opcao, "", year)
	if result.Source == SourceWebScraping {
		return result
	}
	p.logger.Warn("live extraction failed, trying fallback",
		zap.String("category", string(category)),
		zap.String("cause", result.Error),
	)
	return p.fallbackOr(p.fallback.Read(category, year), result)
}

// GetSubcategory returns records for one product line of a category.
func (p *Pipeline) GetSubcategory(ctx context.Context, category Category, name string, year *int) ExtractionResult {
	spec, ok := categorySpecs[category]
	if !ok {
		return ErrorResult(fmt.Sprintf("unknown category %q", category))
	}
	sub, ok := SubcategoryByName(category, name)
	if !ok {
		return ErrorResult(fmt.Sprintf("unknown subcategory %q for category %q", name, category))
	}
	if msg := p.validateYear(year); msg != "" {
		return ErrorResult(msg)
	}

	result := p.scrape(ctx, spec.Opcao, sub.Subopcao, year)
	if result.Source == SourceWebScraping {
		tagRecords(result.Data, sub.Name)
		return result
	}
	p.logger.Warn("live extraction failed, trying fallback",
		zap.String("category", string(category)),
		zap.String("subcategory", name),
		zap.String("cause", result.Error),
	)
	return p.fallbackOr(p.fallback.ReadSubcategory(category, name), result)
}

// getCombined serves categories whose aggregate endpoint is known to be
// unreliable: consolidated fallback file first, then one fetch per
// sub-category, best-effort over whichever succeed.
func (p *Pipeline) getCombined(ctx context.Context, category Category, spec categorySpec, year *int) ExtractionResult {
	consolidated := p.fallback.Read(category, year)
	if consolidated.Source == SourceCSVFallback && len(consolidated.Data) > 0 {
		return consolidated
	}

	var combined []DataRecord
	failed := 0
	for _, sub := range spec.Subcategories {
		result := p.scrape(ctx, spec.Opcao, sub.Subopcao, year)
		if result.Source != SourceWebScraping {
			failed++
			p.logger.Warn("subcategory fetch failed, skipping",
				zap.String("category", string(category)),
				zap.String("subcategory", sub.Name),
				zap.String("cause", result.Error),
			)
			continue
		}
		tagRecords(result.Data, sub.Name)
		combined = append(combined, result.Data...)
	}

	if len(combined) == 0 {
		return ErrorResult(fmt.Sprintf(
			"no data for category %q: consolidated fallback empty and all %d subcategory fetches failed",
			category, failed,
		))
	}
	return ExtractionResult{
		Data:      combined,
		Source:    SourceWebScrapingCombined,
		SourceURL: p.sourceURL(spec.Opcao, "", year),
	}
}

// scrape runs one fetch -> select -> extract -> clean cycle. Errors are
// folded into the result; callers decide whether to fall back.
func (p *Pipeline) scrape(ctx context.Context, opcao, subopcao string, year *int) ExtractionResult {
	params := url.Values{}
	params.Set("opcao", opcao)
	if subopcao != "" {
		params.Set("subopcao", subopcao)
	}
	if year != nil {
		params.Set("ano", strconv.Itoa(*year))
	}
	sourceURL := p.sourceURL(opcao, subopcao, year)

	html, err := p.fetcher.Fetch(ctx, p.cfg.BaseURL, params)
	if err != nil {
		return ErrorResult(err.Error())
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ErrorResult(fmt.Sprintf("parse %s: %v", sourceURL, err))
	}
	table := SelectTable(doc)
	if table == nil {
		return ErrorResult(fmt.Sprintf("%v: %s", ErrNoTableFound, sourceURL))
	}

	records := CleanRecords(ExtractRecords(ParseTable(table)))
	if len(records) == 0 {
		return ErrorResult(fmt.Sprintf("table yielded no records: %s", sourceURL))
	}
	if year != nil {
		fillYear(records, *year)
	}
	return ExtractionResult{
		Data:      records,
		Source:    SourceWebScraping,
		SourceURL: sourceURL,
	}
}

func (p *Pipeline) validateYear(year *int) string {
	if year == nil {
		return ""
	}
	if *year < p.cfg.MinYear || *year > p.cfg.MaxYear {
		return fmt.Sprintf("year %d outside valid range %d-%d", *year, p.cfg.MinYear, p.cfg.MaxYear)
	}
	return ""
}

// fallbackOr returns the fallback result when it produced data and the
// original failure otherwise, so the caller sees the most descriptive
// error available.
func (p *Pipeline) fallbackOr(fallback, original ExtractionResult) ExtractionResult {
	if fallback.Source == SourceCSVFallback {
		return fallback
	}
	if original.Error != "" && fallback.Error != "" {
		return ErrorResult(fmt.Sprintf("%s; fallback: %s", original.Error, fallback.Error))
	}
	return fallback
}

func (p *Pipeline) sourceURL(opcao, subopcao string, year *int) string {
	params := url.Values{}
	params.Set("opcao", opcao)
	if subopcao != "" {
		params.Set("subopcao", subopcao)
	}
	if year != nil {
		params.Set("ano", strconv.Itoa(*year))
	}
	return p.cfg.BaseURL + "?" + params.Encode()
}

func tagRecords(records []DataRecord, subcategory string) {
	for _, record := range records {
		record[FieldCategory] = subcategory
	}
}

func fillYear(records []DataRecord, year int) {
	for _, record := range records {
		if v, ok := record[FieldYear]; ok && v != nil {
			continue
		}
		record[FieldYear] = int64(year)
	}
}
