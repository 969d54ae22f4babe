// Package scraper implements the VitiBrasil table-extraction pipeline:
// fetching category pages, selecting the data table among layout noise,
// extracting rows into records, and cleaning navigation artifacts.
package scraper

import (
	"errors"
	"fmt"
)

// Source identifies where the data in an ExtractionResult came from.
type Source string

// Source values attached to every ExtractionResult.
const (
	SourceWebScraping         Source = "web_scraping"
	SourceWebScrapingCombined Source = "web_scraping_combined"
	SourceCSVFallback         Source = "csv_fallback"
	SourceError               Source = "error"
)

// DataRecord is one normalized table row. Field names come from the
// source page headers, so the shape is dynamic; values are string,
// int64, float64 or nil after coercion.
type DataRecord map[string]any

// Well-known field names promoted for consumers that need them.
const (
	FieldCategory = "Categoria"
	FieldYear     = "Ano"
)

// ExtractionResult is the unit returned by the pipeline and cached by
// the result cache. Source is always set; SourceError implies Data is
// empty.
type ExtractionResult struct {
	Data       []DataRecord `json:"data"`
	Source     Source       `json:"source"`
	SourceURL  string       `json:"source_url,omitempty"`
	SourceFile string       `json:"source_file,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// ErrorResult builds the fully-degraded empty result.
func ErrorResult(msg string) ExtractionResult {
	return ExtractionResult{Data: []DataRecord{}, Source: SourceError, Error: msg}
}

// RawTable is the ephemeral parsed form of one HTML <table>: rows of
// cell texts, in document order. It lives for a single extraction call.
type RawTable struct {
	Rows [][]string
}

// FetchErrorKind classifies fetch failures.
type FetchErrorKind string

// Fetch failure classes.
const (
	FetchErrNetwork FetchErrorKind = "network"
	FetchErrTimeout FetchErrorKind = "timeout"
	FetchErrStatus  FetchErrorKind = "http_status"
)

// FetchError is the typed failure returned by the fetch client. Callers
// treat any FetchError as "extraction failed, attempt fallback".
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchErrStatus {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrNoTableFound is returned by the selector when no candidate table
// qualifies.
var ErrNoTableFound = errors.New("no data table found in page")
