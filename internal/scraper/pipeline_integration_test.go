package scraper_test

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/vitibrasil/vitibrasil-api/internal/fallback"
	"github.com/vitibrasil/vitibrasil-api/internal/scraper"
)

type deadFetcher struct{}

func (deadFetcher) Fetch(context.Context, string, url.Values) (string, error) {
	return "", errors.New("origin unreachable")
}

// An unreachable origin with a populated snapshot directory must serve
// the snapshot, with quantities numeric despite thousands grouping.
func TestPipelineServesSnapshotWhenOriginDown(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "production", "2022.csv")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	csv := "Produto;Quantidade (L.)\nVinho de Mesa;156.789.431\nVinho Fino de Mesa;46.268.556\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	store := fallback.NewStore(dir, zap.NewNop())
	p := scraper.NewPipeline(scraper.PipelineConfig{BaseURL: "http://example.invalid/index.php"},
		deadFetcher{}, store, zap.NewNop())

	year := 2022
	result := p.Get(context.Background(), scraper.CategoryProduction, &year)
	if result.Source != scraper.SourceCSVFallback {
		t.Fatalf("source = %s, want csv_fallback (error: %s)", result.Source, result.Error)
	}
	if len(result.Data) != 2 {
		t.Fatalf("records = %d, want 2", len(result.Data))
	}
	if got := result.Data[0]["Quantidade (L.)"]; got != 156789431.0 {
		t.Fatalf("quantity = %v (%T), want 156789431", got, got)
	}
	if result.SourceFile == "" {
		t.Fatal("expected source_file to point at the snapshot")
	}
}

// With no snapshot on disk either, the pipeline degrades to an empty
// error-kind result instead of failing.
func TestPipelineFullyDegraded(t *testing.T) {
	t.Parallel()

	store := fallback.NewStore(t.TempDir(), zap.NewNop())
	p := scraper.NewPipeline(scraper.PipelineConfig{BaseURL: "http://example.invalid/index.php"},
		deadFetcher{}, store, zap.NewNop())

	result := p.Get(context.Background(), scraper.CategoryProduction, nil)
	if result.Source != scraper.SourceError {
		t.Fatalf("source = %s, want error", result.Source)
	}
	if len(result.Data) != 0 {
		t.Fatal("error result must carry no records")
	}
	if result.Error == "" {
		t.Fatal("expected a descriptive error message")
	}
}
