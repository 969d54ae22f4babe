package scraper

import "testing"

func TestExtractRecords(t *testing.T) {
	t.Parallel()

	table := RawTable{Rows: [][]string{
		{"produto", "quantidade (L.)", ""},
		{"Vinho de Mesa", "169.762.429", "x"},
		{"Suco", "156,43", ""},
	}}
	records := ExtractRecords(table)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	first := records[0]
	if first["Produto"] != "Vinho de Mesa" {
		t.Fatalf("Produto = %v, want title-cased header with original value", first["Produto"])
	}
	if _, ok := first["Quantidade (L.)"]; !ok {
		t.Fatalf("expected unit suffix preserved in header, got %v", first)
	}
	if _, ok := first["Coluna_3"]; !ok {
		t.Fatalf("expected placeholder name for empty header, got %v", first)
	}

	second := records[1]
	if second["Quantidade (L.)"] != 156.43 {
		t.Fatalf("expected coerced float, got %v (%T)", second["Quantidade (L.)"], second["Quantidade (L.)"])
	}
	if second["Coluna_3"] != nil {
		t.Fatalf("expected nil for empty cell, got %v", second["Coluna_3"])
	}
}

func TestExtractRecordsDiscardsIncompatibleRows(t *testing.T) {
	t.Parallel()

	table := RawTable{Rows: [][]string{
		{"A", "B"},
		{"ok", "1"},
		{"way", "too", "many", "cells", "here"}, // 5 > 2*2
		{"fine", "2", "extra"},                  // within 2x, kept
	}}
	records := ExtractRecords(table)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2 (incompatible row discarded)", len(records))
	}
	if records[1]["Coluna_Extra_1"] != "extra" {
		t.Fatalf("expected surplus cell under synthetic name, got %v", records[1])
	}
}

func TestExtractRecordsFillsMissingTrailingCells(t *testing.T) {
	t.Parallel()

	table := RawTable{Rows: [][]string{
		{"A", "B", "C"},
		{"x", "1"},
	}}
	records := ExtractRecords(table)
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	v, ok := records[0]["C"]
	if !ok || v != nil {
		t.Fatalf("expected missing trailing cell as nil, got %v present=%v", v, ok)
	}
}

func TestExtractRecordsDropsEmptyRows(t *testing.T) {
	t.Parallel()

	table := RawTable{Rows: [][]string{
		{"A", "B"},
		{"", "  "},
		{"x", "1"},
	}}
	records := ExtractRecords(table)
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 (all-empty row dropped)", len(records))
	}
}

func TestExtractRecordsHeaderOnly(t *testing.T) {
	t.Parallel()

	if got := ExtractRecords(RawTable{Rows: [][]string{{"A", "B"}}}); got != nil {
		t.Fatalf("expected nil for header-only table, got %v", got)
	}
	if got := ExtractRecords(RawTable{}); got != nil {
		t.Fatalf("expected nil for empty table, got %v", got)
	}
}
