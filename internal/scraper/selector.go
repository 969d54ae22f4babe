package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// navGlyphs is the pagination-arrow sequence the VitiBrasil pages embed
// in their navigation tables and, when the markup is malformed, inside
// data rows.
const navGlyphs = "«‹›»"

// minTableTextLen disqualifies tiny layout tables from scoring.
const minTableTextLen = 20

// CandidateScore captures the structural signals used to rank one
// candidate table. Computation is a pure function of the table so it is
// testable against hand-built fixtures.
type CandidateScore struct {
	RowCount             int
	HeaderCount          int
	ColumnConsistency    bool
	ContainsTotalKeyword bool
	Composite            int
}

// ScoreTable computes the composite score for a parsed table selection.
// It is total: any input yields a score, never an error.
func ScoreTable(table *goquery.Selection) CandidateScore {
	var score CandidateScore

	rows := table.Find("tr")
	if n := rows.Length(); n > 1 {
		score.RowCount = n - 1
	}
	score.HeaderCount = table.Find("th").Length()

	consistent := true
	firstWidth := -1
	rows.Each(func(_ int, row *goquery.Selection) {
		width := row.Find("td, th").Length()
		if firstWidth == -1 {
			firstWidth = width
			return
		}
		if width != firstWidth {
			consistent = false
		}
	})
	score.ColumnConsistency = rows.Length() > 0 && consistent

	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if strings.Contains(row.Text(), "Total") {
			score.ContainsTotalKeyword = true
			return false
		}
		return true
	})

	score.Composite = 2*score.RowCount + 3*score.HeaderCount
	if score.ColumnConsistency {
		score.Composite += 10
	}
	if score.ContainsTotalKeyword {
		score.Composite += 5
	}
	return score
}

// SelectTable picks the most plausible data table out of the document.
// A lone table wins unconditionally; with several candidates the
// highest composite score wins and ties go to the earliest table in
// document order. Returns nil when no table qualifies.
func SelectTable(doc *goquery.Document) *goquery.Selection {
	tables := doc.Find("table")
	switch tables.Length() {
	case 0:
		return nil
	case 1:
		return tables.First()
	}

	var best *goquery.Selection
	bestScore := -1
	tables.Each(func(_ int, table *goquery.Selection) {
		text := CleanText(table.Text())
		if len(text) < minTableTextLen {
			return
		}
		if strings.HasPrefix(text, "«") || strings.HasPrefix(text, "‹") {
			return
		}
		score := ScoreTable(table)
		if score.Composite > bestScore {
			best = table
			bestScore = score.Composite
		}
	})
	return best
}

// ParseTable flattens a table selection into the ephemeral row/cell
// representation consumed by the extractor.
func ParseTable(table *goquery.Selection) RawTable {
	var raw RawTable
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, CleanText(cell.Text()))
		})
		if len(cells) > 0 {
			raw.Rows = append(raw.Rows, cells)
		}
	})
	return raw
}
