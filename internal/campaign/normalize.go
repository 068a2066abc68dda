package campaign

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Report column order as rendered by the dashboard table.
const (
	colPauseURL = iota
	colActiveURL
	colAccount
	colCampaign
	colStatus
	colCost
	colRevenue
	colROAS

	// MinCells is the minimum number of cells a row needs to be usable.
	MinCells = 8
)

// ErrShortRow is returned for rows with fewer than MinCells cells.
// Such rows are skipped entirely; anything else degrades to zero values.
var ErrShortRow = errors.New("row has too few cells")

// ParseRow normalizes one raw report row into a Record.
//
// Numeric cells never cause the row to be dropped: unparseable cost and
// revenue default to 0, and a ROAS of literal "null" (or anything
// unparseable) defaults to 0, keeping the record eligible for rule
// evaluation. Only a row with fewer than MinCells cells is rejected.
func ParseRow(cells []string) (Record, error) {
	if len(cells) < MinCells {
		return Record{}, fmt.Errorf("%w: got %d, need %d", ErrShortRow, len(cells), MinCells)
	}

	rec := Record{
		Account:   strings.TrimSpace(cells[colAccount]),
		Campaign:  strings.TrimSpace(cells[colCampaign]),
		Cost:      parseMoney(cells[colCost]),
		Revenue:   parseMoney(cells[colRevenue]),
		ROAS:      parseROAS(cells[colROAS]),
		PauseURL:  strings.TrimSpace(cells[colPauseURL]),
		ActiveURL: strings.TrimSpace(cells[colActiveURL]),
	}

	// Anything not reported as ACTIVE is treated as paused, matching how
	// the dashboard counts active vs. inactive campaigns.
	if strings.TrimSpace(cells[colStatus]) == string(StatusActive) {
		rec.Status = StatusActive
	} else {
		rec.Status = StatusPaused
	}

	return rec, nil
}

// parseMoney extracts a non-negative dollar amount from a cell like
// "$1,234.56". Unparseable input yields 0.
func parseMoney(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// parseROAS parses the reported revenue/cost ratio. The dashboard renders
// "null" for campaigns with no tracked revenue.
func parseROAS(s string) float64 {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
