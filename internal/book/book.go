package book

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/R-Kotenko/ImbalanceTracker/internal/model"
)

// ParseLevels filters raw rows into validated levels, sorted by price.
// Rows that are too short, fail numeric parsing, or carry a non-positive
// quantity are skipped without aborting the batch. A zero quantity marks a
// removed level in diff feeds and holds no volume.
func ParseLevels(rows []model.Row, topN int, descending bool) []model.Level {
	levels := make([]model.Level, 0, len(rows))

	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		price, err := decimal.NewFromString(string(row[0]))
		if err != nil {
			continue
		}
		qty, err := decimal.NewFromString(string(row[1]))
		if err != nil {
			continue
		}
		if qty.Sign() <= 0 {
			continue
		}
		levels = append(levels, model.Level{Price: price, Qty: qty})
	}

	// Upstream does not guarantee sorted rows.
	sort.SliceStable(levels, func(i, j int) bool {
		if descending {
			return levels[i].Price.GreaterThan(levels[j].Price)
		}
		return levels[i].Price.LessThan(levels[j].Price)
	})

	if len(levels) > topN {
		levels = levels[:topN]
	}
	return levels
}

// Build assembles a validated top-N snapshot from raw bid and ask rows.
func Build(pair string, bids, asks []model.Row, topN int, lastUpdateID *int64) model.OrderBook {
	return model.OrderBook{
		Pair:         strings.ToUpper(pair),
		Bids:         ParseLevels(bids, topN, true),
		Asks:         ParseLevels(asks, topN, false),
		LastUpdateID: lastUpdateID,
		UpdatedAt:    time.Now().UTC(),
	}
}
