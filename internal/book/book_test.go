package book

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R-Kotenko/ImbalanceTracker/internal/model"
)

func rows(t *testing.T, js string) []model.Row {
	t.Helper()
	var out []model.Row
	require.NoError(t, json.Unmarshal([]byte(js), &out))
	return out
}

func prices(levels []model.Level) []string {
	out := make([]string, 0, len(levels))
	for _, l := range levels {
		out = append(out, l.Price.String())
	}
	return out
}

func TestParseLevels_SortsUnsortedInput(t *testing.T) {
	raw := rows(t, `[["99","1"],["101","2"],["100","3"]]`)

	bids := ParseLevels(raw, 10, true)
	assert.Equal(t, []string{"101", "100", "99"}, prices(bids))

	asks := ParseLevels(raw, 10, false)
	assert.Equal(t, []string{"99", "100", "101"}, prices(asks))
}

func TestParseLevels_SkipsInvalidRows(t *testing.T) {
	raw := rows(t, `[["abc","1"],["100"],[],["100","xyz"],["100","0"],["100","-2"],["100.5","1.5"]]`)

	levels := ParseLevels(raw, 10, true)

	require.Len(t, levels, 1)
	assert.True(t, levels[0].Price.Equal(decimal.NewFromFloat(100.5)))
	assert.True(t, levels[0].Qty.Equal(decimal.NewFromFloat(1.5)))
}

func TestParseLevels_TruncatesAfterSorting(t *testing.T) {
	raw := rows(t, `[["1","1"],["5","1"],["3","1"],["4","1"],["2","1"]]`)

	bids := ParseLevels(raw, 3, true)
	assert.Equal(t, []string{"5", "4", "3"}, prices(bids))

	asks := ParseLevels(raw, 3, false)
	assert.Equal(t, []string{"1", "2", "3"}, prices(asks))
}

func TestParseLevels_AcceptsNumericCells(t *testing.T) {
	raw := rows(t, `[[100.5, 2],[99, 1]]`)

	levels := ParseLevels(raw, 10, true)

	require.Len(t, levels, 2)
	assert.True(t, levels[0].Price.Equal(decimal.NewFromFloat(100.5)))
	assert.True(t, levels[0].Qty.Equal(decimal.NewFromInt(2)))
}

func TestBuild(t *testing.T) {
	lastID := int64(42)

	ob := Build("btcusdt",
		rows(t, `[["100","2"],["99","1"]]`),
		rows(t, `[["101","1"],["102","3"]]`),
		10, &lastID)

	assert.Equal(t, "BTCUSDT", ob.Pair)
	assert.Len(t, ob.Bids, 2)
	assert.Len(t, ob.Asks, 2)
	require.NotNil(t, ob.LastUpdateID)
	assert.Equal(t, int64(42), *ob.LastUpdateID)
	assert.False(t, ob.UpdatedAt.IsZero())
}
