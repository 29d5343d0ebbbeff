package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Cell is one element of a wire-level row. Binance sends prices and
// quantities as JSON strings, but some feeds deliver bare numbers; both
// decode to their textual form and are parsed later by the book builder.
type Cell string

func (c *Cell) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Cell(s)
		return nil
	}
	*c = Cell(data)
	return nil
}

// Row is a raw order-book level as delivered on the wire: [price, qty, ...].
type Row []Cell

// Level is a single validated order-book level.
type Level struct {
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`
}

// OrderBook is a top-N snapshot for one pair. A fresh book is built per depth
// message and never mutated afterwards.
type OrderBook struct {
	Pair         string    `json:"pair"`
	Bids         []Level   `json:"bids"` // descending by price
	Asks         []Level   `json:"asks"` // ascending by price
	LastUpdateID *int64    `json:"last_update_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MetricPoint is one computed metric value for one processed book.
type MetricPoint struct {
	Pair      string          `json:"pair"`
	Name      string          `json:"name"`
	Value     decimal.Decimal `json:"value"`
	BidVolume decimal.Decimal `json:"bid_volume"`
	AskVolume decimal.Decimal `json:"ask_volume"`
	Timestamp time.Time       `json:"ts"`
}

// TriggerEvent is an emitted alert for one qualifying trigger evaluation.
type TriggerEvent struct {
	Pair        string          `json:"pair"`
	TriggerName string          `json:"trigger_name"`
	Metric      string          `json:"metric"`
	MetricValue decimal.Decimal `json:"metric_value"`
	BidVolume   decimal.Decimal `json:"bid_volume"`
	AskVolume   decimal.Decimal `json:"ask_volume"`
	Timestamp   time.Time       `json:"ts"`
	Message     string          `json:"message"`
}
