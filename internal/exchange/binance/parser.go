package binance

import (
	"encoding/json"

	"github.com/R-Kotenko/ImbalanceTracker/internal/book"
	"github.com/R-Kotenko/ImbalanceTracker/internal/gateway"
	"github.com/R-Kotenko/ImbalanceTracker/internal/model"
)

// depthPayload covers both the partial-book snapshot ("bids"/"asks" with
// lastUpdateId) and the depthUpdate diff event ("b"/"a" with "u").
type depthPayload struct {
	Event        string      `json:"e"`
	Bids         []model.Row `json:"bids"`
	Asks         []model.Row `json:"asks"`
	LastUpdateID *int64      `json:"lastUpdateId"`
	DiffBids     []model.Row `json:"b"`
	DiffAsks     []model.Row `json:"a"`
	FinalID      *int64      `json:"u"`
}

// ParseDepth converts a classified gateway message into an order-book
// snapshot. Returns false when the message carries no usable depth payload.
func ParseDepth(msg gateway.Message, topN int) (model.OrderBook, bool) {
	if msg.Pair == "" {
		return model.OrderBook{}, false
	}

	var p depthPayload
	if err := json.Unmarshal(msg.Data, &p); err != nil {
		return model.OrderBook{}, false
	}

	switch msg.Kind {
	case gateway.KindSnapshot:
		return book.Build(msg.Pair, p.Bids, p.Asks, topN, p.LastUpdateID), true
	case gateway.KindDepthUpdate:
		return book.Build(msg.Pair, p.DiffBids, p.DiffAsks, topN, p.FinalID), true
	}
	return model.OrderBook{}, false
}
