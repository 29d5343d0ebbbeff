package imbalance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/R-Kotenko/ImbalanceTracker/internal/model"
)

// VolumeMode selects how a level contributes to side volume.
type VolumeMode string

const (
	// ModeQty sums level quantities.
	ModeQty VolumeMode = "qty"
	// ModeNotional sums price*qty per level.
	ModeNotional VolumeMode = "notional"
)

// DefaultMetricName is the metric name stamped on computed points.
const DefaultMetricName = "imbalance_ratio"

// ParseMode validates a configured volume mode string.
func ParseMode(s string) (VolumeMode, error) {
	switch VolumeMode(s) {
	case ModeQty, ModeNotional:
		return VolumeMode(s), nil
	}
	return "", fmt.Errorf("unknown volume mode %q (expected %q or %q)", s, ModeQty, ModeNotional)
}

func sideVolume(levels []model.Level, mode VolumeMode) decimal.Decimal {
	total := decimal.Zero
	for _, l := range levels {
		if mode == ModeNotional {
			total = total.Add(l.Price.Mul(l.Qty))
		} else {
			total = total.Add(l.Qty)
		}
	}
	return total
}

// Calc computes the signed bid/ask imbalance ratio for one snapshot:
// (bid - ask) / (bid + ask), or zero when both sides are empty. Pure
// function; the point's timestamp is the book's build time.
func Calc(ob model.OrderBook, mode VolumeMode, metricName string) model.MetricPoint {
	bidVol := sideVolume(ob.Bids, mode)
	askVol := sideVolume(ob.Asks, mode)

	ratio := decimal.Zero
	if total := bidVol.Add(askVol); total.Sign() > 0 {
		ratio = bidVol.Sub(askVol).Div(total)
	}

	ts := ob.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return model.MetricPoint{
		Pair:      ob.Pair,
		Name:      metricName,
		Value:     ratio,
		BidVolume: bidVol,
		AskVolume: askVol,
		Timestamp: ts,
	}
}
