package app

import (
	"context"

	"github.com/R-Kotenko/ImbalanceTracker/internal/exchange/binance"
	"github.com/R-Kotenko/ImbalanceTracker/internal/gateway"
	"github.com/R-Kotenko/ImbalanceTracker/internal/imbalance"
	"github.com/R-Kotenko/ImbalanceTracker/internal/infrastructure"
	"github.com/R-Kotenko/ImbalanceTracker/internal/trigger"
)

// depthHandler is the end of the pipeline: depth message -> snapshot ->
// imbalance ratio -> sinks -> trigger evaluation -> sinks. It runs entirely
// inside the gateway dispatch loop, so the trigger engine and the book
// builder need no synchronization.
func (a *App) depthHandler(mode imbalance.VolumeMode, engine *trigger.Engine) gateway.DepthHandler {
	topN := a.Config.Binance.TopN

	return func(ctx context.Context, msg gateway.Message) error {
		ob, ok := binance.ParseDepth(msg, topN)
		if !ok {
			return nil
		}

		mp := imbalance.Calc(ob, mode, imbalance.DefaultMetricName)

		a.Store.Update(ob, mp)
		infrastructure.DepthProcessed.WithLabelValues(ob.Pair).Inc()

		a.Sinks.Metric(ctx, mp)

		for _, ev := range engine.Process(mp) {
			infrastructure.TriggerEmissions.WithLabelValues(ev.Pair, ev.TriggerName).Inc()
			a.Sinks.Trigger(ctx, ev)
		}
		return nil
	}
}
