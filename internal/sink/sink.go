package sink

import (
	"context"

	"go.uber.org/zap"

	"github.com/R-Kotenko/ImbalanceTracker/internal/model"
)

// Sink consumes pipeline output. Implementations are best-effort: delivery
// failures are returned as errors, logged by the fanout and never retried.
type Sink interface {
	OnMetric(ctx context.Context, mp model.MetricPoint) error
	OnTrigger(ctx context.Context, ev model.TriggerEvent) error
}

// Fanout delivers to every sink in registration order. A failing sink does
// not block or skip the others.
type Fanout struct {
	logger *zap.Logger
	sinks  []Sink
}

func NewFanout(logger *zap.Logger, sinks ...Sink) *Fanout {
	return &Fanout{logger: logger, sinks: sinks}
}

func (f *Fanout) Metric(ctx context.Context, mp model.MetricPoint) {
	for _, s := range f.sinks {
		if err := s.OnMetric(ctx, mp); err != nil {
			f.logger.Warn("sink metric delivery failed",
				zap.String("pair", mp.Pair), zap.Error(err))
		}
	}
}

func (f *Fanout) Trigger(ctx context.Context, ev model.TriggerEvent) {
	for _, s := range f.sinks {
		if err := s.OnTrigger(ctx, ev); err != nil {
			f.logger.Warn("sink trigger delivery failed",
				zap.String("pair", ev.Pair),
				zap.String("trigger", ev.TriggerName),
				zap.Error(err))
		}
	}
}
