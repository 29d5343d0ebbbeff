package sink

import (
	"context"

	"go.uber.org/zap"

	"github.com/R-Kotenko/ImbalanceTracker/internal/model"
)

// LoggerSink writes trigger events (and optionally every metric point) to the
// process log.
type LoggerSink struct {
	logger     *zap.Logger
	logMetrics bool
}

func NewLoggerSink(logger *zap.Logger, logMetrics bool) *LoggerSink {
	return &LoggerSink{logger: logger, logMetrics: logMetrics}
}

func (s *LoggerSink) OnMetric(_ context.Context, mp model.MetricPoint) error {
	if !s.logMetrics {
		return nil
	}
	s.logger.Info("metric",
		zap.String("pair", mp.Pair),
		zap.String(mp.Name, mp.Value.StringFixed(6)),
		zap.String("bid_vol", mp.BidVolume.StringFixed(6)),
		zap.String("ask_vol", mp.AskVolume.StringFixed(6)),
	)
	return nil
}

func (s *LoggerSink) OnTrigger(_ context.Context, ev model.TriggerEvent) error {
	s.logger.Info("trigger fired",
		zap.String("pair", ev.Pair),
		zap.String("message", ev.Message),
	)
	return nil
}
