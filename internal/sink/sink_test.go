package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/R-Kotenko/ImbalanceTracker/internal/model"
)

type stubSink struct {
	err      error
	metrics  []model.MetricPoint
	triggers []model.TriggerEvent
}

func (s *stubSink) OnMetric(_ context.Context, mp model.MetricPoint) error {
	s.metrics = append(s.metrics, mp)
	return s.err
}

func (s *stubSink) OnTrigger(_ context.Context, ev model.TriggerEvent) error {
	s.triggers = append(s.triggers, ev)
	return s.err
}

func samplePoint() model.MetricPoint {
	return model.MetricPoint{
		Pair:      "BTCUSDT",
		Name:      "imbalance_ratio",
		Value:     decimal.NewFromFloat(-0.142857),
		BidVolume: decimal.NewFromInt(3),
		AskVolume: decimal.NewFromInt(4),
		Timestamp: time.Now().UTC(),
	}
}

func sampleEvent() model.TriggerEvent {
	return model.TriggerEvent{
		Pair:        "BTCUSDT",
		TriggerName: "strong_ask",
		Metric:      "imbalance_ratio",
		MetricValue: decimal.NewFromFloat(-0.4),
		BidVolume:   decimal.NewFromInt(3),
		AskVolume:   decimal.NewFromInt(7),
		Timestamp:   time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC),
		Message:     "strong_ask: imbalance_ratio <= -0.35",
	}
}

func TestFanout_DeliversInRegistrationOrder(t *testing.T) {
	first := &stubSink{}
	second := &stubSink{}
	f := NewFanout(zap.NewNop(), first, second)

	f.Metric(context.Background(), samplePoint())
	f.Trigger(context.Background(), sampleEvent())

	assert.Len(t, first.metrics, 1)
	assert.Len(t, second.metrics, 1)
	assert.Len(t, first.triggers, 1)
	assert.Len(t, second.triggers, 1)
}

func TestFanout_FailingSinkDoesNotBlockOthers(t *testing.T) {
	failing := &stubSink{err: errors.New("unreachable")}
	healthy := &stubSink{}
	f := NewFanout(zap.NewNop(), failing, healthy)

	f.Metric(context.Background(), samplePoint())
	f.Trigger(context.Background(), sampleEvent())

	assert.Len(t, healthy.metrics, 1)
	assert.Len(t, healthy.triggers, 1)
}

func TestLoggerSink_MetricLoggingIsOptIn(t *testing.T) {
	quiet := NewLoggerSink(zap.NewNop(), false)
	chatty := NewLoggerSink(zap.NewNop(), true)

	assert.NoError(t, quiet.OnMetric(context.Background(), samplePoint()))
	assert.NoError(t, chatty.OnMetric(context.Background(), samplePoint()))
	assert.NoError(t, quiet.OnTrigger(context.Background(), sampleEvent()))
}

func TestBuildTriggerMessage(t *testing.T) {
	msg := BuildTriggerMessage(sampleEvent())

	assert.Contains(t, msg, "Pair: BTCUSDT")
	assert.Contains(t, msg, "Trigger: strong_ask")
	assert.Contains(t, msg, "Direction: SELL")
	assert.Contains(t, msg, "imbalance_ratio = -0.400000")
	assert.Contains(t, msg, "-40.00% of (Bid+Ask)")
	assert.Contains(t, msg, "Bid: 3.00 / Ask: 7.00")
	assert.Contains(t, msg, "Net (Bid-Ask): -4.00")
	assert.Contains(t, msg, "2026-08-30 09:30:00")
}
