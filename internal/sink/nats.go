package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/R-Kotenko/ImbalanceTracker/internal/model"
)

// NATSSink publishes metric points and trigger events to the bus for
// downstream consumers.
type NATSSink struct {
	js nats.JetStreamContext
}

func NewNATSSink(js nats.JetStreamContext) *NATSSink {
	return &NATSSink{js: js}
}

func (s *NATSSink) OnMetric(_ context.Context, mp model.MetricPoint) error {
	data, err := json.Marshal(mp)
	if err != nil {
		return err
	}
	_, err = s.js.Publish(fmt.Sprintf("imbalance.metric.%s", mp.Pair), data)
	return err
}

func (s *NATSSink) OnTrigger(_ context.Context, ev model.TriggerEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.js.Publish(fmt.Sprintf("imbalance.alert.%s", ev.Pair), data)
	return err
}
