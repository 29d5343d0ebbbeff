package infrastructure

import (
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// InitNATS connects to the bus and makes sure the IMBALANCE stream exists.
// Metric points and alert events are published under it.
func InitNATS(url string, logger *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	streamCfg := &nats.StreamConfig{
		Name:     "IMBALANCE",
		Subjects: []string{"imbalance.metric.*", "imbalance.alert.*"},
	}

	if _, err = js.AddStream(streamCfg); err != nil {
		if _, err = js.UpdateStream(streamCfg); err != nil {
			logger.Warn("failed to create or update stream", zap.Error(err))
		}
	}

	return nc, js, nil
}
