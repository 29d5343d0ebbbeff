package gateway

import (
	"encoding/json"
	"strings"
)

// DropSubscribeAcks vetoes SUBSCRIBE confirmations ({"result":null,"id":N})
// so they never reach the depth handlers.
func DropSubscribeAcks() Middleware {
	return func(msg Message) (Message, bool) {
		var probe struct {
			Result json.RawMessage `json:"result"`
			ID     *int64          `json:"id"`
		}
		if err := json.Unmarshal(msg.Data, &probe); err != nil {
			return msg, true
		}
		if probe.ID != nil && isJSONNull(probe.Result) {
			return Message{}, false
		}
		return msg, true
	}
}

// OnlyDepthStreams vetoes frames from non-depth streams. Frames without a
// stream name pass through untouched.
func OnlyDepthStreams() Middleware {
	return func(msg Message) (Message, bool) {
		if msg.Stream == "" {
			return msg, true
		}
		if strings.Contains(msg.Stream, "@depth") {
			return msg, true
		}
		return Message{}, false
	}
}
