package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/R-Kotenko/ImbalanceTracker/internal/gateway"
	"github.com/R-Kotenko/ImbalanceTracker/internal/infrastructure"
)

// Options configures the streaming client.
type Options struct {
	URL         string
	Pairs       []string
	DepthStream string

	PingInterval time.Duration
	PingTimeout  time.Duration

	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration
	ReconnectBackoff  float64
	ReconnectJitter   float64

	SubscribeBatchSize int
}

// Client maintains a live depth subscription against the exchange. It loops
// through connect / subscribe / stream until its context is cancelled; every
// network or protocol error tears the connection down and schedules a
// reconnect, never a process failure.
type Client struct {
	logger  *zap.Logger
	opts    Options
	streams []string
	subID   int64
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// BuildStreams expands pairs into stream names like "btcusdt@depth10@100ms".
func BuildStreams(pairs []string, depthStream string) ([]string, error) {
	ds := strings.TrimSpace(depthStream)
	if ds == "" {
		return nil, fmt.Errorf("depth stream suffix is empty (expected like %q)", "depth10@100ms")
	}

	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, strings.ToLower(p)+"@"+ds)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no valid pairs provided")
	}
	return out, nil
}

func NewClient(logger *zap.Logger, opts Options) (*Client, error) {
	streams, err := BuildStreams(opts.Pairs, opts.DepthStream)
	if err != nil {
		return nil, err
	}
	if opts.SubscribeBatchSize < 1 {
		opts.SubscribeBatchSize = 1
	}
	return &Client{
		logger:  logger,
		opts:    opts,
		streams: streams,
	}, nil
}

// Run drives the reconnect loop until ctx is cancelled. Every decoded frame
// is handed to out; out must not block.
func (c *Client) Run(ctx context.Context, out func(gateway.Message)) {
	bo := newBackoff(
		c.opts.ReconnectMinDelay,
		c.opts.ReconnectMaxDelay,
		c.opts.ReconnectBackoff,
		c.opts.ReconnectJitter,
	)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := c.runSession(ctx, out, bo)
		if ctx.Err() != nil {
			c.logger.Info("websocket client stopped")
			return
		}
		if err != nil {
			c.logger.Warn("websocket session ended", zap.Error(err))
		}

		sleep := bo.Next()
		c.logger.Info("reconnecting", zap.Duration("sleep", sleep))
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// runSession performs one connect/subscribe/stream cycle. The backoff is
// reset only after subscribing, not on a bare TCP connect.
func (c *Client) runSession(ctx context.Context, out func(gateway.Message), bo *backoff) error {
	c.logger.Info("connecting to binance websocket", zap.String("url", c.opts.URL))

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	infrastructure.WSConnections.Inc()
	defer infrastructure.WSConnections.Dec()

	// Close the connection from outside when stopping so a blocked read is
	// abandoned instead of waited on.
	sessionDone := make(chan struct{})
	defer close(sessionDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-sessionDone:
		}
	}()

	if err := c.subscribe(conn); err != nil {
		return err
	}
	bo.Reset()

	readTimeout := c.opts.PingInterval + c.opts.PingTimeout
	if readTimeout <= 0 {
		readTimeout = 60 * time.Second
	}

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})
	// Binance pings the client; answer and treat it as liveness.
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(10*time.Second))
	})

	c.logger.Info("streaming", zap.Int("streams", len(c.streams)))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if len(raw) == 0 {
			continue
		}

		msg, err := decodeFrame(raw)
		if err != nil {
			// Malformed frames are dropped; the connection stays up.
			c.logger.Warn("failed to decode frame",
				zap.Error(err), zap.ByteString("raw", truncateRaw(raw, 300)))
			infrastructure.MessagesDropped.WithLabelValues("decode_error").Inc()
			continue
		}

		infrastructure.MessagesReceived.Inc()
		out(msg)
	}
}

// subscribe sends SUBSCRIBE requests in batches; a single request above the
// exchange's size limit would be rejected. Request ids are monotonically
// increasing for the client's lifetime.
func (c *Client) subscribe(conn *websocket.Conn) error {
	size := c.opts.SubscribeBatchSize
	total := (len(c.streams) + size - 1) / size

	for i := 0; i < len(c.streams); i += size {
		end := i + size
		if end > len(c.streams) {
			end = len(c.streams)
		}

		c.subID++
		req := subscribeRequest{Method: "SUBSCRIBE", Params: c.streams[i:end], ID: c.subID}
		if err := conn.WriteJSON(req); err != nil {
			return fmt.Errorf("subscribe batch %d/%d: %w", i/size+1, total, err)
		}

		c.logger.Info("subscribed",
			zap.Int("batch", i/size+1),
			zap.Int("batches", total),
			zap.Int("streams", end-i))
	}
	return nil
}

// decodeFrame unwraps combined-stream envelopes ({"stream":..., "data":...});
// raw-endpoint frames carry the payload at the top level.
func decodeFrame(raw []byte) (gateway.Message, error) {
	var env struct {
		Stream string          `json:"stream"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return gateway.Message{}, err
	}

	data := env.Data
	if len(data) == 0 {
		data = raw
	}

	return gateway.Message{
		Stream:   env.Stream,
		Data:     data,
		Received: time.Now().UTC(),
	}, nil
}

func truncateRaw(raw []byte, n int) []byte {
	if len(raw) <= n {
		return raw
	}
	return raw[:n]
}
