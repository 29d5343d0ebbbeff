package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/R-Kotenko/ImbalanceTracker/internal/infrastructure"
)

// Kind classifies a message once at the gateway boundary so downstream
// handlers never probe open maps.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindSnapshot
	KindDepthUpdate
	KindSubscribeAck
)

// Message is one decoded feed frame moving through the gateway.
type Message struct {
	Stream   string
	Pair     string
	Kind     Kind
	Data     json.RawMessage
	Received time.Time
}

// Middleware may pass a message through, rewrite it, or veto it (ok=false).
// A veto stops the chain and discards the message.
type Middleware func(msg Message) (Message, bool)

// DepthHandler consumes classified depth messages. Errors are logged and
// never stop the dispatch loop.
type DepthHandler func(ctx context.Context, msg Message) error

// Gateway decouples network arrival from processing: a bounded queue with a
// single consumer, an ordered middleware chain, enrichment, classification
// and sequential handler dispatch.
type Gateway struct {
	logger      *zap.Logger
	queue       chan Message
	middlewares []Middleware
	handlers    []DepthHandler
	stopped     atomic.Bool
}

func New(logger *zap.Logger, queueSize int, middlewares []Middleware, handlers []DepthHandler) *Gateway {
	return &Gateway{
		logger:      logger,
		queue:       make(chan Message, queueSize),
		middlewares: middlewares,
		handlers:    handlers,
	}
}

// Push enqueues a message without blocking. When the queue is full the
// newest message is shed so the producer never stalls.
func (g *Gateway) Push(msg Message) {
	if g.stopped.Load() {
		return
	}
	select {
	case g.queue <- msg:
		infrastructure.GatewayQueueLength.Set(float64(len(g.queue)))
	default:
		infrastructure.MessagesDropped.WithLabelValues("queue_full").Inc()
		g.logger.Warn("gateway queue full, dropping message", zap.String("stream", msg.Stream))
	}
}

// Stop prevents further messages from being enqueued. The dispatch loop
// finishes its in-flight message and exits once its context is cancelled.
func (g *Gateway) Stop() {
	g.stopped.Store(true)
}

// Run is the dispatch loop: single consumer, one message at a time to
// completion, ordering preserved.
func (g *Gateway) Run(ctx context.Context) {
	g.logger.Info("gateway started", zap.Int("queue_size", cap(g.queue)))

	for {
		select {
		case <-ctx.Done():
			g.Stop()
			g.logger.Info("gateway stopped")
			return
		case msg := <-g.queue:
			infrastructure.GatewayQueueLength.Set(float64(len(g.queue)))
			g.dispatch(ctx, msg)
		}
	}
}

func (g *Gateway) dispatch(ctx context.Context, msg Message) {
	out, ok := g.applyMiddlewares(msg)
	if !ok {
		return
	}

	out = enrich(out)
	out.Kind = classify(out.Data)

	if out.Kind != KindSnapshot && out.Kind != KindDepthUpdate {
		return
	}

	for _, h := range g.handlers {
		g.invoke(ctx, h, out)
	}
}

// invoke isolates one handler call: an error or panic is logged and does not
// affect remaining handlers or subsequent messages.
func (g *Gateway) invoke(ctx context.Context, h DepthHandler, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("depth handler panicked",
				zap.Any("panic", r), zap.String("pair", msg.Pair))
		}
	}()

	if err := h(ctx, msg); err != nil {
		g.logger.Error("depth handler failed",
			zap.String("pair", msg.Pair), zap.Error(err))
	}
}

func (g *Gateway) applyMiddlewares(msg Message) (Message, bool) {
	cur := msg
	for _, mw := range g.middlewares {
		next, ok := mw(cur)
		if !ok {
			return Message{}, false
		}
		cur = next
	}
	return cur, true
}

// PairFromStream derives the pair symbol from a stream name such as
// "btcusdt@depth10@100ms".
func PairFromStream(stream string) string {
	if stream == "" || !strings.Contains(stream, "@") {
		return ""
	}
	sym := strings.TrimSpace(stream[:strings.Index(stream, "@")])
	return strings.ToUpper(sym)
}

// enrich attaches the pair symbol, taken from the stream name or from the
// payload's own symbol field.
func enrich(msg Message) Message {
	if p := PairFromStream(msg.Stream); p != "" {
		msg.Pair = p
	}

	var probe struct {
		Symbol string `json:"s"`
	}
	if err := json.Unmarshal(msg.Data, &probe); err == nil && probe.Symbol != "" {
		msg.Pair = strings.ToUpper(probe.Symbol)
	}
	return msg
}

func classify(data json.RawMessage) Kind {
	var probe struct {
		Event  string          `json:"e"`
		Bids   json.RawMessage `json:"bids"`
		Asks   json.RawMessage `json:"asks"`
		Result json.RawMessage `json:"result"`
		ID     *int64          `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return KindUnrecognized
	}

	switch {
	case len(probe.Bids) > 0 && len(probe.Asks) > 0:
		return KindSnapshot
	case probe.Event == "depthUpdate":
		return KindDepthUpdate
	case probe.ID != nil && isJSONNull(probe.Result):
		return KindSubscribeAck
	}
	return KindUnrecognized
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) == "null"
}
