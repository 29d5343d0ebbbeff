package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func snapshotMsg(stream string) Message {
	return Message{
		Stream: stream,
		Data:   json.RawMessage(`{"lastUpdateId":1,"bids":[["100","2"]],"asks":[["101","1"]]}`),
	}
}

func TestPairFromStream(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"btcusdt@depth10@100ms", "BTCUSDT"},
		{"ethusdt@depth", "ETHUSDT"},
		{"btcusdt", ""},
		{"", ""},
		{"@depth10", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, PairFromStream(tt.input))
		})
	}
}

func TestPush_ShedsWhenFull(t *testing.T) {
	g := New(zap.NewNop(), 2, nil, nil)

	g.Push(snapshotMsg("a@depth"))
	g.Push(snapshotMsg("b@depth"))
	g.Push(snapshotMsg("c@depth")) // queue at capacity: dropped, not queued

	assert.Equal(t, 2, len(g.queue))
}

func TestPush_RefusesAfterStop(t *testing.T) {
	g := New(zap.NewNop(), 2, nil, nil)
	g.Stop()

	g.Push(snapshotMsg("a@depth"))

	assert.Equal(t, 0, len(g.queue))
}

func TestDispatch_ClassifiesAndEnriches(t *testing.T) {
	var got []Message
	handler := func(_ context.Context, msg Message) error {
		got = append(got, msg)
		return nil
	}

	g := New(zap.NewNop(), 10, nil, []DepthHandler{handler})

	// combined-stream snapshot: pair derived from the stream name
	g.dispatch(context.Background(), snapshotMsg("btcusdt@depth10@100ms"))

	// diff event without a stream name: pair taken from the payload
	g.dispatch(context.Background(), Message{
		Data: json.RawMessage(`{"e":"depthUpdate","s":"ethusdt","u":7,"b":[["10","1"]],"a":[["11","1"]]}`),
	})

	// subscribe ack and junk never reach handlers
	g.dispatch(context.Background(), Message{Data: json.RawMessage(`{"result":null,"id":1}`)})
	g.dispatch(context.Background(), Message{Data: json.RawMessage(`{"hello":"world"}`)})

	require.Len(t, got, 2)
	assert.Equal(t, "BTCUSDT", got[0].Pair)
	assert.Equal(t, KindSnapshot, got[0].Kind)
	assert.Equal(t, "ETHUSDT", got[1].Pair)
	assert.Equal(t, KindDepthUpdate, got[1].Kind)
}

func TestDispatch_MiddlewareVetoShortCircuits(t *testing.T) {
	secondCalled := false
	veto := func(Message) (Message, bool) { return Message{}, false }
	second := func(msg Message) (Message, bool) {
		secondCalled = true
		return msg, true
	}

	var handled int
	handler := func(context.Context, Message) error {
		handled++
		return nil
	}

	g := New(zap.NewNop(), 10, []Middleware{veto, second}, []DepthHandler{handler})
	g.dispatch(context.Background(), snapshotMsg("btcusdt@depth10@100ms"))

	assert.False(t, secondCalled)
	assert.Zero(t, handled)
}

func TestDropSubscribeAcks(t *testing.T) {
	mw := DropSubscribeAcks()

	_, ok := mw(Message{Data: json.RawMessage(`{"result":null,"id":3}`)})
	assert.False(t, ok)

	// depth payloads pass through
	_, ok = mw(snapshotMsg("btcusdt@depth10@100ms"))
	assert.True(t, ok)
}

func TestOnlyDepthStreams(t *testing.T) {
	mw := OnlyDepthStreams()

	_, ok := mw(Message{Stream: "btcusdt@trade"})
	assert.False(t, ok)

	_, ok = mw(Message{Stream: "btcusdt@depth10@100ms"})
	assert.True(t, ok)

	// frames without a stream name are not the middleware's business
	_, ok = mw(Message{})
	assert.True(t, ok)
}

func TestDispatch_HandlerFailuresAreIsolated(t *testing.T) {
	var calls []string
	failing := func(context.Context, Message) error {
		calls = append(calls, "failing")
		return errors.New("boom")
	}
	panicking := func(context.Context, Message) error {
		calls = append(calls, "panicking")
		panic("boom")
	}
	recording := func(context.Context, Message) error {
		calls = append(calls, "recording")
		return nil
	}

	g := New(zap.NewNop(), 10, nil, []DepthHandler{failing, panicking, recording})

	g.dispatch(context.Background(), snapshotMsg("btcusdt@depth10@100ms"))
	g.dispatch(context.Background(), snapshotMsg("btcusdt@depth10@100ms"))

	assert.Equal(t, []string{
		"failing", "panicking", "recording",
		"failing", "panicking", "recording",
	}, calls)
}

func TestRun_PreservesOrdering(t *testing.T) {
	const n = 20

	var streams []string
	done := make(chan struct{})
	handler := func(_ context.Context, msg Message) error {
		streams = append(streams, msg.Stream)
		if len(streams) == n {
			close(done)
		}
		return nil
	}

	g := New(zap.NewNop(), n, nil, []DepthHandler{handler})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.Run(ctx)

	var want []string
	for i := 0; i < n; i++ {
		stream := fmt.Sprintf("pair%02d@depth", i)
		want = append(want, stream)
		g.Push(snapshotMsg(stream))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch loop did not drain the queue")
	}

	assert.Equal(t, want, streams)
}
