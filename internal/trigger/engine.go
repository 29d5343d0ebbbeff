package trigger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/R-Kotenko/ImbalanceTracker/internal/model"
)

// Op is a comparison operator from trigger configuration.
type Op string

const (
	OpGTE Op = ">="
	OpLTE Op = "<="
	OpGT  Op = ">"
	OpLT  Op = "<"
	OpEQ  Op = "=="
)

// EmitMode controls when a true condition produces an event.
type EmitMode string

const (
	// EmitEdge emits only on the false/unknown -> true transition.
	EmitEdge EmitMode = "edge"
	// EmitAlways emits on every true evaluation once cooldown clears.
	EmitAlways EmitMode = "always"
)

// Config is one immutable trigger rule.
type Config struct {
	Name     string
	Metric   string
	Op       Op
	Value    decimal.Decimal
	Cooldown time.Duration
	Emit     EmitMode
}

type stateKey struct {
	pair string
	name string
}

type state struct {
	lastEmit      time.Time
	lastCondition *bool // nil until the first evaluation
}

// Engine evaluates metric points against configured triggers. State is keyed
// by (pair, trigger name), owned exclusively by the engine, and lives for the
// process lifetime. Not safe for concurrent use; the gateway dispatch loop is
// its only caller.
type Engine struct {
	logger   *zap.Logger
	triggers []Config
	states   map[stateKey]*state
}

// NewEngine validates every rule up front: an unsupported operator or emit
// mode is a configuration error and fails fast.
func NewEngine(triggers []Config, logger *zap.Logger) (*Engine, error) {
	for _, t := range triggers {
		switch t.Op {
		case OpGTE, OpLTE, OpGT, OpLT, OpEQ:
		default:
			return nil, fmt.Errorf("trigger %q: unsupported op %q", t.Name, t.Op)
		}
		switch t.Emit {
		case EmitEdge, EmitAlways:
		default:
			return nil, fmt.Errorf("trigger %q: unsupported emit mode %q", t.Name, t.Emit)
		}
		if t.Name == "" {
			return nil, fmt.Errorf("trigger with empty name")
		}
	}

	logger.Info("trigger engine ready", zap.Int("rules", len(triggers)))

	return &Engine{
		logger:   logger,
		triggers: triggers,
		states:   make(map[stateKey]*state),
	}, nil
}

func compare(op Op, a, b decimal.Decimal) bool {
	switch op {
	case OpGTE:
		return a.GreaterThanOrEqual(b)
	case OpLTE:
		return a.LessThanOrEqual(b)
	case OpGT:
		return a.GreaterThan(b)
	case OpLT:
		return a.LessThan(b)
	case OpEQ:
		return a.Equal(b)
	}
	return false
}

func cooldownPassed(lastEmit, now time.Time, cooldown time.Duration) bool {
	if cooldown <= 0 {
		return true
	}
	if lastEmit.IsZero() {
		return true
	}
	return now.Sub(lastEmit) >= cooldown
}

// Process evaluates every trigger whose metric matches the point and returns
// the emitted events. Event timestamps carry the point's feed time, not
// evaluation time.
func (e *Engine) Process(mp model.MetricPoint) []model.TriggerEvent {
	now := mp.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var events []model.TriggerEvent

	for i := range e.triggers {
		t := &e.triggers[i]
		if t.Metric != mp.Name {
			continue
		}

		k := stateKey{pair: mp.Pair, name: t.Name}
		st := e.states[k]
		if st == nil {
			st = &state{}
			e.states[k] = st
		}

		cond := compare(t.Op, mp.Value, t.Value)

		if cond && cooldownPassed(st.lastEmit, now, t.Cooldown) {
			emit := t.Emit == EmitAlways ||
				st.lastCondition == nil || !*st.lastCondition

			if emit {
				st.lastEmit = now
				events = append(events, model.TriggerEvent{
					Pair:        mp.Pair,
					TriggerName: t.Name,
					Metric:      mp.Name,
					MetricValue: mp.Value,
					BidVolume:   mp.BidVolume,
					AskVolume:   mp.AskVolume,
					Timestamp:   now,
					Message:     buildMessage(t, mp),
				})
			}
		}

		c := cond
		st.lastCondition = &c
	}

	return events
}

func buildMessage(t *Config, mp model.MetricPoint) string {
	return fmt.Sprintf("%s: %s %s %s | value=%s | bid=%s ask=%s",
		t.Name, mp.Name, t.Op, t.Value.String(),
		mp.Value.StringFixed(6),
		mp.BidVolume.StringFixed(6), mp.AskVolume.StringFixed(6))
}
