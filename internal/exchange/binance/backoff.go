package binance

import (
	"math/rand"
	"time"
)

// backoff implements the reconnect delay schedule: multiplicative growth
// clamped to a maximum, uniform jitter on each sleep, reset to the minimum
// only after a fully subscribed session.
type backoff struct {
	min    time.Duration
	max    time.Duration
	factor float64
	jitter float64

	delay time.Duration
	rand  *rand.Rand
}

func newBackoff(min, max time.Duration, factor, jitter float64) *backoff {
	if min <= 0 {
		min = 500 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if factor < 1 {
		factor = 1
	}
	return &backoff{
		min:    min,
		max:    max,
		factor: factor,
		jitter: jitter,
		delay:  min,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the sleep before the next attempt and advances the schedule.
// The sleep is delay*(1+j) with j drawn uniformly from [-jitter, +jitter],
// clamped to [0, max].
func (b *backoff) Next() time.Duration {
	j := 1 + (b.rand.Float64()*2-1)*b.jitter
	sleep := time.Duration(float64(b.delay) * j)
	if sleep > b.max {
		sleep = b.max
	}
	if sleep < 0 {
		sleep = 0
	}

	next := time.Duration(float64(b.delay) * b.factor)
	if next > b.max {
		next = b.max
	}
	b.delay = next

	return sleep
}

// Reset returns the schedule to its minimum delay.
func (b *backoff) Reset() {
	b.delay = b.min
}
