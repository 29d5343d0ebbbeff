package binance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_GrowthAndClamp(t *testing.T) {
	bo := newBackoff(time.Second, 4*time.Second, 2, 0)

	// jitter 0: sleeps follow min * factor^N, clamped at max
	assert.Equal(t, 1*time.Second, bo.Next())
	assert.Equal(t, 2*time.Second, bo.Next())
	assert.Equal(t, 4*time.Second, bo.Next())
	assert.Equal(t, 4*time.Second, bo.Next())
}

func TestBackoff_ResetReturnsToMinimum(t *testing.T) {
	bo := newBackoff(time.Second, time.Minute, 3, 0)

	bo.Next()
	bo.Next()
	bo.Reset()

	assert.Equal(t, 1*time.Second, bo.Next())
}

func TestBackoff_JitterStaysWithinBounds(t *testing.T) {
	bo := newBackoff(time.Second, time.Hour, 1, 0.25)

	for i := 0; i < 200; i++ {
		sleep := bo.Next()
		assert.GreaterOrEqual(t, sleep, 750*time.Millisecond)
		assert.LessOrEqual(t, sleep, 1250*time.Millisecond)
	}
}

func TestBackoff_DefensiveDefaults(t *testing.T) {
	bo := newBackoff(0, -time.Second, 0.5, 0)

	sleep := bo.Next()
	assert.Greater(t, sleep, time.Duration(0))
	// factor below 1 must never shrink the delay
	assert.GreaterOrEqual(t, bo.Next(), sleep)
}
