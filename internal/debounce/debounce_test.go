package debounce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"constellation/internal/clock"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDebouncer_TrailingEdge(t *testing.T) {
	c := clock.NewManual(epoch)
	d := New(c, 100*time.Millisecond, 0)
	calls := 0

	d.Trigger(func() { calls++ })
	c.Advance(60 * time.Millisecond)
	d.Trigger(func() { calls++ })
	c.Advance(60 * time.Millisecond)
	assert.Equal(t, 0, calls, "re-trigger restarts the quiet period")
	assert.True(t, d.Pending())

	c.Advance(40 * time.Millisecond)
	assert.Equal(t, 1, calls)
	assert.False(t, d.Pending())
}

func TestDebouncer_LatestFunctionWins(t *testing.T) {
	c := clock.NewManual(epoch)
	d := New(c, 10*time.Millisecond, 0)
	var got string

	d.Trigger(func() { got = "first" })
	d.Trigger(func() { got = "second" })
	c.Advance(10 * time.Millisecond)

	assert.Equal(t, "second", got)
}

func TestDebouncer_MaxWaitCeiling(t *testing.T) {
	c := clock.NewManual(epoch)
	d := New(c, 100*time.Millisecond, 250*time.Millisecond)
	calls := 0

	// Keep triggering every 50ms; the quiet period never elapses.
	for i := 0; i < 4; i++ {
		d.Trigger(func() { calls++ })
		c.Advance(50 * time.Millisecond)
	}
	assert.Equal(t, 0, calls)

	d.Trigger(func() { calls++ })
	c.Advance(50 * time.Millisecond)
	assert.Equal(t, 1, calls, "max wait forces a flush 250ms after the burst began")
}

func TestDebouncer_Cancel(t *testing.T) {
	c := clock.NewManual(epoch)
	d := New(c, 10*time.Millisecond, 0)
	calls := 0

	d.Trigger(func() { calls++ })
	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel())

	c.Advance(time.Second)
	assert.Equal(t, 0, calls)
}

func TestDebouncer_Flush(t *testing.T) {
	c := clock.NewManual(epoch)
	d := New(c, time.Hour, 0)
	calls := 0

	assert.False(t, d.Flush())
	d.Trigger(func() { calls++ })
	assert.True(t, d.Flush())
	assert.Equal(t, 1, calls)

	c.Advance(2 * time.Hour)
	assert.Equal(t, 1, calls, "flushed call does not fire again")
}
