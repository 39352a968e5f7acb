package timedriver

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSource struct {
	n atomic.Int64
}

func (c *countingSource) Tick() { c.n.Add(1) }

func TestDriverTicksPeriodically(t *testing.T) {
	src := &countingSource{}
	d := New(2*time.Millisecond, src)
	d.Start()
	time.Sleep(50 * time.Millisecond)
	d.Stop()

	assert.Greater(t, src.n.Load(), int64(5))
}

func TestDriverStopHaltsTicking(t *testing.T) {
	src := &countingSource{}
	d := New(time.Millisecond, src)
	d.Start()
	time.Sleep(5 * time.Millisecond)
	d.Stop()

	stoppedAt := src.n.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, stoppedAt, src.n.Load(), "no further ticks after Stop")
}
