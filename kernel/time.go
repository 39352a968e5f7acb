package kernel

import (
	"sync/atomic"
	"time"
)

// Tick is the kernel's 32-bit monotonic time unit (§4.A). Deadline
// comparisons use signed-difference arithmetic (tickBefore/tickAfterOrEqual) so a
// wraparound of the counter is invisible within one wrap-period, per §4.A.
type Tick uint32

// Infinite is the MAX_TIMEOUT sentinel (§6): an infinite timeout for
// blocking IPC calls.
const Infinite uint32 = 0xFFFFFFFF

// tickBefore reports whether a is strictly before b, tolerating wraparound
// by comparing (a-b) as a signed 32-bit difference.
func tickBefore(a, b Tick) bool {
	return int32(a-b) < 0
}

// tickAfterOrEqual reports whether a is at or past b, tolerating
// wraparound.
func tickAfterOrEqual(a, b Tick) bool {
	return int32(a-b) >= 0
}

// timeBase implements §4.A: a monotonic tick counter plus ms<->tick
// conversion, driven by an external tick() call.
type timeBase struct {
	now        atomic.Uint32
	tickPeriod time.Duration
}

func newTimeBase(period time.Duration) *timeBase {
	return &timeBase{tickPeriod: period}
}

// Now returns the current tick count (§4.A now()).
func (tb *timeBase) Now() Tick { return Tick(tb.now.Load()) }

// MsToTicks converts a millisecond duration to a tick count, rounding up so
// a caller asking for "at least N ms" never gets fewer ticks than that.
func (tb *timeBase) MsToTicks(ms uint32) uint32 {
	period := tb.tickPeriod.Milliseconds()
	if period <= 0 {
		period = 1
	}
	return uint32((int64(ms) + period - 1) / period)
}

// TicksToMs converts a tick count to milliseconds.
func (tb *timeBase) TicksToMs(ticks uint32) uint32 {
	return uint32(int64(ticks) * tb.tickPeriod.Milliseconds())
}

// SetTickRate reconfigures the wall-clock period one tick represents. It
// does not affect the tick counter itself, only ms<->tick conversion.
func (tb *timeBase) SetTickRate(period time.Duration) { tb.tickPeriod = period }

// advance atomically increments the tick counter by one and returns the new
// value. Called exactly once per tick() delivery (§4.A).
func (tb *timeBase) advance() Tick {
	return Tick(tb.now.Add(1))
}
