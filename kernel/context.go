package kernel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// criticalSection is the kernel's "disable interrupts" fence (§4.B). It
// protects kernel data structures (lists, counters, IPC state) from
// concurrent mutation by the tick-delivery goroutine while a task goroutine
// is running kernel code, and vice versa. Reentrant for nested calls made
// by whichever goroutine currently holds it, matching the teacher's
// isLoopThread/getGoroutineID reentrancy check (eventloop/loop.go),
// generalized from "am I the one loop goroutine" to "am I the goroutine
// that currently owns the critical section" since here two goroutines
// legitimately contend for it: the running task and the external tick
// driver.
type criticalSection struct {
	mu    sync.Mutex
	owner atomic.Uint64 // goroutine id of the current holder, 0 = unheld
	depth int           // only ever touched by the holder
}

// enterCritical acquires the section if not already held by this goroutine,
// and returns the previous "was already disabled" state, mirroring §4.B's
// enter_critical() -> prev_state.
func (c *criticalSection) enterCritical() (prev bool) {
	gid := goroutineID()
	if c.owner.Load() == gid {
		c.depth++
		return true
	}
	c.mu.Lock()
	c.owner.Store(gid)
	c.depth = 1
	return false
}

// exitCritical releases the section if prev is false (this was the
// outermost enter), matching §4.B's exit_critical(prev_state). Nested exits
// (prev == true) only decrement the depth counter.
func (c *criticalSection) exitCritical(prev bool) {
	c.depth--
	if prev {
		return
	}
	c.owner.Store(0)
	c.mu.Unlock()
}

// goroutineID returns the current goroutine's numeric id, parsed from the
// runtime stack trace header the same way the teacher's event loop
// identifies its own loop goroutine.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

// taskContext is a task's execution context (§4.B): a goroutine parked on a
// single-slot resume channel, used as a baton-passing turnstile so that
// exactly one task goroutine ever runs kernel/user code at a time. This
// realizes "stack-backed execution contexts" and switch_context/
// start_first_task without real stack-switching: the Go runtime already
// owns each goroutine's (growable) stack, and the baton channel provides
// the save/restore rendezvous the spec asks for.
type taskContext struct {
	resume chan struct{}
	done   chan struct{} // closed once the task's goroutine has returned
}

func newTaskContext() *taskContext {
	return &taskContext{
		resume: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// trampoline is the body of every task's goroutine, matching
// init_task_context's contract: wait to be first resumed, then exit the
// critical section that start_first_task/switch_context entered around the
// handoff, run entry(arg), then mark the task terminated and fall off (the
// scheduler will never select it again).
func (k *Kernel) trampoline(t *Task) {
	<-t.ctx.resume
	t.gid = goroutineID()
	k.crit.exitCritical(false)

	t.entry(t.arg)

	k.onTaskReturn(t)
	close(t.ctx.done)
}

// switchContext implements §4.B's switch_context(from, to): it must be
// called with the critical section held (prev==false, i.e. as the outermost
// holder, since it is about to block the calling goroutine and release
// ownership implicitly by parking). It wakes to, then parks the caller
// (from) until it is itself resumed again, exactly mirroring the teacher's
// single-slot wakeup-channel handoff (fastWakeupCh in eventloop/loop.go).
func (k *Kernel) switchContext(from, to *Task) {
	to.ctx.resume <- struct{}{}
	if from != nil && from.state != StateTerminated {
		k.crit.owner.Store(0) // the resuming task becomes the new holder
		<-from.ctx.resume
		k.crit.owner.Store(goroutineID())
	}
}

// startFirstTask implements §4.B's start_first_task: used exactly once,
// when the scheduler starts, from the goroutine that called Kernel.Start.
// That goroutine becomes the initial critical-section holder's logical
// continuation by blocking on stopCh (in Start) until the kernel stops.
func (k *Kernel) startFirstTask(to *Task) {
	prev := k.crit.enterCritical()
	_ = prev
	to.ctx.resume <- struct{}{}
	k.crit.owner.Store(0)
}
