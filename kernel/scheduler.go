package kernel

import "github.com/joeycumines/go-rtos/internal/dlist"

// This file implements §4.D: ready/suspended list routing, the four
// selection policies, the tick handler, and context-switch orchestration.

func (k *Kernel) addToReady(t *Task) {
	k.ready[t.priority].PushBack(&t.link)
}

func (k *Kernel) removeFromReady(t *Task) {
	k.ready[t.priority].Remove(&t.link)
}

// detach removes t from whatever single list it currently occupies (a
// ready class, the suspended list, or an IPC primitive's waiter list),
// matching I1's "at most one list at a time." A no-op if t is already
// detached (e.g. a pure DELAY block, which occupies no physical list and
// is instead discovered by tick()'s registry scan — see Open Question ii).
func (k *Kernel) detach(t *Task) {
	if l := t.link.List(); l != nil {
		l.Remove(&t.link)
	}
}

// selectNext implements the four selection policies (§4.D). It never
// returns the task currently marked RUNNING, because a RUNNING task holds
// no list membership (I1) and so is never a scan candidate; contextSwitch
// re-queues the outgoing task as READY before calling selectNext when the
// transition is voluntary, making self-reselection possible.
//
// PRIORITY, RR, and RMS all select by the same strict-scan, FIFO-within-
// class rule (selectByPriority): the queue rotation that distinguishes RR
// happens earlier, when the outgoing task is re-queued at the tail of its
// class (addToReady's PushBack) — not here. RR's real distinguishing
// behavior is the forced eviction in checkSlicePreemption, since by the
// time selectNext runs the node about to be picked is always about to be
// removed from the list regardless of any rotation performed on it.
func (k *Kernel) selectNext() *Task {
	switch k.policy {
	case PolicyEDF:
		if t := k.selectEDF(); t != nil {
			return t
		}
		return k.selectByPriority()
	case PolicyPriority, PolicyRR, PolicyRMS:
		return k.selectByPriority()
	default:
		return k.selectByPriority()
	}
}

// selectByPriority realizes the strict priority scan shared by PRIORITY,
// RR, and RMS: the highest non-empty class's front-of-queue task, FIFO
// within a class.
func (k *Kernel) selectByPriority() *Task {
	for p := range k.ready {
		n := k.ready[p].Front()
		if n == nil {
			continue
		}
		return n.Value
	}
	// Unreachable given I2 (the idle task is always ready when nothing
	// else is), but returning idle defensively costs nothing.
	return k.idle
}

// selectEDF scans all ready classes for the periodic task with the nearest
// absolute deadline, falling back to PRIORITY selection (handled by the
// caller) if none are ready.
func (k *Kernel) selectEDF() *Task {
	var best *Task
	for p := range k.ready {
		k.ready[p].Do(func(n *dlist.Node[*Task]) {
			t := n.Value
			if !t.periodic || t.period == 0 {
				return
			}
			if best == nil || tickBefore(t.absoluteDeadline, best.absoluteDeadline) {
				best = t
			}
		})
	}
	return best
}

// contextSwitch implements §4.D context_switch(): it requeues the outgoing
// task if it is still RUNNING (voluntary yield/tick preemption — a task
// that blocked or suspended itself has already left the RUNNING state
// before calling this), selects the next task, and on an actual switch
// hands control over via the baton-passing turnstile in context.go.
func (k *Kernel) contextSwitch() {
	old := k.current

	// A reschedule can be provoked by something other than the running
	// task's own goroutine: the tick source waking a delayed task, or an
	// "ISR-style" external caller giving a semaphore/setting event flags
	// from outside any task. Neither can physically hand off the baton in
	// context.go (that requires blocking on the outgoing task's own resume
	// channel, which only its own goroutine is parked on) — the bookkeeping
	// already performed by the caller stands, and the running task's own
	// next kernel call discovers the updated ready queue and switches then.
	// This is the same run-to-completion discipline the teacher's event
	// loop uses; nothing here can yank control away from a goroutine that
	// isn't cooperating.
	if old != nil && old.gid != goroutineID() {
		return
	}

	now := k.time.Now()

	if old != nil && old.state == StateRunning {
		old.state = StateReady
		k.addToReady(old)
	}
	if old != nil {
		burst := uint64(now - old.stats.burstStart)
		old.stats.RuntimeTicks += burst
		if burst > old.stats.MaxBurstTicks {
			old.stats.MaxBurstTicks = burst
		}
	}

	if k.lockDepth > 0 {
		k.pending = true
		return
	}

	next := k.selectNext()
	if next == old {
		// Self-reselection: undo the speculative re-queue above (if any)
		// without any goroutine handoff.
		if old.state == StateReady {
			k.detach(old)
			old.state = StateRunning
		}
		return
	}

	k.removeFromReady(next)
	next.state = StateRunning
	next.stats.LastStart = now
	next.stats.Activations++
	next.stats.burstStart = now
	k.current = next
	k.stats.ContextSwitches++
	k.switchContext(old, next)
}

// enterKernel is the common prologue for externally callable kernel
// operations that can be driven by a task busy-polling a primitive without
// ever itself calling Yield or Delay: it acquires the critical section and,
// on the outermost entry, applies any pending RR slice-expiry preemption
// before the caller's own request is serviced.
func (k *Kernel) enterKernel() (prev bool) {
	prev = k.crit.enterCritical()
	if !prev {
		k.checkSlicePreemption()
	}
	return prev
}

// checkSlicePreemption implements RR's forced eviction of a task that never
// calls Yield/Delay itself but keeps making other kernel calls (a semaphore
// poll loop, repeated non-blocking sends, and so on). Tick's RR branch
// counts the current task's slice down to zero but — being invoked from the
// tick driver's own goroutine — cannot perform the actual handoff (see
// contextSwitch's external-caller guard). This is the substitute: the next
// time that task's own goroutine re-enters the kernel for any reason, it
// rearms its slice and cedes to whatever selectNext picks, exactly like a
// real kernel's syscall-return preemption check. A quiet task that never
// calls into the kernel at all still can't be forced off a goroutine it
// owns — that remains out of reach in portable Go — but any task that
// interacts with the kernel periodically is now genuinely preempted under
// RR and never under PRIORITY/EDF/RMS, which don't decrement sliceRemaining
// (see Tick).
func (k *Kernel) checkSlicePreemption() {
	t := k.current
	if t == nil || t == k.idle || t.gid != goroutineID() || t.sliceRemaining != 0 {
		return
	}
	t.sliceRemaining = t.sliceTicks
	k.contextSwitch()
}

// unblockTask implements §4.D unblock_task: a no-op unless the task is
// BLOCKED. On success, block_reason is cleared to NONE before the task is
// made READY (the wake protocol of §5); on a timeout/deleted wake, the
// reason is left set so the blocking call can tell the difference. Detaches
// the task from whichever waiter list it occupies uniformly for every
// reason (sem/mutex/queue/event), resolving §9 Open Question (iii).
func (k *Kernel) unblockTask(t *Task, success bool) {
	if t.state != StateBlocked {
		return
	}
	k.detach(t)
	if success {
		t.blockReason = BlockNone
	}
	t.timeoutArmed = false
	t.state = StateReady
	k.addToReady(t)
	k.pending = true
}

// onTaskReturn implements the trampoline's step 3: marks a task TERMINATED
// once its entry function returns. A terminated task is removed from
// contention and never re-enters any list.
func (k *Kernel) onTaskReturn(t *Task) {
	prev := k.crit.enterCritical()
	t.state = StateTerminated
	k.contextSwitch()
	k.crit.exitCritical(prev)
}

// Lock implements §4.D lock(): a nest-counted guard suppressing context
// switches, distinct from the critical section (§5).
func (k *Kernel) Lock() {
	prev := k.crit.enterCritical()
	k.lockDepth++
	k.crit.exitCritical(prev)
}

// Unlock implements §4.D unlock(): bringing the nest count to zero
// triggers any context switch that was deferred while locked.
func (k *Kernel) Unlock() {
	prev := k.crit.enterCritical()
	k.lockDepth--
	trigger := k.lockDepth == 0 && k.pending
	if trigger {
		k.pending = false
	}
	if trigger {
		k.contextSwitch()
	}
	k.crit.exitCritical(prev)
}

// CheckDeadlines implements §4.D check_deadlines(): scans periodic tasks,
// counting (and recording) any whose absolute deadline has already passed
// while the task is not TERMINATED.
func (k *Kernel) CheckDeadlines() int {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	now := k.time.Now()
	count := 0
	for _, t := range k.tasksSnapshot() {
		if t.periodic && t.state != StateTerminated && tickBefore(t.absoluteDeadline, now) {
			t.stats.DeadlineMisses++
			k.stats.DeadlineMisses++
			count++
		}
	}
	return count
}

// Tick implements §4.D tick(): the single entry point an external monotonic
// tick source calls once per tick period (§4.A/§6). It advances the clock,
// expires delays and armed timeouts, releases periodic tasks, applies
// round-robin slice accounting, and asks for a context switch if warranted.
// Tick is ordinarily called from the tick driver's own goroutine, not from
// any task, so a switch requested here because some other task woke up is
// recorded in the ready queues but the actual handoff (see contextSwitch)
// is picked up the next time the running task itself re-enters the kernel —
// still within this same tick period's causal order, just not this call's
// stack frame. RR's own slice-expiry case is handled the same way, via
// checkSlicePreemption rather than a switch requested from here directly.
func (k *Kernel) Tick() {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	now := k.time.advance()
	if k.current == k.idle {
		k.stats.IdleTicks++
	}

	switched := false

	// Delay expiry and uniform timeout expiry (resolves Open Question ii:
	// the scheduler iterates the registry directly instead of a dedicated
	// blocked-list walk, since a task waiting on an IPC object already
	// lives in that object's own waiter list per I1's single-list rule).
	for _, t := range k.tasksSnapshot() {
		if t.state != StateBlocked {
			continue
		}
		if t.blockReason == BlockDelay {
			if tickAfterOrEqual(now, t.delayUntil) {
				k.unblockTask(t, true)
				switched = true
			}
			continue
		}
		if t.timeoutArmed && tickAfterOrEqual(now, t.delayUntil) {
			k.unblockTask(t, false)
			switched = true
		}
	}

	// Periodic release.
	for _, t := range k.tasksSnapshot() {
		if !t.periodic || !tickAfterOrEqual(now, t.nextRelease) {
			continue
		}
		if t.jobOutstanding {
			t.stats.DeadlineMisses++
			k.stats.DeadlineMisses++
		}
		t.jobOutstanding = true
		switch t.state {
		case StateSuspended:
			k.detach(t)
			t.state = StateReady
			k.addToReady(t)
			switched = true
		case StateBlocked:
			if t.blockReason == BlockDelay {
				k.unblockTask(t, true)
				switched = true
			}
		}
		t.nextRelease += t.period
		t.absoluteDeadline = t.nextRelease + t.deadline
	}

	// Round-robin slice accounting: counts the current task's burst down to
	// zero and leaves it there as a pending-preemption marker. Tick runs on
	// the tick driver's own goroutine, so it cannot perform the handoff
	// itself (contextSwitch's external-caller guard would veto it); the
	// marker is picked up by checkSlicePreemption the next time the current
	// task's own goroutine re-enters the kernel.
	if k.policy == PolicyRR && k.current != nil && k.current != k.idle && k.current.sliceRemaining > 0 {
		k.current.sliceRemaining--
	}

	if switched && k.lockDepth == 0 {
		k.contextSwitch()
	}
}

// Start implements §4.D start(): selects the first task to run (the
// highest-priority ready task, or idle if none) and hands control to it.
// Blocks until Stop is called. Must be called exactly once.
func (k *Kernel) Start() error {
	prev := k.crit.enterCritical()
	if k.started {
		k.crit.exitCritical(prev)
		return protocolf("kernel already started")
	}
	k.started = true
	first := k.selectNext()
	k.removeFromReady(first)
	first.state = StateRunning
	now := k.time.Now()
	first.stats.LastStart = now
	first.stats.Activations++
	first.stats.burstStart = now
	k.current = first
	k.crit.exitCritical(prev)

	k.startFirstTask(first)

	<-k.stopCh
	return nil
}

// Stop implements §4.D stop().
func (k *Kernel) Stop() {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	if k.started {
		select {
		case <-k.stopCh:
		default:
			close(k.stopCh)
		}
	}
}

// GetState reports whether the scheduler has been started (§4.D
// get_state()).
func (k *Kernel) GetState() bool {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	return k.started
}
