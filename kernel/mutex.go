package kernel

import "github.com/joeycumines/go-rtos/internal/dlist"

// Mutex implements §4.E's binary, priority-inheriting, non-recursive mutex.
//
// Unlock restores the caller's priority to its original value unconditionally,
// not to whatever priority is implied by any other mutex it still holds —
// correct for a task holding at most one inheritance-boosting mutex at a
// time, and a known simplification otherwise.
type Mutex struct {
	locked  bool
	owner   *Task
	waiters dlist.List[*Task]
	deleted bool
}

// CreateMutex implements §4.E mutex creation.
func (k *Kernel) CreateMutex() (*Mutex, error) {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	if len(k.mutexes) >= k.cfg.MaxSemaphores {
		return nil, ErrCapacity
	}
	m := &Mutex{}
	k.mutexes = append(k.mutexes, m)
	return m, nil
}

// reprioritize changes t's current (possibly inheritance-boosted) priority
// without touching its original priority, re-queuing it if it is currently
// READY so its ready-class membership stays consistent.
func (k *Kernel) reprioritize(t *Task, priority int) {
	if t.priority == priority {
		return
	}
	wasReady := t.state == StateReady
	if wasReady {
		k.detach(t)
	}
	t.priority = priority
	if wasReady {
		k.addToReady(t)
	}
}

// LockMutex implements §4.E mutex lock(mutex, timeout), including priority
// inheritance: a higher-priority caller boosts the current owner's priority
// to its own, monotonically (§4.E's rationale: the ceiling only rises).
// Named distinctly from the scheduler's own Lock/Unlock (§4.D's nest-counted
// switch-suppression guard), since Go methods on *Kernel can't overload on
// parameter list alone.
func (k *Kernel) LockMutex(m *Mutex, timeoutTicks uint32) error {
	prev := k.enterKernel()
	defer k.crit.exitCritical(prev)

	if m.deleted {
		return ErrDeleted
	}
	t := k.current
	if !m.locked {
		m.locked = true
		m.owner = t
		return nil
	}
	if m.owner == t {
		return protocolf("mutex already locked by the calling task (non-recursive)")
	}
	if timeoutTicks == 0 {
		return ErrTimeout
	}

	if t.priority < m.owner.priority {
		k.reprioritize(m.owner, t.priority)
	}

	t.blockReason = BlockMutex
	t.wakeDeleted = false
	if timeoutTicks != Infinite {
		t.delayUntil = k.time.Now() + Tick(timeoutTicks)
		t.timeoutArmed = true
	} else {
		t.timeoutArmed = false
	}
	t.state = StateBlocked
	m.waiters.PushBack(&t.link)
	k.contextSwitch()

	if t.wakeDeleted {
		return ErrDeleted
	}
	if t.blockReason != BlockNone {
		return ErrTimeout
	}
	return nil
}

// UnlockMutex implements §4.E mutex unlock(mutex): restores the caller's
// original priority if it was boosted, then either hands the lock directly
// to the highest-priority waiter (the mutex stays locked throughout,
// avoiding an intermediate unlocked window) or marks it free.
func (k *Kernel) UnlockMutex(m *Mutex) error {
	prev := k.enterKernel()
	defer k.crit.exitCritical(prev)

	if m.deleted {
		return ErrDeleted
	}
	t := k.current
	if !m.locked || m.owner != t {
		return protocolf("unlock by non-owner task %q", t.name)
	}

	if t.priority != t.origPri {
		k.reprioritize(t, t.origPri)
	}

	next := m.bestWaiter()
	if next == nil {
		m.locked = false
		m.owner = nil
		return nil
	}
	m.owner = next
	k.unblockTask(next, true)
	k.contextSwitch()
	return nil
}

// bestWaiter returns the highest-priority (lowest priority value) waiter,
// breaking ties in FIFO (insertion) order.
func (m *Mutex) bestWaiter() *Task {
	var best *Task
	m.waiters.Do(func(n *dlist.Node[*Task]) {
		if best == nil || n.Value.priority < best.priority {
			best = n.Value
		}
	})
	return best
}

// IsLocked implements §4.E is_locked.
func (k *Kernel) IsLocked(m *Mutex) bool {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	return m.locked
}

// DeleteMutex implements §4.E mutex delete: restores the owner's boosted
// priority (if any) and unblocks every waiter with ErrDeleted.
func (k *Kernel) DeleteMutex(m *Mutex) {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	m.deleted = true
	if m.owner != nil && m.owner.priority != m.owner.origPri {
		k.reprioritize(m.owner, m.owner.origPri)
	}
	for n := m.waiters.Front(); n != nil; n = m.waiters.Front() {
		t := n.Value
		t.wakeDeleted = true
		k.unblockTask(t, false)
	}
	k.contextSwitch()
}
