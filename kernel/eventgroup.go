package kernel

import "github.com/joeycumines/go-rtos/internal/dlist"

// EventGroup implements §4.E's 32-bit event flag group with ALL/ANY/CLEAR
// wait semantics.
type EventGroup struct {
	flags   uint32
	waiters dlist.List[*Task]
	deleted bool
}

// CreateEventGroup implements §4.E event group creation.
func (k *Kernel) CreateEventGroup() (*EventGroup, error) {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	if len(k.eventGroups) >= k.cfg.MaxSemaphores {
		return nil, ErrCapacity
	}
	g := &EventGroup{}
	k.eventGroups = append(k.eventGroups, g)
	return g, nil
}

func (w waitSpec) satisfied(flags uint32) bool {
	if w.mode == EventWaitAll {
		return flags&w.mask == w.mask
	}
	return flags&w.mask != 0
}

// SetFlags implements §4.E set_flags(group, mask) -> previous: ORs in mask,
// then re-evaluates every waiter's predicate in waiter order, waking (and
// optionally clearing) each one satisfied.
func (k *Kernel) SetFlags(g *EventGroup, mask uint32) (uint32, error) {
	prev := k.enterKernel()
	defer k.crit.exitCritical(prev)

	if g.deleted {
		return 0, ErrDeleted
	}
	previous := g.flags
	g.flags |= mask

	woke := false
	for n := g.waiters.Front(); n != nil; {
		next := n.Next()
		t := n.Value
		if t.blockWait.satisfied(g.flags) {
			// Record the matched bits for the waiter before any clear, so
			// Wait can still return them after they are gone from g.flags.
			t.blockWait.mask &= g.flags
			if t.blockWait.clear {
				g.flags &^= t.blockWait.mask
			}
			k.unblockTask(t, true)
			woke = true
		}
		n = next
	}
	if woke {
		k.contextSwitch()
	}
	return previous, nil
}

// ClearFlags implements §4.E clear_flags(group, mask) -> previous. Clearing
// never wakes a waiter.
func (k *Kernel) ClearFlags(g *EventGroup, mask uint32) (uint32, error) {
	prev := k.enterKernel()
	defer k.crit.exitCritical(prev)

	if g.deleted {
		return 0, ErrDeleted
	}
	previous := g.flags
	g.flags &^= mask
	return previous, nil
}

// Wait implements §4.E wait(group, mask, options, timeout).
func (k *Kernel) Wait(g *EventGroup, mask uint32, opt EventOption, clear bool, timeoutTicks uint32) (uint32, error) {
	prev := k.enterKernel()
	defer k.crit.exitCritical(prev)

	if g.deleted {
		return 0, ErrDeleted
	}
	spec := waitSpec{mask: mask, mode: opt, clear: clear}
	if spec.satisfied(g.flags) {
		matched := g.flags & mask
		if clear {
			g.flags &^= mask
		}
		return matched, nil
	}
	if timeoutTicks == 0 {
		return 0, ErrTimeout
	}

	t := k.current
	t.blockReason = BlockEvent
	t.blockWait = spec
	t.wakeDeleted = false
	if timeoutTicks != Infinite {
		t.delayUntil = k.time.Now() + Tick(timeoutTicks)
		t.timeoutArmed = true
	} else {
		t.timeoutArmed = false
	}
	t.state = StateBlocked
	g.waiters.PushBack(&t.link)
	k.contextSwitch()

	if t.wakeDeleted {
		return 0, ErrDeleted
	}
	if t.blockReason != BlockNone {
		return 0, ErrTimeout
	}
	if clear {
		return t.blockWait.mask, nil
	}
	matched := g.flags & mask
	return matched, nil
}

// Flags implements §4.E get_flags(group).
func (k *Kernel) Flags(g *EventGroup) uint32 {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	return g.flags
}

// DeleteEventGroup implements §4.E event group delete: unblocks every
// waiter with ErrDeleted.
func (k *Kernel) DeleteEventGroup(g *EventGroup) {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	g.deleted = true
	for n := g.waiters.Front(); n != nil; n = g.waiters.Front() {
		t := n.Value
		t.wakeDeleted = true
		k.unblockTask(t, false)
	}
	k.contextSwitch()
}
