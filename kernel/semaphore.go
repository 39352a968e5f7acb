package kernel

import "github.com/joeycumines/go-rtos/internal/dlist"

// Semaphore implements §4.E's counting semaphore.
type Semaphore struct {
	count   int
	max     int
	waiters dlist.List[*Task]
	deleted bool
}

// CreateSemaphore implements §4.E semaphore creation: locates a free slot in
// the MAX_SEMAPHORES pool, or fails with ErrCapacity.
func (k *Kernel) CreateSemaphore(initial, max int) (*Semaphore, error) {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	if max <= 0 || initial < 0 || initial > max {
		return nil, invalidArgf("invalid semaphore bounds (initial=%d, max=%d)", initial, max)
	}
	if len(k.semaphores) >= k.cfg.MaxSemaphores {
		return nil, ErrCapacity
	}
	s := &Semaphore{count: initial, max: max}
	k.semaphores = append(k.semaphores, s)
	return s, nil
}

// Take implements §4.E semaphore take(sem, timeout).
func (k *Kernel) Take(s *Semaphore, timeoutTicks uint32) error {
	prev := k.enterKernel()
	defer k.crit.exitCritical(prev)

	if s.deleted {
		return ErrDeleted
	}
	if s.count > 0 {
		s.count--
		return nil
	}
	if timeoutTicks == 0 {
		return ErrTimeout
	}

	t := k.current
	t.blockReason = BlockSemaphore
	t.wakeDeleted = false
	if timeoutTicks != Infinite {
		t.delayUntil = k.time.Now() + Tick(timeoutTicks)
		t.timeoutArmed = true
	} else {
		t.timeoutArmed = false
	}
	t.state = StateBlocked
	s.waiters.PushBack(&t.link)
	k.contextSwitch()

	if t.wakeDeleted {
		return ErrDeleted
	}
	if t.blockReason != BlockNone {
		return ErrTimeout
	}
	return nil
}

// Give implements §4.E semaphore give(sem): handing the count directly to a
// waiter (so the increment and the waiter's decrement cancel) if one is
// present, else incrementing count, bounded by max.
func (k *Kernel) Give(s *Semaphore) error {
	prev := k.enterKernel()
	defer k.crit.exitCritical(prev)

	if s.deleted {
		return ErrDeleted
	}
	if n := s.waiters.Front(); n != nil {
		k.unblockTask(n.Value, true)
		k.contextSwitch()
		return nil
	}
	if s.count >= s.max {
		k.logger.Warnf("kernel: give on semaphore already at max count %d", s.max)
		return protocolf("semaphore already at maximum count %d", s.max)
	}
	s.count++
	return nil
}

// SemaphoreCount implements §4.E get_count(sem).
func (k *Kernel) SemaphoreCount(s *Semaphore) int {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	return s.count
}

// DeleteSemaphore implements §4.E delete(sem): every waiter wakes with
// ErrDeleted, and the slot is marked dead (not reclaimed from the pool
// slice, matching the fixed-capacity-for-life-of-kernel pool model).
func (k *Kernel) DeleteSemaphore(s *Semaphore) {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	s.deleted = true
	for n := s.waiters.Front(); n != nil; n = s.waiters.Front() {
		t := n.Value
		t.wakeDeleted = true
		k.unblockTask(t, false)
	}
	k.contextSwitch()
}
