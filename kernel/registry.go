package kernel

// This file implements §4.C's task registry operations.

func truncateName(name string, maxLen int) string {
	r := []rune(name)
	if len(r) > maxLen-1 {
		r = r[:maxLen-1]
	}
	return string(r)
}

// createTaskLocked allocates a TCB and its execution context, and enters it
// READY. Must be called with the critical section held. It does not enforce
// MAX_TASKS (used once, internally, for the idle task, before the registry
// has any capacity pressure); CreateTask wraps it with the full contract.
func (k *Kernel) createTaskLocked(name string, priority int, entry func(arg any), arg any) (*Task, error) {
	if priority < 0 || priority >= k.cfg.PriorityLevels {
		return nil, invalidArgf("priority %d out of range [0,%d)", priority, k.cfg.PriorityLevels)
	}
	if entry == nil {
		return nil, invalidArgf("nil entry function")
	}

	k.nextID++
	t := &Task{
		name:           truncateName(name, k.cfg.MaxTaskNameLen),
		id:             k.nextID,
		priority:       priority,
		origPri:        priority,
		state:          StateReady,
		entry:          entry,
		arg:            arg,
		sliceTicks:     k.cfg.DefaultTimeSlice,
		sliceRemaining: k.cfg.DefaultTimeSlice,
		ctx:            newTaskContext(),
	}
	t.stats.burstStart = k.time.Now()

	k.tasks[t.id] = t
	k.byName[t.name] = t
	k.addToReady(t)

	go k.trampoline(t)

	return t, nil
}

// CreateTask implements §4.C task_create. Returns ErrCapacity if MAX_TASKS
// has been reached, ErrInvalidArgument for a bad priority or nil entry.
func (k *Kernel) CreateTask(name string, priority int, entry func(arg any), arg any) (*Task, error) {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	if len(k.tasks) >= k.cfg.MaxTasks {
		return nil, ErrCapacity
	}
	return k.createTaskLocked(name, priority, entry, arg)
}

// DeleteTask implements §4.C task_delete: forbidden for the current task or
// the idle task. Termination of a task whose entry already returned
// (TERMINATED) is the normal path; storage is reclaimed here.
func (k *Kernel) DeleteTask(t *Task) error {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	if t == nil {
		return invalidArgf("nil task")
	}
	if t == k.idle {
		return protocolf("cannot delete the idle task")
	}
	if t == k.current {
		return protocolf("cannot delete the current task")
	}

	k.detach(t)
	delete(k.tasks, t.id)
	delete(k.byName, t.name)
	return nil
}

// TaskByName implements §4.C task_get_by_name.
func (k *Kernel) TaskByName(name string) (*Task, bool) {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	t, ok := k.byName[name]
	return t, ok
}

// SetPriority implements §4.C task_set_priority: updates both the current
// and original priority (this expresses caller intent, not an inheritance
// boost), then re-queues the task if it is currently READY.
func (k *Kernel) SetPriority(t *Task, priority int) error {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	if t == nil {
		return invalidArgf("nil task")
	}
	if priority < 0 || priority >= k.cfg.PriorityLevels {
		return invalidArgf("priority %d out of range [0,%d)", priority, k.cfg.PriorityLevels)
	}

	wasReady := t.state == StateReady
	if wasReady {
		k.detach(t)
	}
	t.priority = priority
	t.origPri = priority
	if wasReady {
		k.addToReady(t)
	}
	if k.lockDepth == 0 {
		k.contextSwitch()
	}
	return nil
}

// GetPriority implements §4.C task_get_priority.
func (k *Kernel) GetPriority(t *Task) int {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	return t.priority
}

// Suspend implements §4.C task_suspend. Suspending the idle task is
// refused; suspending the current task additionally yields.
func (k *Kernel) Suspend(t *Task) error {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	if t == nil {
		return invalidArgf("nil task")
	}
	if t == k.idle {
		return protocolf("cannot suspend the idle task")
	}
	if t.state == StateTerminated || t.state == StateSuspended {
		return nil
	}

	k.detach(t)
	t.state = StateSuspended
	k.suspended.PushBack(&t.link)
	k.contextSwitch()
	return nil
}

// Resume implements §4.C task_resume: a no-op with a warning if the target
// isn't suspended.
func (k *Kernel) Resume(t *Task) error {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	if t == nil {
		return invalidArgf("nil task")
	}
	if t.state != StateSuspended {
		k.logger.Warnf("kernel: resume of non-suspended task %q ignored", t.name)
		return protocolf("task %q is not suspended", t.name)
	}

	k.detach(t)
	t.state = StateReady
	k.addToReady(t)
	if k.lockDepth == 0 {
		k.contextSwitch()
	}
	return nil
}

// Yield implements §4.C task_yield: returns the caller to READY and
// switches to whichever task the policy selects next (possibly the same
// task).
func (k *Kernel) Yield() {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	k.contextSwitch()
}

// Delay implements §4.C task_delay(ticks): delay(0) is equivalent to yield.
func (k *Kernel) Delay(ticks uint32) {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	if ticks == 0 {
		k.contextSwitch()
		return
	}
	k.delayUntilLocked(k.time.Now() + Tick(ticks))
}

// DelayUntil implements §4.C task_delay_until(tick): a target at or before
// now is equivalent to yield.
func (k *Kernel) DelayUntil(target Tick) {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	if tickAfterOrEqual(k.time.Now(), target) {
		k.contextSwitch()
		return
	}
	k.delayUntilLocked(target)
}

func (k *Kernel) delayUntilLocked(target Tick) {
	t := k.current
	if t.periodic {
		t.jobOutstanding = false
	}
	t.blockReason = BlockDelay
	t.delayUntil = target
	t.timeoutArmed = true
	t.state = StateBlocked
	k.contextSwitch()
}

// SetPeriodic implements §4.C task_set_periodic(period, deadline).
func (k *Kernel) SetPeriodic(t *Task, period, deadline uint32) error {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	if t == nil {
		return invalidArgf("nil task")
	}
	if period == 0 {
		return invalidArgf("period must be non-zero")
	}
	if deadline == 0 {
		deadline = period
	}

	t.periodic = true
	t.period = Tick(period)
	t.deadline = Tick(deadline)
	t.nextRelease = k.time.Now() + Tick(period)
	t.absoluteDeadline = t.nextRelease + Tick(deadline)
	t.jobOutstanding = false
	return nil
}

// TaskStats implements §4.C task_get_stats.
func (k *Kernel) TaskStats(t *Task) TaskStats {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	return t.stats
}

// ResetTaskStats implements §4.C task_reset_stats.
func (k *Kernel) ResetTaskStats(t *Task) {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	t.stats = TaskStats{burstStart: k.time.Now()}
}
