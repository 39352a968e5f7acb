// Package kernel implements a cooperative-plus-preemptive single-logical-CPU
// real-time scheduler: ready/blocked/suspended task queues under four
// selection policies, tick-driven periodic task release and deadline
// accounting, and priority-inheriting IPC primitives (semaphores, mutexes,
// bounded message queues, event flag groups).
//
// All kernel state is encapsulated in a single *Kernel value constructed by
// New; there are no package-level statics. Exactly one task's code ever
// runs at a time, handed off via a channel-based baton-passing turnstile
// (see context.go) rather than true preemption — the tick-delivery
// goroutine and the currently-running task goroutine contend for the same
// critical section, which is the only source of concurrent access.
package kernel

import (
	"fmt"
	"sort"
	"time"

	"github.com/joeycumines/go-rtos/internal/dlist"
)

// SchedulerStats are the system-wide counters supplementing §4.D's
// get_stats/reset_stats operation.
type SchedulerStats struct {
	ContextSwitches uint64
	IdleTicks       uint64
	DeadlineMisses  uint64
}

// Kernel is the single encapsulated instance of all kernel state (§9
// "Global mutable state"): the task registry, the scheduler's ready/
// suspended lists, and the IPC object slot pools.
type Kernel struct {
	cfg    Config
	crit   criticalSection
	time   *timeBase
	logger Logger

	// registry — all fields below are mutated only while the critical
	// section is held, so no separate mutex guards them.
	tasks   map[uint32]*Task
	byName  map[string]*Task
	nextID  uint32
	idle    *Task
	current *Task

	// scheduler
	ready     []dlist.List[*Task]
	suspended dlist.List[*Task]
	policy    Policy
	lockDepth int
	pending   bool
	stats     SchedulerStats

	// IPC slot pools
	semaphores  []*Semaphore
	mutexes     []*Mutex
	queues      []*Queue
	eventGroups []*EventGroup

	started bool
	stopCh  chan struct{}
}

// New constructs a Kernel and its idle task, per §9's directive that all
// process-wide state live in one value constructed at init. The kernel is
// not yet running; call Start to begin scheduling.
func New(opts ...Option) (*Kernel, error) {
	cfg := resolveOptions(opts)
	if cfg.MaxTasks <= 0 || cfg.PriorityLevels <= 0 || cfg.MaxSemaphores <= 0 || cfg.MaxQueues <= 0 {
		return nil, invalidArgf("non-positive capacity in Config")
	}

	k := &Kernel{
		cfg:     cfg,
		time:    newTimeBase(cfg.TickPeriod),
		logger:  cfg.Logger,
		tasks:   make(map[uint32]*Task, cfg.MaxTasks),
		byName:  make(map[string]*Task, cfg.MaxTasks),
		ready:   make([]dlist.List[*Task], cfg.PriorityLevels),
		policy:  cfg.Policy,
		queues:  make([]*Queue, 0, cfg.MaxQueues),
		stopCh:  make(chan struct{}),
	}
	k.semaphores = make([]*Semaphore, 0, cfg.MaxSemaphores)
	k.mutexes = make([]*Mutex, 0, cfg.MaxSemaphores)
	k.eventGroups = make([]*EventGroup, 0, cfg.MaxSemaphores)

	idle, err := k.createTaskLocked("idle", cfg.PriorityLevels-1, func(any) {
		for {
			k.Yield()
		}
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("kernel: failed to create idle task: %w", err)
	}
	k.idle = idle

	return k, nil
}

// Now returns the current tick count (§4.A now()).
func (k *Kernel) Now() Tick { return k.time.Now() }

// MsToTicks converts milliseconds to ticks using the configured tick period.
func (k *Kernel) MsToTicks(ms uint32) uint32 { return k.time.MsToTicks(ms) }

// TicksToMs converts ticks to milliseconds using the configured tick period.
func (k *Kernel) TicksToMs(ticks uint32) uint32 { return k.time.TicksToMs(ticks) }

// SetTickRate reconfigures the wall-clock duration one tick represents
// (§4.A set_tick_rate).
func (k *Kernel) SetTickRate(ms uint32) {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	k.time.SetTickRate(time.Duration(ms) * time.Millisecond)
}

// CurrentTask returns the task currently selected to run (§4.C
// task_get_current). Never nil once Start has been called (P3).
func (k *Kernel) CurrentTask() *Task {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	return k.current
}

// Policy returns the scheduler's active selection policy.
func (k *Kernel) Policy() Policy {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	return k.policy
}

// SetPolicy changes the scheduler's selection policy.
func (k *Kernel) SetPolicy(p Policy) {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	k.policy = p
}

// Stats returns a snapshot of the scheduler's system-wide counters.
func (k *Kernel) Stats() SchedulerStats {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	return k.stats
}

// ResetStats zeroes the scheduler's system-wide counters.
func (k *Kernel) ResetStats() {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	k.stats = SchedulerStats{}
}

// tasksSnapshot returns every registered task. Must be called with the
// critical section held. Resolves §9 Open Question (ii): the scheduler is
// given a deliberate iterator over the registry rather than reaching into
// file-scope state.
func (k *Kernel) tasksSnapshot() []*Task {
	out := make([]*Task, 0, len(k.tasks))
	for _, t := range k.tasks {
		out = append(out, t)
	}
	return out
}

// Tasks returns every registered task, ordered by creation (ID), for
// diagnostic/reporting use (e.g. the console collaborator).
func (k *Kernel) Tasks() []*Task {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	out := k.tasksSnapshot()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

