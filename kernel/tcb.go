package kernel

import "github.com/joeycumines/go-rtos/internal/dlist"

// EventOption selects how an event_group_wait predicate is evaluated (ANY
// or ALL); whether a satisfied wait clears the matched bits is Wait's
// separate clear argument. Per §9's "Option-packing in block_object" note,
// both are explicit TCB fields, not packed bits sharing a pointer-sized slot.
type EventOption int

const (
	EventWaitAny EventOption = iota
	EventWaitAll
)

// waitSpec holds the predicate a task blocked with BlockEvent is waiting
// on. It is the explicit, typed replacement for the packed block_object §9
// calls out.
type waitSpec struct {
	mask  uint32
	mode  EventOption
	clear bool
}

// TaskStats are the per-task counters §3/§4.C name (task_get_stats).
type TaskStats struct {
	RuntimeTicks   uint64
	LastStart      Tick
	Activations    uint64
	DeadlineMisses uint64
	MaxBurstTicks  uint64

	burstStart Tick // internal: tick at which the current RUNNING burst began
}

// Task is the Task Control Block (§3). Only Kernel methods mutate a Task's
// fields; callers interact with it exclusively through Kernel operations,
// matching §5's "task-owned fields are only mutated by the scheduler or by
// the task itself while RUNNING."
type Task struct {
	name     string
	id       uint32
	priority int
	origPri  int

	state       TaskState
	blockReason BlockReason
	blockWait   waitSpec // valid iff blockReason == BlockEvent

	sliceTicks     uint32
	sliceRemaining uint32

	entry func(arg any)
	arg   any

	delayUntil   Tick
	timeoutArmed bool
	wakeDeleted  bool // set by an IPC object's delete() instead of a plain timeout

	period           Tick
	deadline         Tick
	nextRelease      Tick
	absoluteDeadline Tick
	periodic         bool
	jobOutstanding   bool // true from release until the job completes or misses

	stats TaskStats

	ctx *taskContext
	gid uint64 // the goroutine id of this task's own execution context, set on first resume

	// ioBuf is the rendezvous fast-path slot for a blocked queue send/
	// receive (§4.E): for a blocked sender it holds a private copy of the
	// pending message; for a blocked receiver it holds the caller's
	// destination slice, written into directly by whichever send unblocks
	// it.
	ioBuf []byte

	// link is the single intrusive-list node reused for ready-queue,
	// suspended-list, and IPC-waiter-list membership (§9, option (a): "one
	// canonical intrusive doubly-linked list embedded in the TCB"). There is
	// no separate blocked list: a task blocked by a plain delay is in no list
	// and is found by Tick's registry scan. A Task is in at most one
	// dlist.List at a time (I1).
	link dlist.Node[*Task]
}

// Name returns the task's (possibly truncated) name.
func (t *Task) Name() string { return t.name }

// ID returns the task's stable, implementation-assigned handle value.
func (t *Task) ID() uint32 { return t.id }

// State returns the task's current scheduling state.
func (t *Task) State() TaskState { return t.state }

// Priority returns the task's current (possibly inheritance-boosted)
// priority.
func (t *Task) Priority() int { return t.priority }

// OriginalPriority returns the priority last set by task_create/
// task_set_priority, ignoring any inheritance boost.
func (t *Task) OriginalPriority() int { return t.origPri }

// Stats returns a snapshot of the task's runtime statistics.
func (t *Task) Stats() TaskStats { return t.stats }
