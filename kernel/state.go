package kernel

// TaskState is a task's scheduling state.
type TaskState int

const (
	StateReady TaskState = iota
	StateRunning
	StateBlocked
	StateSuspended
	StateTerminated
)

func (s TaskState) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateBlocked:
		return "BLOCKED"
	case StateSuspended:
		return "SUSPENDED"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// BlockReason records why a BLOCKED task is blocked. It doubles as the
// wake-protocol signal: an unblocker clears it to BlockNone before waking
// the task on success; a timeout leaves it set, so the waiter can tell the
// two cases apart (§5 "Cancellation/timeouts").
type BlockReason int

const (
	BlockNone BlockReason = iota
	BlockDelay
	BlockSemaphore
	BlockQueueFull
	BlockQueueEmpty
	BlockEvent
	BlockMutex
)

func (r BlockReason) String() string {
	switch r {
	case BlockNone:
		return "NONE"
	case BlockDelay:
		return "DELAY"
	case BlockSemaphore:
		return "SEMAPHORE"
	case BlockQueueFull:
		return "QUEUE_FULL"
	case BlockQueueEmpty:
		return "QUEUE_EMPTY"
	case BlockEvent:
		return "EVENT"
	case BlockMutex:
		return "MUTEX"
	default:
		return "UNKNOWN"
	}
}

// Policy selects the scheduler's task-selection algorithm.
type Policy int

const (
	PolicyPriority Policy = iota
	PolicyRR
	PolicyEDF
	PolicyRMS
)

// policyToString matches §4.D's policy_to_string operation.
func policyToString(p Policy) string {
	switch p {
	case PolicyPriority:
		return "PRIORITY"
	case PolicyRR:
		return "RR"
	case PolicyEDF:
		return "EDF"
	case PolicyRMS:
		return "RMS"
	default:
		return "UNKNOWN"
	}
}

func (p Policy) String() string { return policyToString(p) }
