package kernel

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per §7 error kind. Callers match with errors.Is;
// concrete errors returned by the kernel wrap one of these via fmt.Errorf's
// %w verb so the cause chain survives (grounded on the teacher's own
// wrap-with-cause convention, generalized from its JS-style error types to
// plain sentinels — this domain has no script-host error taxonomy to
// reproduce).
var (
	// ErrInvalidArgument covers a null/zero handle, out-of-range priority,
	// zero-size queue, or unknown policy.
	ErrInvalidArgument = errors.New("kernel: invalid argument")

	// ErrCapacity covers an exhausted TCB or IPC slot pool.
	ErrCapacity = errors.New("kernel: no free slot")

	// ErrProtocol covers misuse that doesn't mutate state: unlocking a
	// mutex you don't own, locking one you already own, resuming a task
	// that isn't suspended, giving a semaphore already at max.
	ErrProtocol = errors.New("kernel: protocol violation")

	// ErrTimeout is returned by a bounded-wait primitive whose timeout
	// elapsed before its resource arrived.
	ErrTimeout = errors.New("kernel: operation timed out")

	// ErrDeleted is returned to a waiter unblocked by the deletion of the
	// IPC object it was waiting on.
	ErrDeleted = errors.New("kernel: object deleted while waiting")
)

func invalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}

func protocolf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrProtocol}, args...)...)
}
