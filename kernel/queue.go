package kernel

import "github.com/joeycumines/go-rtos/internal/dlist"

// Queue implements §4.E's bounded FIFO message queue, with a rendezvous
// fast-path that bypasses the ring entirely when the opposite side is
// already blocked waiting.
type Queue struct {
	msgSize int
	buffer  [][]byte
	head    int
	tail    int
	count   int

	waitingSend dlist.List[*Task]
	waitingRecv dlist.List[*Task]
	deleted     bool
}

// CreateQueue implements §4.E queue creation.
func (k *Kernel) CreateQueue(msgSize, capacity int) (*Queue, error) {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	if msgSize <= 0 || capacity <= 0 {
		return nil, invalidArgf("queue msgSize=%d capacity=%d must both be positive", msgSize, capacity)
	}
	if len(k.queues) >= k.cfg.MaxQueues {
		return nil, ErrCapacity
	}
	q := &Queue{
		msgSize: msgSize,
		buffer:  make([][]byte, capacity),
	}
	for i := range q.buffer {
		q.buffer[i] = make([]byte, msgSize)
	}
	k.queues = append(k.queues, q)
	return q, nil
}

// Send implements §4.E send(q, msg, timeout).
func (k *Kernel) Send(q *Queue, msg []byte, timeoutTicks uint32) error {
	prev := k.enterKernel()
	defer k.crit.exitCritical(prev)

	if q.deleted {
		return ErrDeleted
	}
	if len(msg) != q.msgSize {
		return invalidArgf("message length %d does not match queue record size %d", len(msg), q.msgSize)
	}

	if q.count == 0 {
		if n := q.waitingRecv.Front(); n != nil {
			recv := n.Value
			copy(recv.ioBuf, msg)
			k.unblockTask(recv, true)
			k.contextSwitch()
			return nil
		}
	}
	if q.count < len(q.buffer) {
		copy(q.buffer[q.tail], msg)
		q.tail = (q.tail + 1) % len(q.buffer)
		q.count++
		return nil
	}

	// Full, and (per I5) no receiver should be waiting; guard anyway with
	// the symmetric direct-handoff the spec calls for.
	if n := q.waitingRecv.Front(); n != nil {
		recv := n.Value
		copy(recv.ioBuf, msg)
		k.unblockTask(recv, true)
		k.contextSwitch()
		return nil
	}

	if timeoutTicks == 0 {
		return ErrTimeout
	}
	t := k.current
	t.blockReason = BlockQueueFull
	t.wakeDeleted = false
	t.ioBuf = append([]byte(nil), msg...)
	if timeoutTicks != Infinite {
		t.delayUntil = k.time.Now() + Tick(timeoutTicks)
		t.timeoutArmed = true
	} else {
		t.timeoutArmed = false
	}
	t.state = StateBlocked
	q.waitingSend.PushBack(&t.link)
	k.contextSwitch()

	if t.wakeDeleted {
		return ErrDeleted
	}
	if t.blockReason != BlockNone {
		return ErrTimeout
	}
	return nil
}

// Receive implements §4.E receive(q, msg, timeout). dst must have length
// msgSize; on success the message is copied into it.
func (k *Kernel) Receive(q *Queue, dst []byte, timeoutTicks uint32) error {
	prev := k.enterKernel()
	defer k.crit.exitCritical(prev)

	if q.deleted {
		return ErrDeleted
	}
	if len(dst) != q.msgSize {
		return invalidArgf("destination length %d does not match queue record size %d", len(dst), q.msgSize)
	}

	if q.count == 0 {
		if n := q.waitingSend.Front(); n != nil {
			sender := n.Value
			copy(dst, sender.ioBuf)
			k.unblockTask(sender, true)
			k.contextSwitch()
			return nil
		}
	} else {
		copy(dst, q.buffer[q.head])
		q.head = (q.head + 1) % len(q.buffer)
		q.count--
		if n := q.waitingSend.Front(); n != nil {
			sender := n.Value
			copy(q.buffer[q.tail], sender.ioBuf)
			q.tail = (q.tail + 1) % len(q.buffer)
			q.count++
			k.unblockTask(sender, true)
			k.contextSwitch()
		}
		return nil
	}

	if timeoutTicks == 0 {
		return ErrTimeout
	}
	t := k.current
	t.blockReason = BlockQueueEmpty
	t.wakeDeleted = false
	t.ioBuf = dst
	if timeoutTicks != Infinite {
		t.delayUntil = k.time.Now() + Tick(timeoutTicks)
		t.timeoutArmed = true
	} else {
		t.timeoutArmed = false
	}
	t.state = StateBlocked
	q.waitingRecv.PushBack(&t.link)
	k.contextSwitch()

	if t.wakeDeleted {
		return ErrDeleted
	}
	if t.blockReason != BlockNone {
		return ErrTimeout
	}
	return nil
}

// Peek implements §4.E peek(q, msg): copies the head record without
// advancing it; fails if the queue is empty.
func (k *Kernel) Peek(q *Queue, dst []byte) error {
	prev := k.enterKernel()
	defer k.crit.exitCritical(prev)

	if q.deleted {
		return ErrDeleted
	}
	if len(dst) != q.msgSize {
		return invalidArgf("destination length %d does not match queue record size %d", len(dst), q.msgSize)
	}
	if q.count == 0 {
		return protocolf("peek on empty queue")
	}
	copy(dst, q.buffer[q.head])
	return nil
}

// QueueCount implements §4.E get_count(q).
func (k *Kernel) QueueCount(q *Queue) int {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)
	return q.count
}

// DeleteQueue implements §4.E queue delete: unblocks both waiter lists with
// ErrDeleted and frees the backing buffer.
func (k *Kernel) DeleteQueue(q *Queue) {
	prev := k.crit.enterCritical()
	defer k.crit.exitCritical(prev)

	q.deleted = true
	for n := q.waitingSend.Front(); n != nil; n = q.waitingSend.Front() {
		t := n.Value
		t.wakeDeleted = true
		k.unblockTask(t, false)
	}
	for n := q.waitingRecv.Front(); n != nil; n = q.waitingRecv.Front() {
		t := n.Value
		t.wakeDeleted = true
		k.unblockTask(t, false)
	}
	q.buffer = nil
	k.contextSwitch()
}
