package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueSendReceiveRingBuffer(t *testing.T) {
	k := newTestKernel(t)
	stop := startAndStop(t, k)
	defer stop()

	q, err := k.CreateQueue(4, 2)
	require.NoError(t, err)

	done := make(chan error, 1)
	_, err = k.CreateTask("worker", 0, func(any) {
		if err := k.Send(q, []byte("abcd"), 0); err != nil {
			done <- err
			return
		}
		var out [4]byte
		if err := k.Receive(q, out[:], 0); err != nil {
			done <- err
			return
		}
		if string(out[:]) != "abcd" {
			done <- protocolf("unexpected payload %q", out[:])
			return
		}
		done <- nil
	}, nil)
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("send/receive never completed")
	}
	require.Equal(t, 0, k.QueueCount(q))
}

func TestQueueRendezvousSendToWaitingReceiver(t *testing.T) {
	k := newTestKernel(t)
	stop := startAndStop(t, k)
	defer stop()

	q, err := k.CreateQueue(4, 1)
	require.NoError(t, err)

	received := make(chan string, 1)
	recvErr := make(chan error, 1)
	receiver, err := k.CreateTask("receiver", 0, func(any) {
		var out [4]byte
		if err := k.Receive(q, out[:], Infinite); err != nil {
			recvErr <- err
			return
		}
		received <- string(out[:])
	}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return receiver.State() == StateBlocked
	}, time.Second, time.Millisecond)

	_, err = k.CreateTask("sender", 1, func(any) {
		recvErr <- k.Send(q, []byte("wxyz"), 0)
	}, nil)
	require.NoError(t, err)

	select {
	case payload := <-received:
		require.Equal(t, "wxyz", payload)
	case <-time.After(time.Second):
		t.Fatal("rendezvous receive never completed")
	}
	require.Equal(t, 0, k.QueueCount(q))
}

func TestQueueSendBlocksWhenFullThenReceiverPromotesIt(t *testing.T) {
	k := newTestKernel(t)
	stop := startAndStop(t, k)
	defer stop()

	q, err := k.CreateQueue(4, 1)
	require.NoError(t, err)

	sendDone := make(chan error, 1)
	filler, err := k.CreateTask("filler", 0, func(any) {
		require.NoError(t, k.Send(q, []byte("1111"), 0))
		sendDone <- k.Send(q, []byte("2222"), Infinite)
	}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return filler.State() == StateBlocked
	}, time.Second, time.Millisecond)
	require.Equal(t, 1, k.QueueCount(q))

	var first [4]byte
	require.NoError(t, k.Receive(q, first[:], 0))
	require.Equal(t, "1111", string(first[:]))

	select {
	case err := <-sendDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("blocked send never unblocked")
	}
	require.Equal(t, 1, k.QueueCount(q))

	var second [4]byte
	require.NoError(t, k.Receive(q, second[:], 0))
	require.Equal(t, "2222", string(second[:]))
}

func TestQueuePeekDoesNotAdvance(t *testing.T) {
	k := newTestKernel(t)
	stop := startAndStop(t, k)
	defer stop()

	q, err := k.CreateQueue(4, 2)
	require.NoError(t, err)
	require.Error(t, k.Peek(q, make([]byte, 4)))

	done := make(chan error, 1)
	_, err = k.CreateTask("worker", 0, func(any) {
		done <- k.Send(q, []byte("peek"), 0)
	}, nil)
	require.NoError(t, err)
	require.NoError(t, <-done)

	var buf [4]byte
	require.NoError(t, k.Peek(q, buf[:]))
	require.Equal(t, "peek", string(buf[:]))
	require.Equal(t, 1, k.QueueCount(q))
}

func TestQueueSendRejectsWrongSize(t *testing.T) {
	k := newTestKernel(t)
	stop := startAndStop(t, k)
	defer stop()

	q, err := k.CreateQueue(4, 2)
	require.NoError(t, err)
	require.Error(t, k.Send(q, []byte("too long"), 0))
}

func TestDeleteQueueWakesBothWaiterLists(t *testing.T) {
	k := newTestKernel(t)
	stop := startAndStop(t, k)
	defer stop()

	q, err := k.CreateQueue(4, 1)
	require.NoError(t, err)

	sendErr := make(chan error, 1)
	filler, err := k.CreateTask("filler", 0, func(any) {
		require.NoError(t, k.Send(q, []byte("full"), 0))
		sendErr <- k.Send(q, []byte("full"), Infinite)
	}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return filler.State() == StateBlocked
	}, time.Second, time.Millisecond)

	k.DeleteQueue(q)

	select {
	case err := <-sendErr:
		require.ErrorIs(t, err, ErrDeleted)
	case <-time.After(time.Second):
		t.Fatal("blocked sender never woke on delete")
	}
}
