package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	flagA uint32 = 1 << 0
	flagB uint32 = 1 << 1
)

func TestEventGroupWaitAnyReturnsImmediatelyWhenAlreadySatisfied(t *testing.T) {
	k := newTestKernel(t)
	stop := startAndStop(t, k)
	defer stop()

	g, err := k.CreateEventGroup()
	require.NoError(t, err)
	_, err = k.SetFlags(g, flagA)
	require.NoError(t, err)

	done := make(chan uint32, 1)
	errs := make(chan error, 1)
	_, err = k.CreateTask("waiter", 0, func(any) {
		matched, err := k.Wait(g, flagA|flagB, EventWaitAny, false, 0)
		errs <- err
		done <- matched
	}, nil)
	require.NoError(t, err)

	select {
	case err := <-errs:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait never returned")
	}
	require.Equal(t, flagA, <-done)
}

func TestEventGroupWaitAllBlocksUntilBothFlagsSet(t *testing.T) {
	k := newTestKernel(t)
	stop := startAndStop(t, k)
	defer stop()

	g, err := k.CreateEventGroup()
	require.NoError(t, err)

	result := make(chan uint32, 1)
	errs := make(chan error, 1)
	waiter, err := k.CreateTask("waiter", 0, func(any) {
		matched, err := k.Wait(g, flagA|flagB, EventWaitAll, false, Infinite)
		errs <- err
		result <- matched
	}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return waiter.State() == StateBlocked
	}, time.Second, time.Millisecond)

	_, err = k.SetFlags(g, flagA)
	require.NoError(t, err)

	select {
	case <-result:
		t.Fatal("wait-all satisfied by a single flag")
	case <-time.After(20 * time.Millisecond):
	}

	_, err = k.SetFlags(g, flagB)
	require.NoError(t, err)

	select {
	case err := <-errs:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait-all never satisfied")
	}
	require.Equal(t, flagA|flagB, <-result)
}

func TestEventGroupWaitClearsMatchedBitsOnRequest(t *testing.T) {
	k := newTestKernel(t)
	stop := startAndStop(t, k)
	defer stop()

	g, err := k.CreateEventGroup()
	require.NoError(t, err)
	_, err = k.SetFlags(g, flagA|flagB)
	require.NoError(t, err)

	done := make(chan uint32, 1)
	_, err = k.CreateTask("waiter", 0, func(any) {
		matched, err := k.Wait(g, flagA, EventWaitAny, true, 0)
		require.NoError(t, err)
		done <- matched
	}, nil)
	require.NoError(t, err)

	require.Equal(t, flagA, <-done)
	require.Equal(t, flagB, k.Flags(g))
}

func TestEventGroupClearFlagsNeverWakesWaiters(t *testing.T) {
	k := newTestKernel(t)
	stop := startAndStop(t, k)
	defer stop()

	g, err := k.CreateEventGroup()
	require.NoError(t, err)

	waitReturned := make(chan struct{})
	waiter, err := k.CreateTask("waiter", 0, func(any) {
		_, _ = k.Wait(g, flagA, EventWaitAny, false, Infinite)
		close(waitReturned)
	}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return waiter.State() == StateBlocked
	}, time.Second, time.Millisecond)

	_, err = k.ClearFlags(g, flagA)
	require.NoError(t, err)

	select {
	case <-waitReturned:
		t.Fatal("clear_flags woke a waiter")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDeleteEventGroupWakesWaitersWithDeleted(t *testing.T) {
	k := newTestKernel(t)
	stop := startAndStop(t, k)
	defer stop()

	g, err := k.CreateEventGroup()
	require.NoError(t, err)

	errs := make(chan error, 1)
	waiter, err := k.CreateTask("waiter", 0, func(any) {
		_, err := k.Wait(g, flagA, EventWaitAny, false, Infinite)
		errs <- err
	}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return waiter.State() == StateBlocked
	}, time.Second, time.Millisecond)

	k.DeleteEventGroup(g)

	select {
	case err := <-errs:
		require.ErrorIs(t, err, ErrDeleted)
	case <-time.After(time.Second):
		t.Fatal("waiter never woke on delete")
	}
}
