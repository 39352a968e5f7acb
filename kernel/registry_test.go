package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateTaskRejectsInvalidArguments(t *testing.T) {
	k := newTestKernel(t)

	_, err := k.CreateTask("bad-priority", 99, func(any) {}, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = k.CreateTask("nil-entry", 0, nil, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCreateTaskEnforcesCapacity(t *testing.T) {
	k := newTestKernel(t, WithMaxTasks(2))
	// the idle task already occupies one of the two slots
	_, err := k.CreateTask("only-room-for-one", 0, func(any) {}, nil)
	require.NoError(t, err)

	_, err = k.CreateTask("over-capacity", 0, func(any) {}, nil)
	require.ErrorIs(t, err, ErrCapacity)
}

func TestSetPriorityUpdatesOriginalPriority(t *testing.T) {
	k := newTestKernel(t)
	stop := startAndStop(t, k)
	defer stop()

	task, err := k.CreateTask("worker", 2, func(any) {
		for {
			k.Delay(1)
		}
	}, nil)
	require.NoError(t, err)

	require.NoError(t, k.SetPriority(task, 1))
	require.Equal(t, 1, k.GetPriority(task))
	require.Equal(t, 1, task.OriginalPriority())
}

func TestSetPriorityRejectsOutOfRange(t *testing.T) {
	k := newTestKernel(t)
	task, err := k.CreateTask("worker", 1, func(any) {}, nil)
	require.NoError(t, err)
	require.ErrorIs(t, k.SetPriority(task, 99), ErrInvalidArgument)
}

func TestSuspendIdleTaskIsRejected(t *testing.T) {
	k := newTestKernel(t)
	require.Error(t, k.Suspend(k.idle))
}

func TestResumeOfNonSuspendedTaskFails(t *testing.T) {
	k := newTestKernel(t)
	stop := startAndStop(t, k)
	defer stop()

	task, err := k.CreateTask("worker", 0, func(any) {
		for {
			k.Delay(1)
		}
	}, nil)
	require.NoError(t, err)
	require.Error(t, k.Resume(task))
}

func TestDelayUntilPastTargetActsLikeYield(t *testing.T) {
	k := newTestKernel(t)
	stop := startAndStop(t, k)
	defer stop()

	done := make(chan struct{})
	_, err := k.CreateTask("worker", 0, func(any) {
		k.DelayUntil(0) // already in the past relative to any tick >= 0
		close(done)
	}, nil)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("delay_until(past) never returned")
	}
}

func TestSetPeriodicRejectsZeroPeriod(t *testing.T) {
	k := newTestKernel(t)
	task, err := k.CreateTask("worker", 0, func(any) {}, nil)
	require.NoError(t, err)
	require.ErrorIs(t, k.SetPeriodic(task, 0, 0), ErrInvalidArgument)
}

func TestSetPeriodicDefaultsDeadlineToPeriod(t *testing.T) {
	k := newTestKernel(t)
	task, err := k.CreateTask("worker", 0, func(any) {}, nil)
	require.NoError(t, err)
	require.NoError(t, k.SetPeriodic(task, 10, 0))
	require.Equal(t, Tick(10), task.deadline)
}

func TestTaskStatsAccumulateRuntimeAcrossActivations(t *testing.T) {
	k := newTestKernel(t)
	stop := startAndStop(t, k)
	defer stop()

	done := make(chan struct{})
	task, err := k.CreateTask("worker", 0, func(any) {
		for i := 0; i < 3; i++ {
			k.Delay(1)
		}
		close(done)
	}, nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		k.Tick()
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker never finished")
	}

	stats := k.TaskStats(task)
	require.GreaterOrEqual(t, stats.Activations, uint64(1))

	k.ResetTaskStats(task)
	reset := k.TaskStats(task)
	require.Equal(t, uint64(0), reset.Activations)
	require.Equal(t, uint64(0), reset.RuntimeTicks)
}

func TestTaskByNameLooksUpByRegisteredName(t *testing.T) {
	k := newTestKernel(t)
	task, err := k.CreateTask("findme", 0, func(any) {}, nil)
	require.NoError(t, err)

	found, ok := k.TaskByName("findme")
	require.True(t, ok)
	require.Equal(t, task.ID(), found.ID())

	_, ok = k.TaskByName("does-not-exist")
	require.False(t, ok)
}

func TestTasksReturnsAllRegisteredTasksSortedByID(t *testing.T) {
	k := newTestKernel(t)
	_, err := k.CreateTask("b", 0, func(any) {}, nil)
	require.NoError(t, err)
	_, err = k.CreateTask("a", 0, func(any) {}, nil)
	require.NoError(t, err)

	tasks := k.Tasks()
	require.Len(t, tasks, 3) // idle + b + a
	for i := 1; i < len(tasks); i++ {
		require.Less(t, tasks[i-1].ID(), tasks[i].ID())
	}
}
