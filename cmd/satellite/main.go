// Example: Satellite Flight Software Demo
//
// This demonstrates a small, coherent workload on top of the kernel
// package: three periodic tasks (attitude control, thermal monitoring,
// telemetry downlink) and one aperiodic ground-command handler, sharing
// state through a priority-inheriting mutex, synchronizing command arrival
// through a counting semaphore and a bounded message queue, and signaling
// a "safe mode" condition through an event flag group. Partway through the
// run it switches the scheduler from rate-monotonic to EDF, showing a
// live policy change.
//
// Run with: go run ./cmd/satellite/
package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joeycumines/go-rtos/console"
	"github.com/joeycumines/go-rtos/kernel"
	"github.com/joeycumines/go-rtos/timedriver"
	"github.com/joeycumines/go-rtos/uartsink"
)

const (
	cmdRecordSize      = 16
	cmdOpClearSafeMode = 0x01

	flagOverheat = 1 << 0
)

// sharedState is the flight computer's shared telemetry block, guarded by
// stateMu (a kernel.Mutex, not a sync.Mutex — contended by kernel tasks,
// not arbitrary goroutines).
type sharedState struct {
	temperatureC float64
	attitudeDeg  [3]float64
	safeMode     bool
}

func main() {
	k, err := kernel.New(
		kernel.WithPriorityLevels(8),
		kernel.WithMaxTasks(8),
		kernel.WithMaxSemaphores(8),
		kernel.WithMaxQueues(4),
		kernel.WithPolicy(kernel.PolicyRMS),
		kernel.WithTickPeriod(time.Millisecond),
		kernel.WithLogger(kernel.NewLogifaceLogger(os.Stderr)),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "satellite: kernel init failed:", err)
		os.Exit(1)
	}

	stateMu, err := k.CreateMutex()
	must(err)
	cmdQueue, err := k.CreateQueue(cmdRecordSize, 4)
	must(err)
	cmdReady, err := k.CreateSemaphore(0, 64)
	must(err)
	safeModeFlags, err := k.CreateEventGroup()
	must(err)

	state := &sharedState{temperatureC: 20}

	attitude, err := k.CreateTask("attitude-ctl", 0, func(any) {
		for {
			if err := k.LockMutex(stateMu, kernel.Infinite); err != nil {
				must(err)
				return
			}
			state.attitudeDeg[0] += 0.1
			state.attitudeDeg[1] += 0.05
			if err := k.UnlockMutex(stateMu); err != nil {
				must(err)
				return
			}
			k.Delay(k.MsToTicks(20))
		}
	}, nil)
	must(err)
	must(k.SetPeriodic(attitude, k.MsToTicks(20), k.MsToTicks(20)))

	thermal, err := k.CreateTask("thermal", 1, func(any) {
		for {
			if err := k.LockMutex(stateMu, kernel.Infinite); err != nil {
				must(err)
				return
			}
			state.temperatureC += 0.5
			overheating := state.temperatureC > 45
			if overheating && !state.safeMode {
				state.safeMode = true
			}
			if err := k.UnlockMutex(stateMu); err != nil {
				must(err)
				return
			}
			if overheating {
				_, _ = k.SetFlags(safeModeFlags, flagOverheat)
			}
			k.Delay(k.MsToTicks(100))
		}
	}, nil)
	must(err)
	must(k.SetPeriodic(thermal, k.MsToTicks(100), k.MsToTicks(100)))

	telemetry, err := k.CreateTask("telemetry", 2, func(any) {
		for {
			if err := k.LockMutex(stateMu, kernel.Infinite); err != nil {
				must(err)
				return
			}
			snapshot := *state
			if err := k.UnlockMutex(stateMu); err != nil {
				must(err)
				return
			}
			fmt.Fprintf(os.Stdout, "TLM temp=%.1fC attitude=%v safeMode=%v\n",
				snapshot.temperatureC, snapshot.attitudeDeg, snapshot.safeMode)
			k.Delay(k.MsToTicks(50))
		}
	}, nil)
	must(err)
	must(k.SetPeriodic(telemetry, k.MsToTicks(50), k.MsToTicks(50)))

	_, err = k.CreateTask("ground-cmd", 0, func(any) {
		for {
			if err := k.Take(cmdReady, kernel.Infinite); err != nil {
				return
			}
			var rec [cmdRecordSize]byte
			if err := k.Receive(cmdQueue, rec[:], kernel.Infinite); err != nil {
				continue
			}
			switch rec[0] {
			case cmdOpClearSafeMode:
				if err := k.LockMutex(stateMu, kernel.Infinite); err != nil {
					must(err)
					return
				}
				state.safeMode = false
				if err := k.UnlockMutex(stateMu); err != nil {
					must(err)
					return
				}
				_, _ = k.ClearFlags(safeModeFlags, flagOverheat)
			}
		}
	}, nil)
	must(err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = k.Start()
	}()

	driver := timedriver.New(time.Millisecond, k)
	driver.Start()

	printer := console.New(k, uartsink.New(os.Stdout), 100*time.Millisecond)
	printer.Start()

	uplink := newGroundUplinkSimulator(k, cmdQueue, cmdReady)
	uplink.Start()

	time.Sleep(300 * time.Millisecond)
	fmt.Fprintln(os.Stderr, "satellite: switching scheduler policy PRIORITY/RMS -> EDF")
	k.SetPolicy(kernel.PolicyEDF)

	time.Sleep(300 * time.Millisecond)

	uplink.Stop()
	printer.Stop()
	driver.Stop()
	k.Stop()
	wg.Wait()
}

// groundUplinkSimulator stands in for an actual ground station: every
// period it enqueues a command and signals its arrival, exactly the way a
// real uplink receiver task would after framing a packet off the wire.
type groundUplinkSimulator struct {
	k     *kernel.Kernel
	queue *kernel.Queue
	ready *kernel.Semaphore

	stop chan struct{}
	done chan struct{}
}

func newGroundUplinkSimulator(k *kernel.Kernel, q *kernel.Queue, s *kernel.Semaphore) *groundUplinkSimulator {
	return &groundUplinkSimulator{k: k, queue: q, ready: s, stop: make(chan struct{}), done: make(chan struct{})}
}

func (u *groundUplinkSimulator) Start() { go u.run() }

func (u *groundUplinkSimulator) Stop() {
	close(u.stop)
	<-u.done
}

func (u *groundUplinkSimulator) run() {
	defer close(u.done)
	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			var rec [cmdRecordSize]byte
			rec[0] = cmdOpClearSafeMode
			if err := u.k.Send(u.queue, rec[:], u.k.MsToTicks(10)); err != nil {
				continue
			}
			_ = u.k.Give(u.ready)
		case <-u.stop:
			return
		}
	}
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "satellite:", err)
	}
}
