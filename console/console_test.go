package console_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-rtos/console"
	"github.com/joeycumines/go-rtos/kernel"
)

func TestPrinterSnapshotsTaskState(t *testing.T) {
	k, err := kernel.New(kernel.WithMaxTasks(4), kernel.WithPriorityLevels(4))
	require.NoError(t, err)

	_, err = k.CreateTask("worker", 0, func(arg any) {
		kk := arg.(*kernel.Kernel)
		for {
			kk.Delay(1)
		}
	}, k)
	require.NoError(t, err)

	go func() { _ = k.Start() }()
	defer k.Stop()

	var buf bytes.Buffer
	p := console.New(k, &buf, 2*time.Millisecond)
	p.Start()

	for i := 0; i < 20; i++ {
		k.Tick()
		time.Sleep(time.Millisecond)
	}
	p.Stop()

	out := buf.String()
	assert.Contains(t, out, "task=worker")
	assert.Contains(t, out, "task=idle")
}
