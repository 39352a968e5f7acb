// Package console is the external status-printer collaborator named by the
// specification: it periodically renders the scheduler's state to an
// io.Writer (typically a uartsink.Sink), entirely outside the kernel
// itself, using only the kernel's public read-only accessors.
package console

import (
	"fmt"
	"io"
	"time"

	"github.com/joeycumines/go-rtos/kernel"
)

// Printer periodically writes a one-line-per-task status snapshot.
type Printer struct {
	k        *kernel.Kernel
	out      io.Writer
	interval time.Duration

	stop chan struct{}
	done chan struct{}
}

// New constructs a Printer that snapshots k to out every interval once
// started.
func New(k *kernel.Kernel, out io.Writer, interval time.Duration) *Printer {
	return &Printer{
		k:        k,
		out:      out,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins printing in a background goroutine. Must be called at most
// once.
func (p *Printer) Start() {
	go p.run()
}

// Stop halts the Printer and blocks until its goroutine has exited.
func (p *Printer) Stop() {
	close(p.stop)
	<-p.done
}

func (p *Printer) run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer close(p.done)

	for {
		select {
		case <-ticker.C:
			p.snapshot()
		case <-p.stop:
			return
		}
	}
}

func (p *Printer) snapshot() {
	now := p.k.Now()
	stats := p.k.Stats()
	fmt.Fprintf(p.out, "tick=%d policy=%s switches=%d idle=%d misses=%d\n",
		now, p.k.Policy(), stats.ContextSwitches, stats.IdleTicks, stats.DeadlineMisses)

	for _, t := range p.k.Tasks() {
		ts := t.Stats()
		fmt.Fprintf(p.out, "  task=%-16s id=%-3d pri=%-2d state=%-10s runtime=%-8d misses=%d\n",
			t.Name(), t.ID(), t.Priority(), t.State(), ts.RuntimeTicks, ts.DeadlineMisses)
	}
}
