// Package uartsink is the external UART collaborator named by the
// specification: a minimal stand-in for the byte-oriented serial link a
// real satellite's flight computer would log and downlink telemetry
// through. It has no protocol of its own beyond simple framing — real
// hardware bring-up would replace this wholesale.
package uartsink

import (
	"bytes"
	"io"
	"sync"
)

// Sink is a line-framed io.Writer: every Write is treated as one record and
// terminated with a trailing newline if it doesn't already have one,
// matching how a UART console log is conventionally read back line by
// line. Safe for concurrent use.
type Sink struct {
	mu  sync.Mutex
	out io.Writer
}

// New wraps w as a UART sink.
func New(w io.Writer) *Sink {
	return &Sink{out: w}
}

func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.out.Write(p)
	if err != nil {
		return n, err
	}
	if !bytes.HasSuffix(p, []byte("\n")) {
		if _, err := s.out.Write([]byte("\n")); err != nil {
			return n, err
		}
	}
	return n, nil
}
