// Package testutil provides in-memory and fault-injecting write targets for tests.
package testutil

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

// MemTarget is a concurrency-safe in-memory io.WriterAt that grows as needed.
type MemTarget struct {
	mu    sync.Mutex
	data  []byte
	calls int
}

// NewMemTarget returns an empty MemTarget.
func NewMemTarget() *MemTarget {
	return &MemTarget{}
}

// WriteAt copies p into the backing slice at off.
func (m *MemTarget) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("testutil: negative offset")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	end := int(off) + len(p)
	if end > len(m.data) {
		m.data = append(m.data, make([]byte, end-len(m.data))...)
	}
	return copy(m.data[off:], p), nil
}

// Bytes returns a copy of the current contents.
func (m *MemTarget) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.data)
}

// Calls returns the number of WriteAt calls received.
func (m *MemTarget) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Step scripts one WriteAt attempt of a ScriptedTarget.
type Step struct {
	// N is the number of bytes to accept. Negative values are returned as-is
	// without writing anything.
	N int

	// Err is returned after accepting N bytes.
	Err error
}

// ScriptedTarget replays scripted results over a MemTarget. Attempts beyond
// the script fall back to Default, or to a full write when Default is nil.
// Accepted counts are capped at the requested length.
type ScriptedTarget struct {
	*MemTarget

	// Default produces the step for attempts past the script.
	Default func(attempt, requested int) Step

	mu       sync.Mutex
	steps    []Step
	attempts int
}

// NewScriptedTarget returns a ScriptedTarget replaying steps.
func NewScriptedTarget(steps ...Step) *ScriptedTarget {
	return &ScriptedTarget{MemTarget: NewMemTarget(), steps: steps}
}

// WriteAt accepts the scripted prefix of p.
func (s *ScriptedTarget) WriteAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	attempt := s.attempts
	s.attempts++
	var step Step
	switch {
	case attempt < len(s.steps):
		step = s.steps[attempt]
	case s.Default != nil:
		step = s.Default(attempt, len(p))
	default:
		step = Step{N: len(p)}
	}
	s.mu.Unlock()

	if step.N < 0 {
		return step.N, step.Err
	}
	n := min(step.N, len(p))
	if n > 0 {
		if _, err := s.MemTarget.WriteAt(p[:n], off); err != nil {
			return 0, err
		}
	}
	return n, step.Err
}

// Attempts returns the number of WriteAt calls received.
func (s *ScriptedTarget) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// ChunkedTarget accepts at most chunk bytes per call.
func ChunkedTarget(chunk int) *ScriptedTarget {
	t := NewScriptedTarget()
	t.Default = func(int, int) Step { return Step{N: chunk} }
	return t
}

// ExhaustingTarget accepts chunk bytes per call until limit bytes have been
// written, then reports io.EOF.
func ExhaustingTarget(chunk, limit int) *ExhaustTarget {
	return &ExhaustTarget{MemTarget: NewMemTarget(), chunk: chunk, limit: limit}
}

// ExhaustTarget is a bounded target that runs out of room after limit bytes.
type ExhaustTarget struct {
	*MemTarget

	mu      sync.Mutex
	chunk   int
	limit   int
	written int
}

// WriteAt accepts up to chunk bytes while room remains.
func (e *ExhaustTarget) WriteAt(p []byte, off int64) (int, error) {
	e.mu.Lock()
	room := e.limit - e.written
	n := min(len(p), e.chunk, room)
	e.written += max(n, 0)
	e.mu.Unlock()

	if n <= 0 {
		return 0, io.EOF
	}
	return e.MemTarget.WriteAt(p[:n], off)
}
