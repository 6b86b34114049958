package message

import "go.uber.org/atomic"

// Sequence hands out message ids. The zero value starts at 0.
type Sequence struct {
	next atomic.Int64
}

// Next returns the current value and advances the sequence.
func (s *Sequence) Next() int64 {
	return s.next.Inc() - 1
}

// Peek returns the id the next call to Next will hand out.
func (s *Sequence) Peek() int64 {
	return s.next.Load()
}

// ids is shared by every message constructed in this process.
var ids Sequence

// NextID draws an id from the process-wide sequence.
func NextID() int64 {
	return ids.Next()
}
