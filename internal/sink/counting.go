package sink

import "sync"

// CountingSink counts samples and keeps the most recent batch. It is
// the sink behind live monitoring, where samples are inspected but
// never persisted.
type CountingSink struct {
	mu      sync.Mutex
	samples uint64
	batches uint64
	last    []int32
}

// NewCountingSink creates an empty counting sink.
func NewCountingSink() *CountingSink {
	return &CountingSink{}
}

// Write records the batch.
func (s *CountingSink) Write(samples []int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples += uint64(len(samples))
	s.batches++
	s.last = append(s.last[:0], samples...)
	return nil
}

// Samples returns the total sample count.
func (s *CountingSink) Samples() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

// Batches returns the number of Write calls.
func (s *CountingSink) Batches() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

// Last returns a copy of the most recent batch.
func (s *CountingSink) Last() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int32, len(s.last))
	copy(out, s.last)
	return out
}
