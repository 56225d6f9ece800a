package sink

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
)

// RawSink appends samples to a file as little-endian int32 words.
// The format is deliberately trivial: no header, one 4-byte word per
// sample, suitable for offline analysis tools.
type RawSink struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	samples uint64
}

// NewRawSink creates (or truncates) the output file.
func NewRawSink(path string) (*RawSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create raw output: %w", err)
	}
	return &RawSink{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Write appends one batch of samples.
func (s *RawSink) Write(samples []int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("raw sink closed")
	}

	var word [4]byte
	for _, sample := range samples {
		binary.LittleEndian.PutUint32(word[:], uint32(sample))
		if _, err := s.writer.Write(word[:]); err != nil {
			return fmt.Errorf("raw write: %w", err)
		}
	}
	s.samples += uint64(len(samples))
	return nil
}

// Samples returns the number of samples written so far.
func (s *RawSink) Samples() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

// Close flushes buffered data and closes the file.
func (s *RawSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	flushErr := s.writer.Flush()
	closeErr := s.file.Close()
	s.file = nil
	s.writer = nil

	if flushErr != nil {
		return fmt.Errorf("raw flush: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("raw close: %w", closeErr)
	}
	return nil
}
