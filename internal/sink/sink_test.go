package sink

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestRawSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.raw")

	s, err := NewRawSink(path)
	if err != nil {
		t.Fatalf("NewRawSink() error = %v", err)
	}

	if err := s.Write([]int32{1, -1, 0x7FFFFFFF}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Write([]int32{-0x80000000}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if got := s.Samples(); got != 4 {
		t.Errorf("Samples() = %d, want 4", got)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 16 {
		t.Fatalf("file size = %d, want 16", len(data))
	}

	want := []int32{1, -1, 0x7FFFFFFF, -0x80000000}
	for i, w := range want {
		got := int32(binary.LittleEndian.Uint32(data[i*4:]))
		if got != w {
			t.Errorf("word[%d] = %d, want %d", i, got, w)
		}
	}

	if err := s.Write([]int32{5}); err == nil {
		t.Error("Write after Close should fail")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestWAVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")

	s, err := NewWAVSink(path, 48000, 2)
	if err != nil {
		t.Fatalf("NewWAVSink() error = %v", err)
	}

	if err := s.Write([]int32{100, -100, 32767, -32768}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != wavHeaderSize+8 {
		t.Fatalf("file size = %d, want %d", len(data), wavHeaderSize+8)
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE markers")
	}

	chunkSize := binary.LittleEndian.Uint32(data[4:])
	if chunkSize != uint32(len(data)-8) {
		t.Errorf("chunk size = %d, want %d", chunkSize, len(data)-8)
	}

	channels := binary.LittleEndian.Uint16(data[22:])
	if channels != 2 {
		t.Errorf("channels = %d, want 2", channels)
	}
	sampleRate := binary.LittleEndian.Uint32(data[24:])
	if sampleRate != 48000 {
		t.Errorf("sample rate = %d, want 48000", sampleRate)
	}
	bits := binary.LittleEndian.Uint16(data[34:])
	if bits != 16 {
		t.Errorf("bits per sample = %d, want 16", bits)
	}

	dataSize := binary.LittleEndian.Uint32(data[40:])
	if dataSize != 8 {
		t.Errorf("data chunk size = %d, want 8", dataSize)
	}

	want := []int16{100, -100, 32767, -32768}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(data[wavHeaderSize+i*2:]))
		if got != w {
			t.Errorf("sample[%d] = %d, want %d", i, got, w)
		}
	}
}

func TestWAVSink_InvalidSampleRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if _, err := NewWAVSink(path, 0, 1); err == nil {
		t.Fatal("zero sample rate should be rejected")
	}
}

func TestCountingSink(t *testing.T) {
	s := NewCountingSink()

	if err := s.Write([]int32{1, 2, 3}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Write([]int32{4}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if got := s.Samples(); got != 4 {
		t.Errorf("Samples() = %d, want 4", got)
	}
	if got := s.Batches(); got != 2 {
		t.Errorf("Batches() = %d, want 2", got)
	}

	last := s.Last()
	if len(last) != 1 || last[0] != 4 {
		t.Errorf("Last() = %v, want [4]", last)
	}

	// Mutating the returned slice must not affect the sink.
	last[0] = 99
	if again := s.Last(); again[0] != 4 {
		t.Error("Last() must return a copy")
	}
}
