package sink

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
)

// wavHeader is the canonical 44-byte RIFF/WAVE header for PCM data.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // bytes of PCM data
}

const wavHeaderSize = 44

// WAVSink streams samples into a PCM-16 WAV file. Samples are
// truncated to 16 bits on write; the RIFF size fields are patched
// when the sink is closed, so an unclosed file has zero-length
// chunks.
type WAVSink struct {
	mu       sync.Mutex
	file     *os.File
	header   wavHeader
	dataSize uint32
}

// NewWAVSink creates the output file and writes a provisional header.
// channels is the interleaved channel count (2 for I/Q pairs).
func NewWAVSink(path string, sampleRate uint32, channels uint16) (*WAVSink, error) {
	if sampleRate == 0 {
		return nil, fmt.Errorf("sample rate must be positive")
	}
	if channels == 0 {
		channels = 1
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create wav output: %w", err)
	}

	s := &WAVSink{
		file: file,
		header: wavHeader{
			ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
			Format:        [4]byte{'W', 'A', 'V', 'E'},
			Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
			Subchunk1Size: 16,
			AudioFormat:   1,
			NumChannels:   channels,
			SampleRate:    sampleRate,
			ByteRate:      sampleRate * uint32(channels) * 2,
			BlockAlign:    channels * 2,
			BitsPerSample: 16,
			Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		},
	}

	if err := binary.Write(file, binary.LittleEndian, s.header); err != nil {
		file.Close()
		return nil, fmt.Errorf("write wav header: %w", err)
	}

	return s, nil
}

// Write appends one batch of samples as 16-bit PCM.
func (s *WAVSink) Write(samples []int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("wav sink closed")
	}

	pcm := make([]int16, len(samples))
	for i, sample := range samples {
		pcm[i] = int16(sample)
	}

	if err := binary.Write(s.file, binary.LittleEndian, pcm); err != nil {
		return fmt.Errorf("wav write: %w", err)
	}
	s.dataSize += uint32(len(pcm) * 2)
	return nil
}

// Close patches the RIFF size fields and closes the file.
func (s *WAVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	file := s.file
	s.file = nil

	s.header.ChunkSize = wavHeaderSize - 8 + s.dataSize
	s.header.Subchunk2Size = s.dataSize

	if _, err := file.Seek(0, 0); err != nil {
		file.Close()
		return fmt.Errorf("wav seek: %w", err)
	}
	if err := binary.Write(file, binary.LittleEndian, s.header); err != nil {
		file.Close()
		return fmt.Errorf("patch wav header: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("wav close: %w", err)
	}
	return nil
}
