package protocol

import (
	"encoding/binary"
	"errors"
)

// ErrInvalidSampleSize is returned when the requested sample depth
// cannot be extracted (larger than 32 bits, or not a whole number of
// bytes).
var ErrInvalidSampleSize = errors.New("protocol: invalid sample size")

// ExtractSamples decodes the packed little-endian sample stream in body
// into signed 32-bit values. Each sample occupies sampleSizeBits/8
// bytes and is zero-extended on the high-order side to 32 bits. A
// trailing partial sample is dropped silently. The body is not
// modified.
func ExtractSamples(sampleSizeBits int, body []byte) ([]int32, error) {
	sampleSize := sampleSizeBits / 8
	if sampleSize < 1 || sampleSize > 4 {
		return nil, ErrInvalidSampleSize
	}

	samples := make([]int32, 0, len(body)/sampleSize)
	for len(body) >= sampleSize {
		var raw [4]byte
		copy(raw[:], body[:sampleSize])
		samples = append(samples, int32(binary.LittleEndian.Uint32(raw[:])))
		body = body[sampleSize:]
	}

	return samples, nil
}
