// Package sink provides destinations for decoded sample batches: a
// raw little-endian int32 file, a PCM-16 WAV file, and an in-memory
// counter for live monitoring. All sinks are safe for use from the
// data-channel receive goroutine.
package sink
