// Package protocol implements the NetSDR binary wire protocol.
//
// This package handles encoding and decoding of the framed messages a
// NetSDR-class receiver exchanges over its TCP control channel and UDP
// data channel. It is pure: no I/O and no state, so everything here is
// safe for concurrent use.
//
// # Wire Format
//
// Every message starts with a 2-byte little-endian header:
//
//	bits 13-15   message kind (Kind, ordinals 0-7)
//	bits 0-12    total message length including the header
//
// Control messages (kind < DataItem0) follow the header with a 2-byte
// little-endian item code naming the device parameter, then the command
// parameters. Data messages (kind >= DataItem0) follow it with a 2-byte
// sequence number, then packed sample data.
//
// The 13-bit length field tops out at 8191, but a full data-item packet
// is 8194 bytes. That single oversized length is encoded as a zero
// length field; Decode expands it back. The sentinel is exact wire
// behavior, not an approximation.
//
// # Decoding
//
// Decode never returns an error. Malformed input (unknown item code,
// length mismatch) produces a best-effort Result with OK set to false,
// and the caller decides whether to discard the packet. This matches
// how the receiver itself treats stray traffic.
//
// # Samples
//
// ExtractSamples unpacks the little-endian sample stream of a data
// message body at a configurable bit depth (8 to 32 bits), widening
// each sample to an int32 with zero padding on the high-order side.
package protocol
