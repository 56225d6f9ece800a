// Package echo provides a hardware-free stand-in for a receiver: a
// TCP service that echoes framed control messages back to the client,
// and a UDP generator that produces sequenced data packets of
// synthetic samples. Together they let a full session run against
// localhost.
package echo
