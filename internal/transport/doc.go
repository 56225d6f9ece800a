// Package transport provides the two network channels of a receiver
// session: a TCP control connection that frames the byte stream into
// length-prefixed protocol messages, and a UDP socket that receives
// sample datagrams. Both deliver inbound traffic through registered
// callbacks and are safe to start and stop repeatedly.
package transport
