package session

import "github.com/rfwave/netsdr/internal/sink"

// ControlTransport is the duplex control-channel collaborator: a
// connected byte stream carrying one encoded protocol message per
// inbound notification. The client only needs this contract, not a
// specific socket implementation.
type ControlTransport interface {
	Connect() error
	Disconnect() error
	IsConnected() bool
	Send(data []byte) error

	// OnReceive registers the inbound-bytes notification. The callback
	// receives exactly one encoded message per call.
	OnReceive(fn func(data []byte))
}

// DataTransport is the datagram collaborator for the streaming data
// channel. Start begins an independent receive loop; Stop terminates
// it promptly and releases the socket.
type DataTransport interface {
	Start() error
	Stop() error

	// OnDatagram registers the inbound-datagram notification. Each
	// callback receives one raw datagram.
	OnDatagram(fn func(data []byte))
}

// SampleSink accepts decoded sample values for persistence or
// display. It names sink.Writer so the session and the sink fan-out
// share one contract.
type SampleSink = sink.Writer
