// Package session orchestrates a client session with a NetSDR-class
// receiver.
//
// A Client owns two collaborator transports: the control channel (a
// duplex byte stream carrying request/response command messages,
// strictly one in flight) and the data channel (a datagram stream
// carrying sample packets while streaming is active). Connect applies
// the configured setup sequence; StartStreaming and StopStreaming
// bracket the data receive loop; ChangeFrequency retunes a channel.
//
// Request/response correlation is a single capacity-1 slot. A control
// request blocks its caller until the reply arrives or the context is
// cancelled; cancellation clears the slot and a late reply is then
// discarded as unsolicited. Issuing a second request while one is
// pending is a caller error and fails with ErrRequestPending.
//
// Operations invoked while disconnected are silently skipped rather
// than failing; that mirrors the receiver protocol's permissive
// behavior and keeps shutdown paths simple.
package session
