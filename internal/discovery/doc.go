// Package discovery finds SDR receivers on the local network via
// mDNS. Receivers advertise a _netsdr._tcp service whose port is the
// TCP control channel; the UDP data port and model information ride
// in TXT records.
package discovery
