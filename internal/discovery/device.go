package discovery

import (
	"fmt"
	"time"
)

// Receiver represents a discovered SDR receiver on the network.
type Receiver struct {
	// Name is the advertised service instance name (e.g., "NetSDR-04A2").
	Name string

	// Hostname is the mDNS hostname (e.g., "netsdr-04a2.local.").
	Hostname string

	// IP is the IPv4 address (e.g., "192.168.1.50").
	IP string

	// ControlPort is the TCP control port (typically 50000).
	ControlPort int

	// DataPort is the UDP data port, taken from the "data" TXT record
	// when present (typically 60000).
	DataPort int

	// Metadata contains additional mDNS TXT record data.
	// Common fields: "model=NetSDR", "fw=1.07".
	Metadata map[string]string

	// DiscoveredAt is when the receiver was discovered.
	DiscoveredAt time.Time
}

// String returns a human-readable description of the receiver.
func (r *Receiver) String() string {
	return fmt.Sprintf("Receiver %s (%s) at %s:%d", r.Name, r.Hostname, r.IP, r.ControlPort)
}

// ControlAddr returns the host:port of the TCP control channel.
func (r *Receiver) ControlAddr() string {
	return fmt.Sprintf("%s:%d", r.IP, r.ControlPort)
}

// Model returns the advertised model name, or empty when not present.
func (r *Receiver) Model() string {
	return r.GetMetadata("model")
}

// GetMetadata retrieves a TXT record value by key, or returns an
// empty string when not found.
func (r *Receiver) GetMetadata(key string) string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata[key]
}
