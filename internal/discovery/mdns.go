package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type receivers advertise.
	ServiceType = "_netsdr._tcp"

	// ServiceDomain is the mDNS domain (typically "local.").
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for receiver discovery.
	DefaultScanTimeout = 10 * time.Second

	// DefaultControlPort is used when a service entry carries no port.
	DefaultControlPort = 50000

	// DefaultDataPort is used when no "data" TXT record is present.
	DefaultDataPort = 60000
)

// Scanner handles mDNS receiver discovery.
type Scanner struct {
	// Timeout is the maximum time to wait for discovery.
	Timeout time.Duration
}

// NewScanner creates a scanner with default settings.
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan discovers all receivers on the local network.
func (s *Scanner) Scan() ([]*Receiver, error) {
	return s.ScanWithContext(context.Background())
}

// ScanWithContext discovers receivers with a custom context.
func (s *Scanner) ScanWithContext(ctx context.Context) ([]*Receiver, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	receivers := make([]*Receiver, 0)
	done := make(chan struct{})

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		defer close(done)
		for entry := range entries {
			if receiver := s.parseServiceEntry(entry); receiver != nil {
				receivers = append(receivers, receiver)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done

	return receivers, nil
}

// WaitFor waits for a receiver whose instance name matches name.
// Returns the receiver or an error when not found within the timeout.
func (s *Scanner) WaitFor(ctx context.Context, name string) (*Receiver, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Receiver, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			receiver := s.parseServiceEntry(entry)
			if receiver != nil && receiver.Name == name {
				found <- receiver
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case receiver := <-found:
		return receiver, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("receiver %q not found within timeout", name)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Receiver.
// Returns nil when the entry is unusable (no address).
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Receiver {
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	controlPort := entry.Port
	if controlPort == 0 {
		controlPort = DefaultControlPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	dataPort := DefaultDataPort
	if v, ok := metadata["data"]; ok {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p < 65536 {
			dataPort = p
		}
	}

	return &Receiver{
		Name:         entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		ControlPort:  controlPort,
		DataPort:     dataPort,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Scan is a convenience function to scan with a custom timeout.
func Scan(timeout time.Duration) ([]*Receiver, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.Scan()
}

// QuickScan performs a fast scan with a 3-second timeout.
func QuickScan() ([]*Receiver, error) {
	scanner := NewScanner()
	scanner.Timeout = 3 * time.Second
	return scanner.Scan()
}
