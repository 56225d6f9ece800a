package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rfwave/netsdr/internal/logging"
)

const readDeadlineInterval = 1 * time.Second

// UDPData is the data-channel transport. It binds a local UDP port
// and delivers each received datagram to the registered handler. The
// receive loop copies every packet out of the shared read buffer
// before handing it off.
type UDPData struct {
	addr       string
	bufferSize int

	mu      sync.Mutex
	conn    *net.UDPConn
	cancel  context.CancelFunc
	handler func([]byte)
	wg      sync.WaitGroup
}

// NewUDPData creates a data transport bound to the given local
// address (host:port). bufferSize is both the socket read buffer and
// the maximum datagram size.
func NewUDPData(addr string, bufferSize int) *UDPData {
	return &UDPData{addr: addr, bufferSize: bufferSize}
}

// Start binds the UDP socket and launches the receive loop. No-op
// when already running.
func (u *UDPData) Start() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.conn != nil {
		return nil
	}

	laddr, err := net.ResolveUDPAddr("udp", u.addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", u.addr, err)
	}

	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", u.addr, err)
	}

	if err := conn.SetReadBuffer(u.bufferSize); err != nil {
		logging.Warn("Failed to set UDP read buffer",
			zap.Int("buffer_size", u.bufferSize),
			zap.Error(err),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	u.conn = conn
	u.cancel = cancel

	logging.LogConnection("data", conn.LocalAddr().String(), "listening")

	u.wg.Add(1)
	go u.receiveLoop(ctx, conn)

	return nil
}

// Stop terminates the receive loop and closes the socket. Safe to
// call when not running.
func (u *UDPData) Stop() error {
	u.mu.Lock()
	conn := u.conn
	cancel := u.cancel
	u.conn = nil
	u.cancel = nil
	u.mu.Unlock()

	if conn == nil {
		return nil
	}

	cancel()
	err := conn.Close()
	u.wg.Wait()

	logging.LogConnection("data", u.addr, "stopped")

	if err != nil {
		return fmt.Errorf("close data socket: %w", err)
	}
	return nil
}

// OnDatagram registers the handler invoked with each received
// datagram. Must be called before Start.
func (u *UDPData) OnDatagram(fn func([]byte)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.handler = fn
}

// LocalAddr returns the bound address, or empty when not running.
// Useful when the configured port is 0.
func (u *UDPData) LocalAddr() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return ""
	}
	return u.conn.LocalAddr().String()
}

func (u *UDPData) receiveLoop(ctx context.Context, conn *net.UDPConn) {
	defer u.wg.Done()

	u.mu.Lock()
	handler := u.handler
	u.mu.Unlock()

	buffer := make([]byte, u.bufferSize)

	for {
		select {
		case <-ctx.Done():
			logging.Debug("Data receive loop stopping")
			return
		default:
		}

		// Read deadline so context cancellation is noticed even
		// without traffic.
		if err := conn.SetReadDeadline(time.Now().Add(readDeadlineInterval)); err != nil {
			logging.Error("Failed to set read deadline", zap.Error(err))
			return
		}

		n, remoteAddr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return
			default:
				logging.Warn("UDP read failed", zap.Error(err))
				continue
			}
		}

		// Copy out: buffer is reused on the next read.
		packet := make([]byte, n)
		copy(packet, buffer[:n])

		logging.Debug("Datagram received",
			zap.Int("length", n),
			zap.String("remote", remoteAddr.String()),
		)

		if handler != nil {
			handler(packet)
		}
	}
}
