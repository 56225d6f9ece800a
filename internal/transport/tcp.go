package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rfwave/netsdr/internal/logging"
	"github.com/rfwave/netsdr/internal/protocol"
)

const dialTimeout = 10 * time.Second

// TCPControl is the control-channel transport. It frames the byte
// stream into protocol messages using the 2-byte length header and
// delivers each complete message to the registered handler from a
// dedicated read goroutine.
type TCPControl struct {
	addr string

	mu      sync.Mutex
	conn    net.Conn
	handler func([]byte)
	wg      sync.WaitGroup
}

// NewTCPControl creates a control transport for the given receiver
// address (host:port).
func NewTCPControl(addr string) *TCPControl {
	return &TCPControl{addr: addr}
}

// Connect dials the receiver and starts the framing read loop.
func (t *TCPControl) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}

	conn, err := net.DialTimeout("tcp", t.addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.addr, err)
	}
	t.conn = conn

	logging.LogConnection("control", t.addr, "connected")

	t.wg.Add(1)
	go t.readLoop(conn)

	return nil
}

// Disconnect closes the connection and waits for the read loop to
// exit. Safe to call when not connected.
func (t *TCPControl) Disconnect() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close()
	t.wg.Wait()

	logging.LogConnection("control", t.addr, "disconnected")

	if err != nil {
		return fmt.Errorf("close control connection: %w", err)
	}
	return nil
}

// IsConnected reports whether the control connection is open.
func (t *TCPControl) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Send writes one encoded message to the receiver.
func (t *TCPControl) Send(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("control transport not connected")
	}

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("control write: %w", err)
	}
	return nil
}

// OnReceive registers the handler invoked with each complete inbound
// message. Must be called before Connect.
func (t *TCPControl) OnReceive(fn func([]byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = fn
}

// readLoop reassembles protocol messages from the TCP stream. A
// header with a zero length field marks a maximum-size data message,
// which on this channel is treated as malformed and ends the loop.
func (t *TCPControl) readLoop(conn net.Conn) {
	defer t.wg.Done()

	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()

	header := make([]byte, protocol.HeaderSize)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			t.logReadExit(err)
			return
		}

		raw := binary.LittleEndian.Uint16(header)
		total := int(raw & 0x1FFF)
		if total == 0 {
			total = protocol.MaxDataLength
		}
		if total < protocol.HeaderSize {
			logging.Warn("Control stream framing error",
				zap.Int("length", total))
			conn.Close()
			return
		}

		msg := make([]byte, total)
		copy(msg, header)
		if _, err := io.ReadFull(conn, msg[protocol.HeaderSize:]); err != nil {
			t.logReadExit(err)
			return
		}

		if handler != nil {
			handler(msg)
		}
	}
}

func (t *TCPControl) logReadExit(err error) {
	t.mu.Lock()
	closed := t.conn == nil
	t.mu.Unlock()

	if closed || err == io.EOF {
		logging.Debug("Control read loop finished", zap.Error(err))
		return
	}
	logging.Warn("Control read failed", zap.Error(err))
}
