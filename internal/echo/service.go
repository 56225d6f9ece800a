package echo

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/rfwave/netsdr/internal/logging"
	"github.com/rfwave/netsdr/internal/protocol"
)

// Service is a control-channel stand-in for development and testing.
// It accepts TCP connections and echoes every well-framed control
// message back to the sender, which satisfies clients that treat the
// echo as the receiver's acknowledgement.
type Service struct {
	addr string

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewService creates an echo service for the given listen address.
func NewService(addr string) *Service {
	return &Service{addr: addr}
}

// Start binds the listener and begins accepting connections.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = listener

	logging.Info("Echo service listening",
		zap.String("addr", listener.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop(listener)

	return nil
}

// Stop closes the listener and waits for active connections to end.
func (s *Service) Stop() error {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	if listener == nil {
		return nil
	}

	err := listener.Close()
	s.wg.Wait()

	logging.Info("Echo service stopped")

	if err != nil {
		return fmt.Errorf("close echo listener: %w", err)
	}
	return nil
}

// Addr returns the bound listen address, or empty when not running.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Service) acceptLoop(listener net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}

		logging.LogConnection("echo", conn.RemoteAddr().String(), "accepted")

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// serveConn reads framed messages and writes each one straight back.
func (s *Service) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	header := make([]byte, protocol.HeaderSize)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				logging.Debug("Echo connection read ended", zap.Error(err))
			}
			return
		}

		raw := binary.LittleEndian.Uint16(header)
		total := int(raw & 0x1FFF)
		if total == 0 {
			total = protocol.MaxDataLength
		}
		if total < protocol.HeaderSize {
			logging.Warn("Echo connection framing error",
				zap.Int("length", total))
			return
		}

		msg := make([]byte, total)
		copy(msg, header)
		if _, err := io.ReadFull(conn, msg[protocol.HeaderSize:]); err != nil {
			return
		}

		logging.LogControlMessage("echoed", msg)

		if _, err := conn.Write(msg); err != nil {
			logging.Debug("Echo write failed", zap.Error(err))
			return
		}
	}
}
