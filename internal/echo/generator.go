package echo

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rfwave/netsdr/internal/logging"
	"github.com/rfwave/netsdr/internal/protocol"
)

// Generator emits synthetic data-channel traffic: UDP datagrams of
// 16-bit ramp samples with a monotonically increasing sequence
// number. It pairs with Service to exercise a full client session
// without hardware.
type Generator struct {
	target           string
	interval         time.Duration
	samplesPerPacket int

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sequence uint16
	phase    int16
}

// NewGenerator creates a generator that sends a datagram every
// interval to the target address (host:port).
func NewGenerator(target string, interval time.Duration, samplesPerPacket int) *Generator {
	if samplesPerPacket <= 0 {
		samplesPerPacket = 256
	}
	return &Generator{
		target:           target,
		interval:         interval,
		samplesPerPacket: samplesPerPacket,
	}
}

// Start launches the send loop. No-op when already running.
func (g *Generator) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cancel != nil {
		return nil
	}

	conn, err := net.Dial("udp", g.target)
	if err != nil {
		return fmt.Errorf("dial %s: %w", g.target, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel

	logging.Info("Traffic generator started",
		zap.String("target", g.target),
		zap.Duration("interval", g.interval),
		zap.Int("samples_per_packet", g.samplesPerPacket),
	)

	g.wg.Add(1)
	go g.sendLoop(ctx, conn)

	return nil
}

// Stop terminates the send loop. Safe to call when not running.
func (g *Generator) Stop() {
	g.mu.Lock()
	cancel := g.cancel
	g.cancel = nil
	g.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	g.wg.Wait()

	logging.Info("Traffic generator stopped")
}

func (g *Generator) sendLoop(ctx context.Context, conn net.Conn) {
	defer g.wg.Done()
	defer conn.Close()

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			packet, err := g.nextPacket()
			if err != nil {
				logging.Error("Failed to build packet", zap.Error(err))
				return
			}
			if _, err := conn.Write(packet); err != nil {
				logging.Warn("Generator write failed", zap.Error(err))
			}
		}
	}
}

// nextPacket builds one data message of ramp samples. The sequence
// number wraps at 16 bits, matching the wire field.
func (g *Generator) nextPacket() ([]byte, error) {
	g.mu.Lock()
	seq := g.sequence
	g.sequence++

	body := make([]byte, g.samplesPerPacket*2)
	for i := 0; i < g.samplesPerPacket; i++ {
		binary.LittleEndian.PutUint16(body[i*2:], uint16(g.phase))
		g.phase += 16
	}
	g.mu.Unlock()

	return protocol.EncodeData(protocol.DataItem0, seq, body)
}
