package session

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rfwave/netsdr/internal/config"
	"github.com/rfwave/netsdr/internal/logging"
	"github.com/rfwave/netsdr/internal/metrics"
	"github.com/rfwave/netsdr/internal/protocol"
)

// ErrRequestPending is returned when a control request is issued while
// a previous one is still awaiting its response. The protocol allows
// only one request in flight; rejecting the second is deliberate,
// rather than silently overwriting the correlation slot.
var ErrRequestPending = errors.New("session: control request already pending")

// Receiver run states sent in the ReceiverState command body.
const (
	runStateStop  = 0x01
	runStateRun   = 0x02
	dataModeIQ    = 0x80 // complex I/Q base-band data
	captureMode16 = 0x00 // contiguous 16-bit samples
	captureMode24 = 0x80 // contiguous 24-bit samples
)

// Client orchestrates a receiver session: it sequences control
// commands over the control channel, correlates each with its
// response, and manages the start/stop lifecycle of sample streaming
// on the data channel.
//
// Connection and streaming state are mutated only by Client's own
// operations; the inbound handlers never touch them.
type Client struct {
	ctrl ControlTransport
	data DataTransport
	sink SampleSink

	tuning     config.TuningConfig
	reqTimeout time.Duration
	metrics    *metrics.Metrics // optional

	mu        sync.Mutex
	connected bool
	streaming bool
	pending   chan []byte // single-flight correlation slot, nil when idle
	frequency uint64

	// data-path diagnostics, guarded by statsMu
	statsMu        sync.Mutex
	packetsRx      uint64
	decodeFailures uint64
	sequenceGaps   uint64
	samplesOut     uint64
	lastSequence   uint16
	haveSequence   bool
}

// Stats is a point-in-time snapshot of session diagnostics.
type Stats struct {
	Connected      bool
	Streaming      bool
	FrequencyHz    uint64
	PacketsRx      uint64
	DecodeFailures uint64
	SequenceGaps   uint64
	SamplesOut     uint64
	LastSequence   uint16
}

// NewClient creates a session over the given transports. The metrics
// handle may be nil. The client registers itself as the inbound
// handler on both transports.
func NewClient(ctrl ControlTransport, data DataTransport, sink SampleSink, cfg *config.Config, m *metrics.Metrics) *Client {
	c := &Client{
		ctrl:       ctrl,
		data:       data,
		sink:       sink,
		tuning:     cfg.Tuning,
		reqTimeout: cfg.Device.RequestTimeoutDuration(),
		metrics:    m,
	}

	ctrl.OnReceive(c.handleControlBytes)
	data.OnDatagram(c.handleDatagram)

	return c
}

// Connect opens the control channel and applies the setup sequence:
// sample rate, RF filter, then A/D modes, each awaited before the
// next. No-op when already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.ctrl.Connect(); err != nil {
		logging.Error("Control channel connect failed", zap.Error(err))
		return fmt.Errorf("control connect: %w", err)
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	logging.Info("Control channel connected")

	setup := []struct {
		item protocol.ItemCode
		body []byte
	}{
		{protocol.ItemIQOutputDataSampleRate, c.tuning.SampleRateBody()},
		{protocol.ItemRFFilter, c.tuning.RFFilterBody()},
		{protocol.ItemADModes, c.tuning.ADModesBody()},
	}

	for _, cmd := range setup {
		if _, err := c.SendControlRequest(ctx, protocol.SetControlItem, cmd.item, cmd.body); err != nil {
			logging.Error("Setup command failed",
				zap.String("item", cmd.item.String()),
				zap.Error(err),
			)
			_ = c.Disconnect()
			return fmt.Errorf("setup %s: %w", cmd.item, err)
		}
		logging.Debug("Setup command acknowledged", zap.String("item", cmd.item.String()))
	}

	return nil
}

// Disconnect tears the session down. The transport disconnect is
// always forwarded, even when no connection is active, and the data
// receive loop is stopped so the sockets are released on every path.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.connected = false
	c.streaming = false
	c.pending = nil
	c.mu.Unlock()

	if err := c.data.Stop(); err != nil {
		logging.Warn("Data channel stop failed", zap.Error(err))
	}

	if err := c.ctrl.Disconnect(); err != nil {
		logging.Warn("Control channel disconnect failed", zap.Error(err))
		return fmt.Errorf("control disconnect: %w", err)
	}

	logging.Info("Disconnected")
	return nil
}

// SendControlRequest encodes and sends one control command, then
// blocks until its response arrives or ctx is cancelled. When not
// connected the operation is skipped: the caller gets (nil, nil).
//
// Only one request may be in flight; a second concurrent call fails
// with ErrRequestPending.
func (c *Client) SendControlRequest(ctx context.Context, kind protocol.Kind, item protocol.ItemCode, body []byte) ([]byte, error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		logging.Debug("Control request skipped: not connected",
			zap.String("item", item.String()))
		return nil, nil
	}
	if c.pending != nil {
		c.mu.Unlock()
		return nil, ErrRequestPending
	}

	encoded, err := protocol.Encode(kind, item, body)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	slot := make(chan []byte, 1)
	c.pending = slot
	c.mu.Unlock()

	start := time.Now()
	logging.LogControlMessage("sent", encoded)

	if err := c.ctrl.Send(encoded); err != nil {
		c.clearPending(slot)
		return nil, fmt.Errorf("control send: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.reqTimeout)
	defer cancel()

	select {
	case resp := <-slot:
		c.clearPending(slot)
		if c.metrics != nil {
			c.metrics.ObserveControlRequest(time.Since(start).Seconds())
		}
		return resp, nil
	case <-ctx.Done():
		// Clear the slot so a late reply is treated as unsolicited
		// instead of resolving a request nobody is waiting for.
		c.clearPending(slot)
		return nil, ctx.Err()
	}
}

// clearPending releases the correlation slot if it still belongs to
// this request.
func (c *Client) clearPending(slot chan []byte) {
	c.mu.Lock()
	if c.pending == slot {
		c.pending = nil
	}
	c.mu.Unlock()
}

// StartStreaming sends the receiver-state run command and starts the
// data-channel receive loop. No-op when not connected.
func (c *Client) StartStreaming(ctx context.Context) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	body := c.receiverStateBody(runStateRun)
	if _, err := c.SendControlRequest(ctx, protocol.SetControlItem, protocol.ItemReceiverState, body); err != nil {
		return fmt.Errorf("start streaming: %w", err)
	}

	if err := c.data.Start(); err != nil {
		return fmt.Errorf("data channel start: %w", err)
	}

	c.mu.Lock()
	c.streaming = true
	c.mu.Unlock()

	logging.Info("Streaming started",
		zap.Uint32("sample_rate", c.tuning.SampleRate),
		zap.Int("sample_bits", c.tuning.SampleBits),
	)
	return nil
}

// StopStreaming sends the receiver-state stop command and terminates
// the data-channel receive loop. No-op when not connected.
func (c *Client) StopStreaming(ctx context.Context) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	// Tear down the data channel whether or not the stop command went
	// through: a receive loop left running after a failed stop would
	// keep delivering samples to a session that considers itself idle.
	body := c.receiverStateBody(runStateStop)
	_, sendErr := c.SendControlRequest(ctx, protocol.SetControlItem, protocol.ItemReceiverState, body)

	c.mu.Lock()
	c.streaming = false
	c.mu.Unlock()

	if err := c.data.Stop(); err != nil {
		logging.Warn("Data channel stop failed", zap.Error(err))
	}

	if sendErr != nil {
		return fmt.Errorf("stop streaming: %w", sendErr)
	}

	logging.Info("Streaming stopped")
	return nil
}

// ChangeFrequency tunes the given channel. The command body is the
// channel byte followed by the low 5 bytes of the frequency,
// little-endian. No-op when not connected.
func (c *Client) ChangeFrequency(ctx context.Context, frequencyHz uint64, channel uint8) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	var freq [8]byte
	binary.LittleEndian.PutUint64(freq[:], frequencyHz)

	body := make([]byte, 6)
	body[0] = channel
	copy(body[1:], freq[:5])

	resp, err := c.SendControlRequest(ctx, protocol.SetControlItem, protocol.ItemReceiverFrequency, body)
	if err != nil {
		return fmt.Errorf("change frequency: %w", err)
	}

	c.mu.Lock()
	c.frequency = frequencyHz
	c.mu.Unlock()

	logging.Info("Frequency changed",
		zap.Uint64("frequency_hz", frequencyHz),
		zap.Uint8("channel", channel),
	)
	logging.LogRawBytes("Frequency response", resp)
	return nil
}

// receiverStateBody builds the ReceiverState command body for the
// given run state.
func (c *Client) receiverStateBody(runState byte) []byte {
	captureMode := byte(captureMode16)
	if c.tuning.SampleBits == 24 {
		captureMode = captureMode24
	}
	return []byte{dataModeIQ, runState, captureMode, 0x00}
}

// handleControlBytes resolves the pending correlation slot with the
// received message. Without a pending request the bytes are logged
// and discarded (an unsolicited or out-of-order reply).
func (c *Client) handleControlBytes(data []byte) {
	logging.LogControlMessage("received", data)

	c.mu.Lock()
	slot := c.pending
	c.mu.Unlock()

	if slot == nil {
		logging.Warn("Unsolicited control message discarded",
			zap.Int("length", len(data)))
		return
	}

	select {
	case slot <- data:
	default:
		// Slot already resolved; treat as unsolicited.
		logging.Warn("Duplicate control response discarded",
			zap.Int("length", len(data)))
	}
}

// handleDatagram decodes one data-channel datagram and forwards the
// extracted samples to the sink. Malformed packets are dropped and
// counted; they never stop the stream.
func (c *Client) handleDatagram(data []byte) {
	res := protocol.Decode(data)

	c.statsMu.Lock()
	c.packetsRx++
	if !res.OK || !res.Kind.IsData() {
		c.decodeFailures++
		c.statsMu.Unlock()
		if c.metrics != nil {
			c.metrics.RecordPacketReceived()
			c.metrics.RecordDecodeFailure()
		}
		logging.Debug("Dropping malformed datagram",
			zap.Int("length", len(data)),
			zap.String("message", res.String()),
		)
		return
	}

	if c.haveSequence && res.Sequence != c.lastSequence+1 {
		c.sequenceGaps++
		if c.metrics != nil {
			c.metrics.RecordSequenceGap()
		}
		logging.Debug("Data sequence gap",
			zap.Uint16("expected", c.lastSequence+1),
			zap.Uint16("got", res.Sequence),
		)
	}
	c.lastSequence = res.Sequence
	c.haveSequence = true
	c.statsMu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordPacketReceived()
	}

	samples, err := protocol.ExtractSamples(c.tuning.SampleBits, res.Body)
	if err != nil {
		logging.Error("Sample extraction failed", zap.Error(err))
		return
	}

	if err := c.sink.Write(samples); err != nil {
		logging.Error("Sample sink write failed", zap.Error(err))
		return
	}

	c.statsMu.Lock()
	c.samplesOut += uint64(len(samples))
	c.statsMu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordSamples(len(samples))
	}
}

// IsConnected reports the session connection state.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// IsStreaming reports whether sample streaming is active.
func (c *Client) IsStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Stats returns a snapshot of session diagnostics.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	s := Stats{
		Connected:   c.connected,
		Streaming:   c.streaming,
		FrequencyHz: c.frequency,
	}
	c.mu.Unlock()

	c.statsMu.Lock()
	s.PacketsRx = c.packetsRx
	s.DecodeFailures = c.decodeFailures
	s.SequenceGaps = c.sequenceGaps
	s.SamplesOut = c.samplesOut
	s.LastSequence = c.lastSequence
	c.statsMu.Unlock()

	return s
}
