package session

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rfwave/netsdr/internal/config"
	"github.com/rfwave/netsdr/internal/protocol"
	"github.com/rfwave/netsdr/internal/sink"
)

// fakeControl implements ControlTransport. Unless replies are
// disabled, every Send is answered asynchronously with an echo of the
// request, the way the receiver acknowledges control items.
type fakeControl struct {
	mu          sync.Mutex
	connected   bool
	connectErr  error
	sendErr     error
	sent        [][]byte
	connects    int
	disconnects int
	handler     func([]byte)
	mute        bool
}

func (f *fakeControl) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeControl) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.connected = false
	return nil
}

func (f *fakeControl) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeControl) Send(data []byte) error {
	f.mu.Lock()
	if f.sendErr != nil {
		f.mu.Unlock()
		return f.sendErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	f.sent = append(f.sent, buf)
	handler := f.handler
	mute := f.mute
	f.mu.Unlock()

	if !mute && handler != nil {
		go handler(buf)
	}
	return nil
}

func (f *fakeControl) OnReceive(fn func([]byte)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = fn
}

func (f *fakeControl) sentMessages() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeControl) setMute(mute bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mute = mute
}

// fakeData implements DataTransport.
type fakeData struct {
	mu      sync.Mutex
	active  bool
	starts  int
	stops   int
	handler func([]byte)
}

func (f *fakeData) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.active = true
	return nil
}

func (f *fakeData) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.active = false
	return nil
}

func (f *fakeData) OnDatagram(fn func([]byte)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = fn
}

func (f *fakeData) isActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeData) deliver(data []byte) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler != nil {
		handler(data)
	}
}

// collectSink records every sample batch it receives.
type collectSink struct {
	mu      sync.Mutex
	batches [][]int32
}

func (s *collectSink) Write(samples []int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := make([]int32, len(samples))
	copy(batch, samples)
	s.batches = append(s.batches, batch)
	return nil
}

func (s *collectSink) all() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int32
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func newTestClient(t *testing.T) (*Client, *fakeControl, *fakeData, *collectSink) {
	t.Helper()
	ctrl := &fakeControl{}
	data := &fakeData{}
	sink := &collectSink{}
	cfg := config.Default()
	return NewClient(ctrl, data, sink, cfg, nil), ctrl, data, sink
}

func TestConnect_SetupSequence(t *testing.T) {
	client, ctrl, _, _ := newTestClient(t)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if !client.IsConnected() {
		t.Error("client should be connected")
	}

	sent := ctrl.sentMessages()
	if len(sent) != 3 {
		t.Fatalf("setup sent %d messages, want 3", len(sent))
	}

	wantItems := []protocol.ItemCode{
		protocol.ItemIQOutputDataSampleRate,
		protocol.ItemRFFilter,
		protocol.ItemADModes,
	}
	for i, msg := range sent {
		res := protocol.Decode(msg)
		if !res.OK {
			t.Errorf("setup message %d does not decode cleanly", i)
		}
		if res.Kind != protocol.SetControlItem {
			t.Errorf("setup message %d kind = %s, want SetControlItem", i, res.Kind)
		}
		if res.Item != wantItems[i] {
			t.Errorf("setup message %d item = %s, want %s", i, res.Item, wantItems[i])
		}
	}
}

func TestConnect_Idempotent(t *testing.T) {
	client, ctrl, _, _ := newTestClient(t)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}

	if ctrl.connects != 1 {
		t.Errorf("transport connects = %d, want 1", ctrl.connects)
	}
	if got := len(ctrl.sentMessages()); got != 3 {
		t.Errorf("sent %d messages, want 3 (setup runs once)", got)
	}
}

func TestConnect_TransportFailure(t *testing.T) {
	client, ctrl, _, _ := newTestClient(t)
	ctrl.connectErr = errors.New("connection refused")

	if err := client.Connect(context.Background()); err == nil {
		t.Fatal("Connect() should fail")
	}
	if client.IsConnected() {
		t.Error("client should remain disconnected after transport failure")
	}
}

func TestDisconnect_AlwaysForwarded(t *testing.T) {
	client, ctrl, data, _ := newTestClient(t)

	// Never connected, yet the transport disconnect is still issued.
	if err := client.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if ctrl.disconnects != 1 {
		t.Errorf("transport disconnects = %d, want 1", ctrl.disconnects)
	}
	if data.stops != 1 {
		t.Errorf("data stops = %d, want 1", data.stops)
	}
}

func TestSendControlRequest_SkippedWhenDisconnected(t *testing.T) {
	client, ctrl, _, _ := newTestClient(t)

	resp, err := client.SendControlRequest(context.Background(),
		protocol.SetControlItem, protocol.ItemRFFilter, []byte{0, 0})
	if err != nil {
		t.Fatalf("SendControlRequest() error = %v, want nil (skipped)", err)
	}
	if resp != nil {
		t.Errorf("response = %v, want nil", resp)
	}
	if len(ctrl.sentMessages()) != 0 {
		t.Error("nothing should be sent while disconnected")
	}
}

func TestSendControlRequest_Timeout(t *testing.T) {
	client, ctrl, _, _ := newTestClient(t)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	ctrl.setMute(true)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.SendControlRequest(ctx,
		protocol.CurrentControlItem, protocol.ItemReceiverFrequency, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}

	// The pending slot must be released: the next request succeeds.
	ctrl.setMute(false)
	if _, err := client.SendControlRequest(context.Background(),
		protocol.CurrentControlItem, protocol.ItemReceiverFrequency, nil); err != nil {
		t.Errorf("request after timeout error = %v", err)
	}
}

func TestSendControlRequest_SecondWhilePending(t *testing.T) {
	client, ctrl, _, _ := newTestClient(t)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	ctrl.setMute(true)

	firstDone := make(chan error, 1)
	go func() {
		_, err := client.SendControlRequest(context.Background(),
			protocol.CurrentControlItem, protocol.ItemADModes, nil)
		firstDone <- err
	}()

	// Wait until the first request is on the wire.
	deadline := time.Now().Add(time.Second)
	for len(ctrl.sentMessages()) < 4 {
		if time.Now().After(deadline) {
			t.Fatal("first request never sent")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := client.SendControlRequest(context.Background(),
		protocol.CurrentControlItem, protocol.ItemRFFilter, nil)
	if !errors.Is(err, ErrRequestPending) {
		t.Fatalf("second request error = %v, want ErrRequestPending", err)
	}

	// Resolve the first request and check it completes cleanly.
	msgs := ctrl.sentMessages()
	client.handleControlBytes(msgs[len(msgs)-1])

	select {
	case err := <-firstDone:
		if err != nil {
			t.Errorf("first request error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("first request never resolved")
	}
}

func TestUnsolicitedControlBytes(t *testing.T) {
	client, _, _, _ := newTestClient(t)

	// No pending request: must not panic, bytes are discarded.
	client.handleControlBytes([]byte{0x02, 0x00})
}

func TestChangeFrequency(t *testing.T) {
	client, ctrl, _, _ := newTestClient(t)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := client.ChangeFrequency(context.Background(), 14250000, 1); err != nil {
		t.Fatalf("ChangeFrequency() error = %v", err)
	}

	sent := ctrl.sentMessages()
	if len(sent) != 4 {
		t.Fatalf("sent %d messages, want 4 (3 setup + 1 tune)", len(sent))
	}

	res := protocol.Decode(sent[3])
	if res.Item != protocol.ItemReceiverFrequency {
		t.Errorf("item = %s, want ReceiverFrequency", res.Item)
	}
	// channel byte then low 5 bytes of 14250000 (0xD97010) little-endian
	want := []byte{0x01, 0x10, 0x70, 0xD9, 0x00, 0x00}
	if !bytes.Equal(res.Body, want) {
		t.Errorf("body = %v, want %v", res.Body, want)
	}

	if got := client.Stats().FrequencyHz; got != 14250000 {
		t.Errorf("stats frequency = %d, want 14250000", got)
	}
}

func TestChangeFrequency_Disconnected(t *testing.T) {
	client, ctrl, _, _ := newTestClient(t)

	if err := client.ChangeFrequency(context.Background(), 7100000, 0); err != nil {
		t.Fatalf("ChangeFrequency() error = %v, want nil (skipped)", err)
	}
	if len(ctrl.sentMessages()) != 0 {
		t.Error("nothing should be sent while disconnected")
	}
}

func TestStreamingLifecycle(t *testing.T) {
	client, ctrl, data, _ := newTestClient(t)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if data.isActive() {
		t.Error("data transport should be idle before StartStreaming")
	}

	if err := client.StartStreaming(context.Background()); err != nil {
		t.Fatalf("StartStreaming() error = %v", err)
	}
	if !client.IsStreaming() {
		t.Error("streaming state should be started")
	}
	if !data.isActive() {
		t.Error("data transport should be active while streaming")
	}

	if err := client.StopStreaming(context.Background()); err != nil {
		t.Fatalf("StopStreaming() error = %v", err)
	}
	if client.IsStreaming() {
		t.Error("streaming state should be stopped")
	}
	if data.isActive() {
		t.Error("data transport should be idle after StopStreaming")
	}

	// 3 setup + 1 start + 1 stop
	sent := ctrl.sentMessages()
	if len(sent) != 5 {
		t.Fatalf("sent %d messages, want 5", len(sent))
	}
	for _, idx := range []int{3, 4} {
		res := protocol.Decode(sent[idx])
		if res.Item != protocol.ItemReceiverState {
			t.Errorf("message %d item = %s, want ReceiverState", idx, res.Item)
		}
	}
}

func TestStopStreaming_SendFailure(t *testing.T) {
	client, ctrl, data, _ := newTestClient(t)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := client.StartStreaming(context.Background()); err != nil {
		t.Fatalf("StartStreaming() error = %v", err)
	}

	// Swallow the stop acknowledgment so the request times out.
	ctrl.setMute(true)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.StopStreaming(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}

	// Even when the stop command is never acknowledged, the session must
	// not keep consuming datagrams.
	if client.IsStreaming() {
		t.Error("streaming state should be stopped after failed stop")
	}
	if data.isActive() {
		t.Error("data transport should be idle after failed stop")
	}
}

func TestStartStreaming_Disconnected(t *testing.T) {
	client, ctrl, data, _ := newTestClient(t)

	if err := client.StartStreaming(context.Background()); err != nil {
		t.Fatalf("StartStreaming() error = %v, want nil (skipped)", err)
	}
	if client.IsStreaming() {
		t.Error("streaming must not start while disconnected")
	}
	if data.starts != 0 {
		t.Error("data transport must not be invoked while disconnected")
	}
	if len(ctrl.sentMessages()) != 0 {
		t.Error("nothing should be sent while disconnected")
	}
}

func TestDatagramPath(t *testing.T) {
	client, _, data, sink := newTestClient(t)

	samples := []byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00}
	packet, err := protocol.EncodeData(protocol.DataItem0, 1, samples)
	if err != nil {
		t.Fatal(err)
	}
	data.deliver(packet)

	got := sink.all()
	want := []int32{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("sink received %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	stats := client.Stats()
	if stats.PacketsRx != 1 {
		t.Errorf("packets received = %d, want 1", stats.PacketsRx)
	}
	if stats.SamplesOut != 3 {
		t.Errorf("samples out = %d, want 3", stats.SamplesOut)
	}
}

func TestDatagramPath_FanOut(t *testing.T) {
	// A sink fan-out plugs straight into the client: SampleSink and
	// sink.Writer are the same contract.
	ctrl := &fakeControl{}
	data := &fakeData{}
	first := &collectSink{}
	second := &collectSink{}
	client := NewClient(ctrl, data, sink.Multi(first, second), config.Default(), nil)

	packet, err := protocol.EncodeData(protocol.DataItem0, 1, []byte{0x01, 0x00, 0x02, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	data.deliver(packet)

	want := []int32{1, 2}
	for name, s := range map[string]*collectSink{"first": first, "second": second} {
		got := s.all()
		if len(got) != len(want) {
			t.Fatalf("%s sink received %d samples, want %d", name, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s sink sample[%d] = %d, want %d", name, i, got[i], want[i])
			}
		}
	}

	if got := client.Stats().SamplesOut; got != 2 {
		t.Errorf("samples out = %d, want 2", got)
	}
}

func TestDatagramPath_MalformedDropped(t *testing.T) {
	client, _, data, sink := newTestClient(t)

	// Length field does not match the actual packet size.
	data.deliver([]byte{0xFF, 0x9F, 0x01, 0x00})

	if len(sink.all()) != 0 {
		t.Error("malformed datagram must not reach the sink")
	}
	if got := client.Stats().DecodeFailures; got != 1 {
		t.Errorf("decode failures = %d, want 1", got)
	}
}

func TestDatagramPath_SequenceGap(t *testing.T) {
	client, _, data, _ := newTestClient(t)

	for _, seq := range []uint16{1, 2, 5} {
		packet, err := protocol.EncodeData(protocol.DataItem0, seq, []byte{0x00, 0x00})
		if err != nil {
			t.Fatal(err)
		}
		data.deliver(packet)
	}

	stats := client.Stats()
	if stats.SequenceGaps != 1 {
		t.Errorf("sequence gaps = %d, want 1", stats.SequenceGaps)
	}
	if stats.LastSequence != 5 {
		t.Errorf("last sequence = %d, want 5", stats.LastSequence)
	}
}
