package transport

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/rfwave/netsdr/internal/protocol"
)

func TestUDPData_ReceivesDatagrams(t *testing.T) {
	data := NewUDPData("127.0.0.1:0", 65536)
	handler, received := collectMessages()
	data.OnDatagram(handler)

	if err := data.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer data.Stop()

	addr := data.LocalAddr()
	if addr == "" {
		t.Fatal("LocalAddr() empty after Start")
	}

	sender, err := net.Dial("udp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer sender.Close()

	packets := [][]byte{}
	for seq := uint16(0); seq < 3; seq++ {
		packet, err := protocol.EncodeData(protocol.DataItem0, seq, []byte{byte(seq), 0x00})
		if err != nil {
			t.Fatal(err)
		}
		packets = append(packets, packet)
		if _, err := sender.Write(packet); err != nil {
			t.Fatal(err)
		}
	}

	for i, want := range packets {
		select {
		case got := <-received:
			if !bytes.Equal(got, want) {
				t.Errorf("datagram %d = %v, want %v", i, got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("datagram %d never delivered", i)
		}
	}
}

func TestUDPData_StartStopLifecycle(t *testing.T) {
	data := NewUDPData("127.0.0.1:0", 65536)

	if err := data.Stop(); err != nil {
		t.Errorf("Stop before Start should be a no-op, got %v", err)
	}
	if got := data.LocalAddr(); got != "" {
		t.Errorf("LocalAddr() = %q before Start, want empty", got)
	}

	if err := data.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := data.Start(); err != nil {
		t.Errorf("second Start should be a no-op, got %v", err)
	}

	if err := data.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := data.Stop(); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}

	// The port is released: a second cycle binds cleanly.
	if err := data.Start(); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	if err := data.Stop(); err != nil {
		t.Fatalf("Stop after restart error = %v", err)
	}
}

func TestUDPData_StopUnblocksWithoutTraffic(t *testing.T) {
	data := NewUDPData("127.0.0.1:0", 65536)
	if err := data.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- data.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Stop() did not return")
	}
}
