package server

import (
	"encoding/binary"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rfwave/netsdr/internal/logging"
	"github.com/rfwave/netsdr/internal/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Per-client backlog of sample batches before drops start
	sendQueueSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 65536,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub broadcasts sample batches to connected WebSocket clients. It
// implements the sample sink contract, so it can sit directly on the
// data path next to a file sink.
//
// A slow client does not stall the stream: batches that do not fit in
// its queue are dropped for that client only.
type Hub struct {
	mu      sync.Mutex
	clients map[*hubClient]struct{}
	metrics *metrics.Metrics // optional
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub. The metrics handle may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[*hubClient]struct{}),
		metrics: m,
	}
}

// Write broadcasts one sample batch to every connected client as a
// binary frame of little-endian int32 words. Always returns nil.
func (h *Hub) Write(samples []int32) error {
	h.mu.Lock()
	if len(h.clients) == 0 {
		h.mu.Unlock()
		return nil
	}

	frame := make([]byte, len(samples)*4)
	for i, sample := range samples {
		binary.LittleEndian.PutUint32(frame[i*4:], uint32(sample))
	}

	for client := range h.clients {
		select {
		case client.send <- frame:
		default:
			// Queue full: drop this batch for this client.
		}
	}
	h.mu.Unlock()
	return nil
}

// ClientCount returns the number of connected stream clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleStream upgrades the HTTP request and serves the sample stream
// until the client disconnects.
func (h *Hub) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	client := &hubClient{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}
	h.register(client)
	logging.LogConnection("stream", r.RemoteAddr, "client connected")

	go h.writePump(client)
	h.readPump(client, r.RemoteAddr)
}

func (h *Hub) register(client *hubClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetStreamClients(count)
	}
}

func (h *Hub) unregister(client *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	count := len(h.clients)
	close(client.send)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetStreamClients(count)
	}
}

// readPump discards inbound messages and detects disconnect.
func (h *Hub) readPump(client *hubClient, remoteAddr string) {
	defer func() {
		h.unregister(client)
		client.conn.Close()
		logging.LogConnection("stream", remoteAddr, "client disconnected")
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards queued frames to the client connection.
func (h *Hub) writePump(client *hubClient) {
	defer client.conn.Close()

	for frame := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			h.unregister(client)
			return
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.unregister(client)
	}
}
