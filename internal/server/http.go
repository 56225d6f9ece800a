package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rfwave/netsdr/internal/config"
	"github.com/rfwave/netsdr/internal/logging"
	"github.com/rfwave/netsdr/internal/session"
	"github.com/rfwave/netsdr/internal/version"
)

// Server exposes the monitoring surface of a running session: a JSON
// status endpoint, Prometheus metrics, and the WebSocket sample
// stream.
type Server struct {
	httpServer *http.Server
	session    *session.Client
	hub        *Hub
	startTime  time.Time
}

// New creates the monitoring server. hub may be nil when streaming is
// not wanted; /stream then returns 404.
func New(cfg config.HTTPConfig, sess *session.Client, hub *Hub) *Server {
	s := &Server{
		session:   sess,
		hub:       hub,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())
	if hub != nil {
		mux.HandleFunc("/stream", hub.HandleStream)
	}

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	logging.Info("Monitoring server listening",
		zap.String("addr", s.httpServer.Addr))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Monitoring server failed", zap.Error(err))
		}
	}()
}

// Shutdown stops the server, disconnecting stream clients first.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

// statusResponse is the /status JSON document.
type statusResponse struct {
	Version        string `json:"version"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	Connected      bool   `json:"connected"`
	Streaming      bool   `json:"streaming"`
	FrequencyHz    uint64 `json:"frequency_hz"`
	PacketsRx      uint64 `json:"packets_received"`
	DecodeFailures uint64 `json:"decode_failures"`
	SequenceGaps   uint64 `json:"sequence_gaps"`
	SamplesOut     uint64 `json:"samples_out"`
	StreamClients  int    `json:"stream_clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{
		Version:       version.Version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}
	if s.session != nil {
		stats := s.session.Stats()
		resp.Connected = stats.Connected
		resp.Streaming = stats.Streaming
		resp.FrequencyHz = stats.FrequencyHz
		resp.PacketsRx = stats.PacketsRx
		resp.DecodeFailures = stats.DecodeFailures
		resp.SequenceGaps = stats.SequenceGaps
		resp.SamplesOut = stats.SamplesOut
	}
	if s.hub != nil {
		resp.StreamClients = s.hub.ClientCount()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Warn("Failed to encode status response", zap.Error(err))
	}
}
