package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rfwave/netsdr/internal/config"
	"github.com/rfwave/netsdr/internal/discovery"
	"github.com/rfwave/netsdr/internal/echo"
	"github.com/rfwave/netsdr/internal/logging"
	"github.com/rfwave/netsdr/internal/metrics"
	"github.com/rfwave/netsdr/internal/server"
	"github.com/rfwave/netsdr/internal/session"
	"github.com/rfwave/netsdr/internal/sink"
	"github.com/rfwave/netsdr/internal/transport"
	"github.com/rfwave/netsdr/internal/ui"
)

// Shared flags
var (
	configPath string
	logLevel   string

	deviceHost  string
	controlPort int
	dataPort    int

	frequencyHz  uint64
	durationSec  int
	outputFile   string
	outputFormat string

	scanTimeout int

	httpEnabled bool
	httpAddress string
	httpPort    int

	echoListenAddr string
	genTarget      string
	genIntervalMs  int
	genSamples     int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(echoCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig builds the effective configuration: file (or defaults)
// with command-line overrides applied on top.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	if deviceHost != "" {
		cfg.Device.Host = deviceHost
	}
	if controlPort != 0 {
		cfg.Device.ControlPort = controlPort
	}
	if dataPort != 0 {
		cfg.Device.DataPort = dataPort
	}
	if outputFile != "" {
		cfg.Capture.OutputFile = outputFile
	}
	if outputFormat != "" {
		cfg.Capture.Format = outputFormat
	}
	if httpEnabled {
		cfg.HTTP.Enabled = true
	}
	if httpAddress != "" {
		cfg.HTTP.Address = httpAddress
	}
	if httpPort != 0 {
		cfg.HTTP.Port = httpPort
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildClient wires the transports and session for the configured
// receiver. The returned cleanup disconnects the session.
func buildClient(cfg *config.Config, dest session.SampleSink, m *metrics.Metrics) *session.Client {
	ctrl := transport.NewTCPControl(fmt.Sprintf("%s:%d", cfg.Device.Host, cfg.Device.ControlPort))
	data := transport.NewUDPData(fmt.Sprintf(":%d", cfg.Device.DataPort), cfg.Device.BufferSize)
	return session.NewClient(ctrl, data, dest, cfg, m)
}

// waitForSignal blocks until SIGINT/SIGTERM or, when seconds > 0, the
// duration elapses.
func waitForSignal(seconds int) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if seconds > 0 {
		select {
		case <-sigChan:
		case <-time.After(time.Duration(seconds) * time.Second):
		}
		return
	}
	<-sigChan
}

// scanCmd discovers receivers on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for receivers on the network",
	Long: `Scan for receivers using mDNS/DNS-SD discovery.

This command listens for mDNS broadcasts from receivers advertising
the _netsdr._tcp service and displays their addresses and metadata.`,
	Example: `  # Scan for 10 seconds (default)
  netsdr scan

  # Quick 3-second scan
  netsdr scan --timeout 3`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	fmt.Printf("Scanning for receivers (timeout: %ds)...\n\n", scanTimeout)

	receivers, err := discovery.Scan(time.Duration(scanTimeout) * time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(receivers) == 0 {
		fmt.Println("No receivers found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the receiver is powered on and on the same network")
		fmt.Println("  - Try increasing --timeout for slower networks")
		fmt.Println("  - Use --host to specify the address manually if discovery fails")
		return nil
	}

	fmt.Printf("Found %d receiver(s):\n\n", len(receivers))
	for i, r := range receivers {
		fmt.Printf("%d. %s\n", i+1, r.Name)
		fmt.Printf("   Host:    %s\n", r.Hostname)
		fmt.Printf("   Control: %s:%d\n", r.IP, r.ControlPort)
		fmt.Printf("   Data:    udp/%d\n", r.DataPort)
		if model := r.Model(); model != "" {
			fmt.Printf("   Model:   %s\n", model)
		}
		fmt.Println()
	}

	fmt.Println("Use 'netsdr capture --host <ip>' to start a capture")
	return nil
}

// captureCmd streams samples to a file
var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture I/Q samples to a file",
	Long: `Connect to a receiver, start streaming, and write the decoded
samples to a raw little-endian int32 file or a PCM-16 WAV file.

The capture runs until interrupted, or for --duration seconds.`,
	Example: `  # Capture 30 seconds at 14.250 MHz
  netsdr capture --host 192.168.1.100 --frequency 14250000 --duration 30

  # Capture to WAV
  netsdr capture --host 192.168.1.100 --output dump.wav --format wav`,
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().StringVar(&deviceHost, "host", "", "Receiver IP address")
	captureCmd.Flags().IntVar(&controlPort, "control-port", 0, "TCP control port (default 50000)")
	captureCmd.Flags().IntVar(&dataPort, "data-port", 0, "Local UDP data port (default 60000)")
	captureCmd.Flags().Uint64Var(&frequencyHz, "frequency", 0, "Tune frequency in Hz before capturing")
	captureCmd.Flags().IntVar(&durationSec, "duration", 0, "Capture duration in seconds (0 = until interrupted)")
	captureCmd.Flags().StringVar(&outputFile, "output", "", "Output file path")
	captureCmd.Flags().StringVar(&outputFormat, "format", "", "Output format: raw or wav")
	captureCmd.Flags().BoolVar(&httpEnabled, "http", false, "Enable the monitoring HTTP server")
	captureCmd.Flags().StringVar(&httpAddress, "http-address", "", "Monitoring server bind address")
	captureCmd.Flags().IntVar(&httpPort, "http-port", 0, "Monitoring server port")
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logging.Initialize(cfg.Logging.Level); err != nil {
		return err
	}
	defer logging.Sync()

	var dest session.SampleSink
	var closeSink func() error

	switch cfg.Capture.Format {
	case "wav":
		ws, err := sink.NewWAVSink(cfg.Capture.OutputFile, cfg.Tuning.SampleRate, 2)
		if err != nil {
			return err
		}
		dest, closeSink = ws, ws.Close
	default:
		rs, err := sink.NewRawSink(cfg.Capture.OutputFile)
		if err != nil {
			return err
		}
		dest, closeSink = rs, rs.Close
	}

	m := metrics.NewMetrics()
	client := buildClient(cfg, dest, m)
	ctx := context.Background()

	if err := client.Connect(ctx); err != nil {
		closeSink()
		return err
	}
	defer client.Disconnect()

	if frequencyHz > 0 {
		if err := client.ChangeFrequency(ctx, frequencyHz, cfg.Tuning.Channel); err != nil {
			closeSink()
			return err
		}
	}

	var srv *server.Server
	if cfg.HTTP.Enabled {
		srv = server.New(cfg.HTTP, client, nil)
		srv.Start()
	}

	if err := client.StartStreaming(ctx); err != nil {
		closeSink()
		return err
	}

	fmt.Printf("Capturing to %s (%s). Press Ctrl+C to stop.\n",
		cfg.Capture.OutputFile, cfg.Capture.Format)

	waitForSignal(durationSec)

	if err := client.StopStreaming(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: stop streaming: %v\n", err)
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}

	if err := closeSink(); err != nil {
		return err
	}

	stats := client.Stats()
	fmt.Printf("\nCapture finished:\n")
	fmt.Printf("  Packets received: %d\n", stats.PacketsRx)
	fmt.Printf("  Samples written:  %d\n", stats.SamplesOut)
	fmt.Printf("  Decode failures:  %d\n", stats.DecodeFailures)
	fmt.Printf("  Sequence gaps:    %d\n", stats.SequenceGaps)
	return nil
}

// monitorCmd runs the interactive dashboard
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive session dashboard",
	Long: `Connect to a receiver and show a live dashboard of the session.

Streaming can be toggled and the receiver retuned from the keyboard.
With --http, the monitoring server also serves /status, /metrics and
a WebSocket sample stream on /stream.`,
	Example: `  # Monitor a receiver
  netsdr monitor --host 192.168.1.100 --frequency 7100000

  # Monitor with the HTTP surface enabled
  netsdr monitor --host 192.168.1.100 --http --http-port 8080`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().StringVar(&deviceHost, "host", "", "Receiver IP address")
	monitorCmd.Flags().IntVar(&controlPort, "control-port", 0, "TCP control port (default 50000)")
	monitorCmd.Flags().IntVar(&dataPort, "data-port", 0, "Local UDP data port (default 60000)")
	monitorCmd.Flags().Uint64Var(&frequencyHz, "frequency", 0, "Tune frequency in Hz after connecting")
	monitorCmd.Flags().BoolVar(&httpEnabled, "http", false, "Enable the monitoring HTTP server")
	monitorCmd.Flags().StringVar(&httpAddress, "http-address", "", "Monitoring server bind address")
	monitorCmd.Flags().IntVar(&httpPort, "http-port", 0, "Monitoring server port")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// The dashboard owns the terminal; route logs through the env
	// variable only when explicitly requested.
	if err := logging.Initialize(cfg.Logging.Level); err != nil {
		return err
	}
	defer logging.Sync()

	m := metrics.NewMetrics()
	counting := sink.NewCountingSink()

	var dest session.SampleSink = counting
	var hub *server.Hub
	if cfg.HTTP.Enabled {
		hub = server.NewHub(m)
		dest = sink.Multi(counting, hub)
	}

	client := buildClient(cfg, dest, m)
	ctx := context.Background()

	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Disconnect()

	if frequencyHz > 0 {
		if err := client.ChangeFrequency(ctx, frequencyHz, cfg.Tuning.Channel); err != nil {
			return err
		}
	}

	var srv *server.Server
	if cfg.HTTP.Enabled {
		srv = server.New(cfg.HTTP, client, hub)
		srv.Start()
	}

	err = ui.Run(client, cfg.Tuning.Channel)

	if client.IsStreaming() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = client.StopStreaming(stopCtx)
		cancel()
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}

	return err
}

// echoCmd runs the local control-channel stand-in
var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Run a local echo service for development",
	Long: `Run a TCP service that echoes framed control messages back to the
client. Point 'netsdr capture' or 'netsdr monitor' at it to exercise
a full session without hardware.`,
	Example: `  # Listen on the factory control port
  netsdr echo --listen :50000`,
	RunE: runEcho,
}

func init() {
	echoCmd.Flags().StringVar(&echoListenAddr, "listen", ":50000", "Listen address")
}

func runEcho(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	svc := echo.NewService(echoListenAddr)
	if err := svc.Start(); err != nil {
		return err
	}

	fmt.Printf("Echo service listening on %s. Press Ctrl+C to stop.\n", svc.Addr())
	waitForSignal(0)

	return svc.Stop()
}

// generateCmd emits synthetic data-channel traffic
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic sample traffic",
	Long: `Send sequenced UDP data packets of synthetic 16-bit samples to a
target address. Combined with 'netsdr echo' this drives a complete
client session against localhost.`,
	Example: `  # Send a packet every 5 ms to a local client
  netsdr generate --target 127.0.0.1:60000 --interval 5`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genTarget, "target", "127.0.0.1:60000", "Target address (host:port)")
	generateCmd.Flags().IntVar(&genIntervalMs, "interval", 5, "Packet interval in milliseconds")
	generateCmd.Flags().IntVar(&genSamples, "samples", 256, "Samples per packet")
	generateCmd.Flags().IntVar(&durationSec, "duration", 0, "Run duration in seconds (0 = until interrupted)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	if genIntervalMs < 1 {
		return fmt.Errorf("interval must be at least 1 ms, got %d", genIntervalMs)
	}

	gen := echo.NewGenerator(genTarget,
		time.Duration(genIntervalMs)*time.Millisecond, genSamples)
	if err := gen.Start(); err != nil {
		return err
	}

	fmt.Printf("Generating traffic to %s. Press Ctrl+C to stop.\n", genTarget)
	waitForSignal(durationSec)

	gen.Stop()
	return nil
}
